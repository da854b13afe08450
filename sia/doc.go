// Package sia encodes and decodes the X.509 Subject Information Access
// extension (RFC 5280 4.2.2.2) and the GeneralName values it carries.
//
// Decoding is strict DER: indefinite lengths, non-minimal lengths, unknown
// GeneralName tags and trailing data are rejected with an *Error of kind
// KindMalformedEncoding, and a failed decode never returns a partial list.
// Encoding is deterministic, so for canonical input
//
//	sia, _ := ParseSubjectInfoAccess(der)
//	out, _ := sia.Marshal()
//
// yields out equal to der byte for byte.
//
// Decoded values never share memory with the input buffer, and every
// function is safe for concurrent use.
package sia
