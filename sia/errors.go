package sia

import (
	"errors"
	"strconv"
)

// Kind is a stable category for programmatic error handling. Callers should
// branch on Kind (or use errors.Is with the sentinels below) rather than
// matching error strings.
type Kind string

const (
	// KindMalformedEncoding is a structural violation of the DER grammar: bad
	// tag, bad length, truncated buffer, unknown general-name tag, empty list,
	// or an in-memory value that cannot be encoded.
	KindMalformedEncoding Kind = "MalformedEncoding"
	// KindUnsupportedVariant is a general-name alternative the requested
	// operation does not handle.
	KindUnsupportedVariant Kind = "UnsupportedVariant"
	// KindSyntax is editor text (a distinguished name, an OID, an address)
	// that cannot be parsed.
	KindSyntax Kind = "Syntax"
)

var (
	ErrMalformedEncoding  = &Error{Kind: KindMalformedEncoding, Offset: -1}
	ErrUnsupportedVariant = &Error{Kind: KindUnsupportedVariant, Offset: -1}
	ErrSyntax             = &Error{Kind: KindSyntax, Offset: -1}
)

// Error is the package's structured error type.
//
// Offset is the byte offset within the decoded buffer of the innermost
// element the list decoder was reading when it failed: an AccessDescription,
// its accessMethod, or its accessLocation. A failure nested inside a
// directoryName or otherName reports the start of that GeneralName. Offset
// is -1 when no position is meaningful (encoding, text parsing). Message is
// intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Offset  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	b := []byte("sia: ")
	b = append(b, e.Kind...)
	if e.Offset >= 0 {
		b = strconv.AppendInt(append(b, " at offset "...), int64(e.Offset), 10)
	}
	if e.Message != "" {
		b = append(b, ": "...)
		b = append(b, e.Message...)
	}
	if e.Cause != nil {
		b = append(b, ": "...)
		b = append(b, e.Cause.Error()...)
	}
	return string(b)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is one of the sentinel errors of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

func malformed(offset int, msg string) error {
	return &Error{Kind: KindMalformedEncoding, Offset: offset, Message: msg}
}

func malformedCause(offset int, msg string, cause error) error {
	return &Error{Kind: KindMalformedEncoding, Offset: offset, Message: msg, Cause: cause}
}

// atOffset records offset on the first *Error in err's chain that has no
// position yet.
func atOffset(err error, offset int) error {
	var e *Error
	if errors.As(err, &e) && e.Offset < 0 {
		e.Offset = offset
	}
	return err
}

func syntaxError(msg string, cause error) error {
	return &Error{Kind: KindSyntax, Offset: -1, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
