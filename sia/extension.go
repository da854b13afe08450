package sia

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// OIDSubjectInfoAccess identifies the Subject Information Access extension.
var OIDSubjectInfoAccess = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 11}

//	Extension  ::=  SEQUENCE  {
//	    extnID      OBJECT IDENTIFIER,
//	    critical    BOOLEAN DEFAULT FALSE,
//	    extnValue   OCTET STRING
//	                -- contains the DER encoding of an ASN.1 value
//	                -- corresponding to the extension type identified
//	                -- by extnID
//	    }
type Extension struct {
	ID       ObjectIdentifier
	Critical bool
	Value    []byte
}

func ParseExtension(der *cryptobyte.String) (Extension, error) {
	var extension cryptobyte.String
	if !der.ReadASN1(&extension, asn1.SEQUENCE) {
		return Extension{}, malformed(-1, "failed to read Extension")
	}

	extnID, err := ParseObjectIdentifier(&extension)
	if err != nil {
		return Extension{}, fmt.Errorf("parsing Extension OID: %w", err)
	}

	critical := false
	if extension.PeekASN1Tag(asn1.BOOLEAN) {
		if !extension.ReadASN1Boolean(&critical) {
			return Extension{}, malformed(-1, "failed to read critical bit")
		}
	}

	var extnValue cryptobyte.String
	if !extension.ReadASN1(&extnValue, asn1.OCTET_STRING) {
		return Extension{}, malformed(-1, "failed to read extension value")
	}

	if !extension.Empty() {
		return Extension{}, malformed(-1, "extra data after extension value")
	}

	return Extension{
		ID:       extnID,
		Critical: critical,
		Value:    bytes.Clone(extnValue),
	}, nil
}

// Marshal returns the DER encoding of e. A false critical flag is omitted,
// as DER requires for a DEFAULT value.
func (e Extension) Marshal() ([]byte, error) {
	if !e.ID.Valid() {
		return nil, malformed(-1, "invalid extension OID "+e.ID.String())
	}
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(encoding_asn1.ObjectIdentifier(e.ID))
		if e.Critical {
			b.AddASN1Boolean(true)
		}
		b.AddASN1OctetString(e.Value)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "encoding Extension", err)
	}
	return der, nil
}

// Extension wraps the encoded list in the extension envelope the
// certificate assembly layer stores. RFC 5280 4.2.2.2 requires SIA to be
// non-critical.
func (sia SubjectInfoAccess) Extension() (Extension, error) {
	value, err := sia.Marshal()
	if err != nil {
		return Extension{}, err
	}
	return Extension{ID: OIDSubjectInfoAccess, Value: value}, nil
}

// Extensions  ::=  SEQUENCE SIZE (1..MAX) OF Extension
type Extensions []Extension

// Find returns the first extension with the given identifier.
func (exts Extensions) Find(oid ObjectIdentifier) (Extension, bool) {
	for _, ext := range exts {
		if ext.ID.Equal(oid) {
			return ext, true
		}
	}
	return Extension{}, false
}

// ParseCertificateExtensions walks a DER certificate down to the extensions
// of its TBSCertificate. Fields before the extensions are checked for
// framing only.
func ParseCertificateExtensions(der []byte) (Extensions, error) {
	input := cryptobyte.String(der)
	var certificate cryptobyte.String
	if !input.ReadASN1(&certificate, asn1.SEQUENCE) || !input.Empty() {
		return nil, malformed(0, "failed to read Certificate Sequence")
	}

	var tbsCertificate cryptobyte.String
	if !certificate.ReadASN1(&tbsCertificate, asn1.SEQUENCE) {
		return nil, malformed(-1, "failed to read tbsCertificate")
	}

	//	TBSCertificate  ::=  SEQUENCE  {
	//		 version         [0]  EXPLICIT Version DEFAULT v1,
	//		 serialNumber         CertificateSerialNumber,
	//		 signature            AlgorithmIdentifier,
	//		 issuer               Name,
	//		 validity             Validity,
	//		 subject              Name,
	//		 subjectPublicKeyInfo SubjectPublicKeyInfo,
	//		 issuerUniqueID  [1]  IMPLICIT UniqueIdentifier OPTIONAL,
	//		 subjectUniqueID [2]  IMPLICIT UniqueIdentifier OPTIONAL,
	//		 extensions      [3]  EXPLICIT Extensions OPTIONAL
	//		 }
	steps := []struct {
		field    string
		tag      asn1.Tag
		optional bool
	}{
		{"version", asn1.Tag(0).Constructed().ContextSpecific(), true},
		{"serialNumber", asn1.INTEGER, false},
		{"signature", asn1.SEQUENCE, false},
		{"issuer", asn1.SEQUENCE, false},
		{"validity", asn1.SEQUENCE, false},
		{"subject", asn1.SEQUENCE, false},
		{"subjectPublicKeyInfo", asn1.SEQUENCE, false},
		{"issuerUniqueID", asn1.Tag(1).ContextSpecific(), true},
		{"subjectUniqueID", asn1.Tag(2).ContextSpecific(), true},
	}
	for _, step := range steps {
		var ok bool
		if step.optional {
			ok = tbsCertificate.SkipOptionalASN1(step.tag)
		} else {
			ok = tbsCertificate.SkipASN1(step.tag)
		}
		if !ok {
			return nil, malformed(-1, "failed to read "+step.field)
		}
	}

	extensions, err := ParseExtensions(&tbsCertificate)
	if err != nil {
		return nil, fmt.Errorf("parsing extensions: %w", err)
	}

	if !tbsCertificate.Empty() {
		return nil, malformed(-1, "extra data after tbsCertificate")
	}

	return extensions, nil
}

// ParseExtensions reads the optional [3] extensions field of a
// TBSCertificate.
func ParseExtensions(der *cryptobyte.String) (Extensions, error) {
	var explicit cryptobyte.String
	var hasExtensions bool
	var tag = asn1.Tag(3).Constructed().ContextSpecific()
	if !der.ReadOptionalASN1(&explicit, &hasExtensions, tag) {
		return nil, malformed(-1, "failed to read Extensions")
	}

	var parsedExtensions Extensions

	if hasExtensions {
		var extensions cryptobyte.String
		if !explicit.ReadASN1(&extensions, asn1.SEQUENCE) || !explicit.Empty() {
			return nil, malformed(-1, "failed to read Extensions")
		}

		for !extensions.Empty() {
			ext, err := ParseExtension(&extensions)
			if err != nil {
				return nil, err
			}
			parsedExtensions = append(parsedExtensions, ext)
		}
	}

	return parsedExtensions, nil
}

// FromCertificate decodes the Subject Information Access extension of a DER
// certificate. It reports false, with a nil error, when the certificate has
// no such extension.
func FromCertificate(der []byte) (SubjectInfoAccess, bool, error) {
	exts, err := ParseCertificateExtensions(der)
	if err != nil {
		return nil, false, err
	}
	ext, ok := exts.Find(OIDSubjectInfoAccess)
	if !ok {
		return nil, false, nil
	}
	sia, err := ParseSubjectInfoAccess(ext.Value)
	if err != nil {
		return nil, true, fmt.Errorf("parsing extension value: %w", err)
	}
	return sia, true, nil
}
