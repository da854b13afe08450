package sia

import (
	encoding_asn1 "encoding/asn1"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ObjectIdentifier is an immutable sequence of arcs. Compare with Equal, not
// with the dotted text.
type ObjectIdentifier encoding_asn1.ObjectIdentifier

// ParseObjectIdentifier reads a DER OBJECT IDENTIFIER.
func ParseObjectIdentifier(der *cryptobyte.String) (ObjectIdentifier, error) {
	var oid encoding_asn1.ObjectIdentifier
	if !der.ReadASN1ObjectIdentifier(&oid) {
		return nil, malformed(-1, "failed to read OID")
	}
	return ObjectIdentifier(oid), nil
}

// OIDFromString parses dotted decimal notation such as "1.3.6.1.5.5.7.48.5".
func OIDFromString(s string) (ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, syntaxError("object identifier needs at least two arcs: "+strconv.Quote(s), nil)
	}
	oid := make(ObjectIdentifier, len(parts))
	for i, p := range parts {
		// Reject "+1", " 1" and friends that Atoi would otherwise let through
		// or that are not canonical.
		if p == "" || strings.TrimLeft(p, "0123456789") != "" || (len(p) > 1 && p[0] == '0') {
			return nil, syntaxError("invalid object identifier arc "+strconv.Quote(p), nil)
		}
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, syntaxError("invalid object identifier arc "+strconv.Quote(p), err)
		}
		oid[i] = int(n)
	}
	if !oid.Valid() {
		return nil, syntaxError("invalid object identifier "+strconv.Quote(s), nil)
	}
	return oid, nil
}

// Valid reports whether oid can be DER encoded: at least two arcs, a first
// arc of 0, 1 or 2, a second arc below 40 under 0 and 1, no negative arcs.
func (oid ObjectIdentifier) Valid() bool {
	if len(oid) < 2 || oid[0] < 0 || oid[0] > 2 || oid[1] < 0 {
		return false
	}
	if oid[0] < 2 && oid[1] >= 40 {
		return false
	}
	for _, v := range oid[2:] {
		if v < 0 {
			return false
		}
	}
	return true
}

func (oid ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	return encoding_asn1.ObjectIdentifier(oid).Equal(encoding_asn1.ObjectIdentifier(other))
}

func (oid ObjectIdentifier) String() string {
	return encoding_asn1.ObjectIdentifier(oid).String()
}

func (oid ObjectIdentifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(oid.String())
}

func (oid *ObjectIdentifier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := OIDFromString(s)
	if err != nil {
		return err
	}
	*oid = parsed
	return nil
}

// contents returns the DER content octets of oid, without tag and length.
// registeredID carries exactly these under an implicit [8] tag.
func (oid ObjectIdentifier) contents() ([]byte, error) {
	if !oid.Valid() {
		return nil, malformed(-1, "invalid object identifier "+oid.String())
	}
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(encoding_asn1.ObjectIdentifier(oid))
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "encoding object identifier", err)
	}
	s := cryptobyte.String(der)
	var body cryptobyte.String
	if !s.ReadASN1(&body, asn1.OBJECT_IDENTIFIER) {
		return nil, malformed(-1, "encoding object identifier")
	}
	return body, nil
}

// oidFromContents is the inverse of contents.
func oidFromContents(body []byte) (ObjectIdentifier, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(body)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "failed to read OID", err)
	}
	s := cryptobyte.String(der)
	return ParseObjectIdentifier(&s)
}
