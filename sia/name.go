package sia

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Name ::= RDNSequence
// RDNSequence ::= SEQUENCE OF RelativeDistinguishedName
//
// A Name is kept in encoding order. Attribute values are not interpreted:
// their tag and content octets are carried verbatim so that re-encoding is
// byte exact.
type Name []RelativeDistinguishedName

// RelativeDistinguishedName ::= SET SIZE (1..MAX) OF AttributeTypeAndValue
type RelativeDistinguishedName []AttributeTypeAndValue

// AttributeTypeAndValue ::= SEQUENCE {
// type     AttributeType,
// value    AttributeValue }
// This represents an ATV as its oid and its raw value
type AttributeTypeAndValue struct {
	Type  ObjectIdentifier
	Tag   asn1.Tag
	Value []byte
}

// ParseName reads a DER Name (an RDNSequence).
func ParseName(der *cryptobyte.String) (Name, error) {
	var rdnSequence cryptobyte.String
	if !der.ReadASN1(&rdnSequence, asn1.SEQUENCE) {
		return nil, malformed(-1, "failed to read RDNSequence")
	}

	ret := Name{}
	for !rdnSequence.Empty() {
		var atvSet cryptobyte.String
		if !rdnSequence.ReadASN1(&atvSet, asn1.SET) {
			return nil, malformed(-1, "failed to read ATVSet")
		}
		if atvSet.Empty() {
			return nil, malformed(-1, "empty RelativeDistinguishedName")
		}
		var rdn RelativeDistinguishedName
		for !atvSet.Empty() {
			atv, err := ParseATV(&atvSet)
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, atv)
		}
		ret = append(ret, rdn)
	}
	return ret, nil
}

// Equal reports whether n and other hold the same attributes in the same
// order. A nil Name and an empty one are equal.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if len(n[i]) != len(other[i]) {
			return false
		}
		for j, atv := range n[i] {
			o := other[i][j]
			if !atv.Type.Equal(o.Type) || atv.Tag != o.Tag || !bytes.Equal(atv.Value, o.Value) {
				return false
			}
		}
	}
	return true
}

func ParseATV(der *cryptobyte.String) (AttributeTypeAndValue, error) {
	var atv cryptobyte.String
	if !der.ReadASN1(&atv, asn1.SEQUENCE) {
		return AttributeTypeAndValue{}, malformed(-1, "failed to read ATV")
	}

	oid, err := ParseObjectIdentifier(&atv)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}

	ret := AttributeTypeAndValue{
		Type: oid,
	}
	var value cryptobyte.String
	if !atv.ReadAnyASN1(&value, &ret.Tag) {
		return AttributeTypeAndValue{}, malformed(-1, "failed to read ATV Value")
	}
	if !atv.Empty() {
		return AttributeTypeAndValue{}, malformed(-1, "extra data after ATV Value")
	}
	ret.Value = bytes.Clone(value)
	return ret, nil
}

// Marshal returns the DER encoding of n.
func (n Name) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	if err := n.add(&b); err != nil {
		return nil, err
	}
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "encoding Name", err)
	}
	return der, nil
}

func (n Name) add(b *cryptobyte.Builder) error {
	for _, rdn := range n {
		if len(rdn) == 0 {
			return malformed(-1, "empty RelativeDistinguishedName")
		}
		for _, atv := range rdn {
			if !atv.Type.Valid() {
				return malformed(-1, "invalid attribute type "+atv.Type.String())
			}
			// cryptobyte can only write low tag numbers.
			if atv.Tag&0x1f == 0x1f {
				return malformed(-1, "attribute value tag not encodable")
			}
		}
	}
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, rdn := range n {
			b.AddASN1(asn1.SET, func(b *cryptobyte.Builder) {
				for _, atv := range rdn {
					b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(encoding_asn1.ObjectIdentifier(atv.Type))
						b.AddASN1(atv.Tag, func(b *cryptobyte.Builder) {
							b.AddBytes(atv.Value)
						})
					})
				}
			})
		}
	})
	return nil
}

var DNNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.6":                    "C",
	"2.5.4.9":                    "STREET",
	"2.5.4.46":                   "dnQualifier",
	"0.9.2342.19200300.100.1.25": "DC",
	"0.9.2342.19200300.100.1.1":  "UID",
	"1.2.840.113549.1.9.1":       "emailAddress",
}

// String renders n in RFC 4514 syntax, in encoding order. A value is
// written as text when its string type is the one stringTag picks for that
// attribute, and otherwise as '#' followed by the hex of its encoding, so
// ParseDistinguishedName(n.String()) re-encodes to the same bytes.
func (n Name) String() string {
	var ret strings.Builder
	for i, rdn := range n {
		if i > 0 {
			ret.WriteByte(',')
		}
		for j, atv := range rdn {
			if j > 0 {
				ret.WriteByte('+')
			}
			ret.WriteString(RDNString(atv))
		}
	}
	return ret.String()
}

func RDNString(atv AttributeTypeAndValue) string {
	name, ok := DNNames[atv.Type.String()]
	if !ok {
		name = atv.Type.String()
	}
	// Plain text only when ParseDistinguishedName would pick the same tag
	// again; anything else keeps its tag through the #hex form.
	if utf8.Valid(atv.Value) && atv.Tag == stringTag(atv.Type, string(atv.Value)) {
		return name + "=" + escapeDNValue(string(atv.Value))
	}

	var b cryptobyte.Builder
	b.AddASN1(atv.Tag, func(b *cryptobyte.Builder) { b.AddBytes(atv.Value) })
	der, err := b.Bytes()
	if err != nil {
		return name + "=#"
	}
	return name + "=#" + hex.EncodeToString(der)
}

func escapeDNValue(v string) string {
	var ret strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case strings.IndexByte(`,+"\<>;=`, c) >= 0,
			c == '#' && i == 0,
			c == ' ' && (i == 0 || i == len(v)-1):
			ret.WriteByte('\\')
			ret.WriteByte(c)
		case c < 0x20 || c == 0x7f:
			ret.WriteByte('\\')
			ret.WriteString(hex.EncodeToString([]byte{c}))
		default:
			ret.WriteByte(c)
		}
	}
	return ret.String()
}

// ParseDistinguishedName parses the RFC 4514 style text produced by
// Name.String. RDNs are taken in the order written.
func ParseDistinguishedName(s string) (Name, error) {
	ret := Name{}
	if strings.TrimSpace(s) == "" {
		return ret, nil
	}
	for _, rdnText := range splitUnescaped(s, ',') {
		var rdn RelativeDistinguishedName
		for _, atvText := range splitUnescaped(rdnText, '+') {
			atv, err := parseATVText(atvText)
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, atv)
		}
		ret = append(ret, rdn)
	}
	return ret, nil
}

// splitUnescaped splits s at every sep not preceded by a backslash escape.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseATVText(s string) (AttributeTypeAndValue, error) {
	typeText, valueText, ok := strings.Cut(s, "=")
	if !ok {
		return AttributeTypeAndValue{}, syntaxError("missing '=' in "+s, nil)
	}
	typeText = strings.TrimSpace(typeText)
	oid, err := attributeType(typeText)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}

	valueText = strings.TrimLeft(valueText, " ")
	if strings.HasPrefix(valueText, "#") {
		raw, err := hex.DecodeString(strings.TrimSpace(valueText[1:]))
		if err != nil {
			return AttributeTypeAndValue{}, syntaxError("invalid hex attribute value", err)
		}
		der := cryptobyte.String(raw)
		var value cryptobyte.String
		var tag asn1.Tag
		if !der.ReadAnyASN1(&value, &tag) || !der.Empty() {
			return AttributeTypeAndValue{}, syntaxError("hex attribute value is not a single DER element", nil)
		}
		return AttributeTypeAndValue{Type: oid, Tag: tag, Value: bytes.Clone(value)}, nil
	}

	value, err := unescapeDNValue(valueText)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	return AttributeTypeAndValue{Type: oid, Tag: stringTag(oid, value), Value: []byte(value)}, nil
}

func attributeType(s string) (ObjectIdentifier, error) {
	for dotted, short := range DNNames {
		if strings.EqualFold(short, s) {
			return OIDFromString(dotted)
		}
	}
	oid, err := OIDFromString(strings.TrimPrefix(strings.ToUpper(s), "OID."))
	if err != nil {
		return nil, syntaxError("unknown attribute type "+s, err)
	}
	return oid, nil
}

func unescapeDNValue(s string) (string, error) {
	// An unescaped trailing space is insignificant.
	for strings.HasSuffix(s, " ") && !strings.HasSuffix(s, `\ `) {
		s = s[:len(s)-1]
	}
	var ret []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			ret = append(ret, c)
			continue
		}
		if i+1 >= len(s) {
			return "", syntaxError("dangling escape in attribute value", nil)
		}
		if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			v, _ := hex.DecodeString(s[i+1 : i+3])
			ret = append(ret, v...)
			i += 2
			continue
		}
		ret = append(ret, s[i+1])
		i++
	}
	return string(ret), nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// stringTag picks the string type for an attribute written as text.
func stringTag(oid ObjectIdentifier, value string) asn1.Tag {
	switch DNNames[oid.String()] {
	case "C", "SERIALNUMBER", "dnQualifier":
		if isPrintable(value) {
			return asn1.PrintableString
		}
	case "DC", "emailAddress":
		if isIA5(value) {
			return asn1.IA5String
		}
	}
	return asn1.UTF8String
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte(" '()+,-./:=?", c) >= 0:
		default:
			return false
		}
	}
	return true
}

func isIA5(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
