package sia

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"reflect"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// NameType is the context-specific tag number selecting a GeneralName
// alternative.
type NameType uint8

const (
	TypeOtherName                 NameType = 0
	TypeRFC822Name                NameType = 1
	TypeDNSName                   NameType = 2
	TypeX400Address               NameType = 3
	TypeDirectoryName             NameType = 4
	TypeEDIPartyName              NameType = 5
	TypeUniformResourceIdentifier NameType = 6
	TypeIPAddress                 NameType = 7
	TypeRegisteredID              NameType = 8
)

// Tag returns the identifier octet used for t inside a GeneralName.
func (t NameType) Tag() asn1.Tag {
	tag := asn1.Tag(t).ContextSpecific()
	switch t {
	case TypeOtherName, TypeX400Address, TypeDirectoryName, TypeEDIPartyName:
		tag = tag.Constructed()
	}
	return tag
}

// GeneralName is one alternative of the RFC 5280 4.2.1.6 CHOICE:
//
//	GeneralName ::= CHOICE {
//	     otherName                 [0]  AnotherName,
//	     rfc822Name                [1]  IA5String,
//	     dNSName                   [2]  IA5String,
//	     x400Address               [3]  ORAddress,
//	     directoryName             [4]  Name,
//	     ediPartyName              [5]  EDIPartyName,
//	     uniformResourceIdentifier [6]  IA5String,
//	     iPAddress                 [7]  OCTET STRING,
//	     registeredID              [8]  OBJECT IDENTIFIER }
//
// The set of implementations is closed: OtherName, RFC822Name, DNSName,
// X400Address, DirectoryName, EDIPartyName, URI, IPAddress and RegisteredID.
type GeneralName interface {
	Type() NameType
	String() string
	generalName()
}

// OtherName ::= SEQUENCE {
//
//	type-id    OBJECT IDENTIFIER,
//	value      [0] EXPLICIT ANY DEFINED BY type-id }
//
// Value is the complete DER element inside the explicit tag.
type OtherName struct {
	TypeID ObjectIdentifier
	Value  []byte
}

// RFC822Name is an email address. The characters are written as-is.
type RFC822Name string

type DNSName string

// X400Address carries the content octets of an ORAddress without decoding
// them.
type X400Address []byte

type DirectoryName Name

// EDIPartyName carries the content octets of an EDIPartyName without
// decoding them.
type EDIPartyName []byte

type URI string

// IPAddress is the raw address: 4 bytes for IPv4, 16 for IPv6.
type IPAddress []byte

type RegisteredID ObjectIdentifier

func (OtherName) Type() NameType     { return TypeOtherName }
func (RFC822Name) Type() NameType    { return TypeRFC822Name }
func (DNSName) Type() NameType       { return TypeDNSName }
func (X400Address) Type() NameType   { return TypeX400Address }
func (DirectoryName) Type() NameType { return TypeDirectoryName }
func (EDIPartyName) Type() NameType  { return TypeEDIPartyName }
func (URI) Type() NameType           { return TypeUniformResourceIdentifier }
func (IPAddress) Type() NameType     { return TypeIPAddress }
func (RegisteredID) Type() NameType  { return TypeRegisteredID }

func (OtherName) generalName()     {}
func (RFC822Name) generalName()    {}
func (DNSName) generalName()       {}
func (X400Address) generalName()   {}
func (DirectoryName) generalName() {}
func (EDIPartyName) generalName()  {}
func (URI) generalName()           {}
func (IPAddress) generalName()     {}
func (RegisteredID) generalName()  {}

func (n OtherName) String() string {
	return n.TypeID.String() + ":" + hex.EncodeToString(n.Value)
}

func (n RFC822Name) String() string    { return string(n) }
func (n DNSName) String() string       { return string(n) }
func (n X400Address) String() string   { return hex.EncodeToString(n) }
func (n DirectoryName) String() string { return Name(n).String() }
func (n EDIPartyName) String() string  { return hex.EncodeToString(n) }
func (n URI) String() string           { return string(n) }
func (n RegisteredID) String() string  { return ObjectIdentifier(n).String() }

// String keeps IPv4-mapped IPv6 addresses in their 16-byte form, so the
// text reads back to the same encoding.
func (n IPAddress) String() string {
	addr, ok := netip.AddrFromSlice(n)
	if !ok {
		return hex.EncodeToString(n)
	}
	return addr.String()
}

// ParseGeneralName parses a GeneralName as defined in RFC5280 4.2.1.6 from
// the front of der.
func ParseGeneralName(der *cryptobyte.String) (GeneralName, error) {
	var data cryptobyte.String
	var tag asn1.Tag
	if !der.ReadAnyASN1(&data, &tag) {
		return nil, malformed(-1, "failed to read general name")
	}

	if tag&0xc0 != 0x80 {
		return nil, malformed(-1, fmt.Sprintf("general name tag 0x%02x is not context-specific", uint8(tag)))
	}
	// remove class and constructed bits
	t := NameType(tag & 0x1f)
	if t > TypeRegisteredID || tag != t.Tag() {
		return nil, malformed(-1, fmt.Sprintf("unknown general name tag 0x%02x", uint8(tag)))
	}

	switch t {
	case TypeRFC822Name:
		return RFC822Name(data), nil
	case TypeDNSName:
		return DNSName(data), nil
	case TypeUniformResourceIdentifier:
		return URI(data), nil
	case TypeIPAddress:
		if len(data) != net.IPv4len && len(data) != net.IPv6len {
			return nil, malformed(-1, fmt.Sprintf("iPAddress must be 4 or 16 bytes, got %d", len(data)))
		}
		return IPAddress(bytes.Clone(data)), nil
	case TypeRegisteredID:
		oid, err := oidFromContents(data)
		if err != nil {
			return nil, fmt.Errorf("parsing registeredID: %w", err)
		}
		return RegisteredID(oid), nil
	case TypeDirectoryName:
		name, err := ParseName(&data)
		if err != nil {
			return nil, fmt.Errorf("parsing directoryName: %w", err)
		}
		if !data.Empty() {
			return nil, malformed(-1, "extra data after directoryName")
		}
		return DirectoryName(name), nil
	case TypeOtherName:
		other, err := parseOtherName(data)
		if err != nil {
			return nil, err
		}
		return other, nil
	case TypeX400Address:
		if !elements(data) {
			return nil, malformed(-1, "failed to read x400Address")
		}
		return X400Address(bytes.Clone(data)), nil
	case TypeEDIPartyName:
		if !elements(data) {
			return nil, malformed(-1, "failed to read ediPartyName")
		}
		return EDIPartyName(bytes.Clone(data)), nil
	}
	panic("unreachable")
}

func parseOtherName(data cryptobyte.String) (OtherName, error) {
	typeID, err := ParseObjectIdentifier(&data)
	if err != nil {
		return OtherName{}, fmt.Errorf("parsing otherName type-id: %w", err)
	}
	var explicit cryptobyte.String
	if !data.ReadASN1(&explicit, asn1.Tag(0).Constructed().ContextSpecific()) {
		return OtherName{}, malformed(-1, "failed to read otherName value")
	}
	if !data.Empty() {
		return OtherName{}, malformed(-1, "extra data after otherName value")
	}
	var value cryptobyte.String
	var tag asn1.Tag
	if !explicit.ReadAnyASN1Element(&value, &tag) || !explicit.Empty() {
		return OtherName{}, malformed(-1, "otherName value must be a single element")
	}
	return OtherName{TypeID: typeID, Value: bytes.Clone(value)}, nil
}

// elements reports whether s is a (possibly empty) run of well-formed DER
// elements.
func elements(s cryptobyte.String) bool {
	for !s.Empty() {
		var element cryptobyte.String
		var tag asn1.Tag
		if !s.ReadAnyASN1Element(&element, &tag) {
			return false
		}
	}
	return true
}

// DecodeGeneralName decodes the GeneralName starting at der[offset] and
// returns it together with the number of bytes it occupies (tag, length
// and payload).
func DecodeGeneralName(der []byte, offset int) (GeneralName, int, error) {
	if offset < 0 || offset >= len(der) {
		return nil, 0, malformed(offset, "no general name at offset")
	}
	s := cryptobyte.String(der[offset:])
	name, err := ParseGeneralName(&s)
	if err != nil {
		return nil, 0, atOffset(err, offset)
	}
	return name, len(der) - offset - len(s), nil
}

// EncodeGeneralName returns the DER encoding of name. Values that cannot be
// encoded faithfully are rejected rather than written.
func EncodeGeneralName(name GeneralName) ([]byte, error) {
	var b cryptobyte.Builder
	if err := addGeneralName(&b, name); err != nil {
		return nil, err
	}
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "encoding general name", err)
	}
	return der, nil
}

func addGeneralName(b *cryptobyte.Builder, name GeneralName) error {
	var body []byte
	switch n := name.(type) {
	case RFC822Name:
		body = []byte(n)
	case DNSName:
		body = []byte(n)
	case URI:
		body = []byte(n)
	case IPAddress:
		if len(n) != net.IPv4len && len(n) != net.IPv6len {
			return malformed(-1, fmt.Sprintf("iPAddress must be 4 or 16 bytes, got %d", len(n)))
		}
		body = n
	case RegisteredID:
		var err error
		if body, err = ObjectIdentifier(n).contents(); err != nil {
			return fmt.Errorf("encoding registeredID: %w", err)
		}
	case DirectoryName:
		var err error
		if body, err = Name(n).Marshal(); err != nil {
			return fmt.Errorf("encoding directoryName: %w", err)
		}
	case OtherName:
		if !n.TypeID.Valid() {
			return malformed(-1, "invalid otherName type-id "+n.TypeID.String())
		}
		v := cryptobyte.String(n.Value)
		var element cryptobyte.String
		var tag asn1.Tag
		if !v.ReadAnyASN1Element(&element, &tag) || !v.Empty() {
			return malformed(-1, "otherName value must be a single element")
		}
		b.AddASN1(name.Type().Tag(), func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(encoding_asn1.ObjectIdentifier(n.TypeID))
			b.AddASN1(asn1.Tag(0).Constructed().ContextSpecific(), func(b *cryptobyte.Builder) {
				b.AddBytes(n.Value)
			})
		})
		return nil
	case X400Address:
		if !elements(cryptobyte.String(n)) {
			return malformed(-1, "x400Address content is not DER")
		}
		body = n
	case EDIPartyName:
		if !elements(cryptobyte.String(n)) {
			return malformed(-1, "ediPartyName content is not DER")
		}
		body = n
	case nil:
		return malformed(-1, "missing general name")
	default:
		return &Error{Kind: KindUnsupportedVariant, Offset: -1, Message: fmt.Sprintf("general name type %T", name)}
	}
	b.AddASN1(name.Type().Tag(), func(b *cryptobyte.Builder) {
		b.AddBytes(body)
	})
	return nil
}

// EqualGeneralName reports whether a and b are the same name. Names that
// encode to the same DER are equal, so DirectoryName(nil) equals
// DirectoryName(Name{}). Values that cannot be encoded compare by type and
// content.
func EqualGeneralName(a, b GeneralName) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	da, errA := EncodeGeneralName(a)
	db, errB := EncodeGeneralName(b)
	if errA != nil || errB != nil {
		return errA != nil && errB != nil && reflect.DeepEqual(a, b)
	}
	return bytes.Equal(da, db)
}
