package sia

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var nameTypeNames = [...]string{
	TypeOtherName:                 "otherName",
	TypeRFC822Name:                "rfc822Name",
	TypeDNSName:                   "dNSName",
	TypeX400Address:               "x400Address",
	TypeDirectoryName:             "directoryName",
	TypeEDIPartyName:              "ediPartyName",
	TypeUniformResourceIdentifier: "uniformResourceIdentifier",
	TypeIPAddress:                 "iPAddress",
	TypeRegisteredID:              "registeredID",
}

var nameTypeAliases = map[string]NameType{
	"email": TypeRFC822Name,
	"dns":   TypeDNSName,
	"dn":    TypeDirectoryName,
	"uri":   TypeUniformResourceIdentifier,
	"ip":    TypeIPAddress,
	"rid":   TypeRegisteredID,
}

func (t NameType) String() string {
	if int(t) < len(nameTypeNames) {
		return nameTypeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// ParseNameType accepts the RFC 5280 alternative names, case-insensitively,
// and the short aliases email, dns, dn, uri, ip and rid.
func ParseNameType(s string) (NameType, error) {
	for i, name := range nameTypeNames {
		if strings.EqualFold(name, s) {
			return NameType(i), nil
		}
	}
	if t, ok := nameTypeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, &Error{Kind: KindUnsupportedVariant, Offset: -1, Message: "unknown general name type " + fmt.Sprintf("%q", s)}
}

// NewGeneralName builds a GeneralName from the text an editor collects for
// it. The text forms are those of Text: plain strings for the IA5String
// alternatives, an address for iPAddress, dotted decimal for registeredID,
// RFC 4514 for directoryName, "<oid>:<hex element>" for otherName and hex
// content octets for x400Address and ediPartyName.
func NewGeneralName(t NameType, value string) (GeneralName, error) {
	switch t {
	case TypeRFC822Name:
		return RFC822Name(value), nil
	case TypeDNSName:
		return DNSName(value), nil
	case TypeUniformResourceIdentifier:
		return URI(value), nil
	case TypeIPAddress:
		addr, err := netip.ParseAddr(value)
		if err != nil || addr.Zone() != "" {
			return nil, syntaxError("invalid IP address "+fmt.Sprintf("%q", value), err)
		}
		return IPAddress(addr.AsSlice()), nil
	case TypeRegisteredID:
		oid, err := OIDFromString(value)
		if err != nil {
			return nil, err
		}
		return RegisteredID(oid), nil
	case TypeDirectoryName:
		name, err := ParseDistinguishedName(value)
		if err != nil {
			return nil, err
		}
		return DirectoryName(name), nil
	case TypeOtherName:
		oidText, hexText, ok := strings.Cut(value, ":")
		if !ok {
			return nil, syntaxError("otherName must be <oid>:<hex>", nil)
		}
		oid, err := OIDFromString(oidText)
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(hexText)
		if err != nil {
			return nil, syntaxError("invalid otherName value", err)
		}
		v := cryptobyte.String(raw)
		var element cryptobyte.String
		var tag asn1.Tag
		if !v.ReadAnyASN1Element(&element, &tag) || !v.Empty() {
			return nil, syntaxError("otherName value must be a single DER element", nil)
		}
		return OtherName{TypeID: oid, Value: raw}, nil
	case TypeX400Address, TypeEDIPartyName:
		raw, err := hex.DecodeString(value)
		if err != nil {
			return nil, syntaxError("invalid "+t.String()+" content", err)
		}
		if !elements(raw) {
			return nil, syntaxError(t.String()+" content is not DER", nil)
		}
		if t == TypeX400Address {
			return X400Address(raw), nil
		}
		return EDIPartyName(raw), nil
	}
	return nil, &Error{Kind: KindUnsupportedVariant, Offset: -1, Message: "unknown general name type " + t.String()}
}

// Text returns the editor text form of name, the inverse of NewGeneralName.
func Text(name GeneralName) string {
	if name == nil {
		return ""
	}
	return name.String()
}

type jsonGeneralName struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	// Encoding is "hex" when Value holds the hex of an rfc822Name, dNSName
	// or uniformResourceIdentifier payload that is not valid UTF-8.
	Encoding string `json:"encoding,omitempty"`
}

func (j jsonGeneralName) decode() (GeneralName, error) {
	t, err := ParseNameType(j.Type)
	if err != nil {
		return nil, err
	}
	if j.Encoding == "" {
		return NewGeneralName(t, j.Value)
	}
	if j.Encoding != "hex" {
		return nil, syntaxError("unknown encoding "+fmt.Sprintf("%q", j.Encoding), nil)
	}
	raw, err := hex.DecodeString(j.Value)
	if err != nil {
		return nil, syntaxError("invalid hex value", err)
	}
	switch t {
	case TypeRFC822Name:
		return RFC822Name(raw), nil
	case TypeDNSName:
		return DNSName(raw), nil
	case TypeUniformResourceIdentifier:
		return URI(raw), nil
	}
	return nil, syntaxError("hex encoding is not used for "+t.String(), nil)
}

func jsonName(name GeneralName) jsonGeneralName {
	j := jsonGeneralName{Type: name.Type().String(), Value: Text(name)}
	switch name.(type) {
	case RFC822Name, DNSName, URI:
		// encoding/json would replace invalid bytes with U+FFFD.
		if !utf8.ValidString(j.Value) {
			j.Value = hex.EncodeToString([]byte(j.Value))
			j.Encoding = "hex"
		}
	}
	return j
}

type jsonAccessDescription struct {
	AccessMethod     ObjectIdentifier `json:"accessMethod"`
	AccessMethodName string           `json:"accessMethodName,omitempty"`
	AccessLocation   jsonGeneralName  `json:"accessLocation"`
}

// MarshalJSON writes the method as dotted decimal (plus its conventional
// name when it has one) and the location as its type and text form.
func (ad AccessDescription) MarshalJSON() ([]byte, error) {
	if ad.AccessLocation == nil {
		return nil, malformed(-1, "missing AccessLocation")
	}
	return json.Marshal(jsonAccessDescription{
		AccessMethod:     ad.AccessMethod,
		AccessMethodName: AccessMethodName(ad.AccessMethod),
		AccessLocation:   jsonName(ad.AccessLocation),
	})
}

// UnmarshalJSON reads the form written by MarshalJSON. accessMethod may
// also be one of the names AccessMethodName knows; accessMethodName is
// informational and ignored.
func (ad *AccessDescription) UnmarshalJSON(data []byte) error {
	var j struct {
		AccessMethod   *string         `json:"accessMethod"`
		AccessLocation jsonGeneralName `json:"accessLocation"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if j.AccessMethod == nil {
		return syntaxError("missing accessMethod", nil)
	}
	method, err := ParseAccessMethod(*j.AccessMethod)
	if err != nil {
		return fmt.Errorf("accessMethod: %w", err)
	}
	name, err := j.AccessLocation.decode()
	if err != nil {
		return fmt.Errorf("accessLocation: %w", err)
	}
	*ad = AccessDescription{AccessMethod: method, AccessLocation: name}
	return nil
}
