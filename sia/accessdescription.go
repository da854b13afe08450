package sia

import (
	encoding_asn1 "encoding/asn1"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

//	AccessDescription  ::=  SEQUENCE {
//	  accessMethod   OBJECT IDENTIFIER,
//	  accessLocation GeneralName  }
type AccessDescription struct {
	AccessMethod   ObjectIdentifier
	AccessLocation GeneralName
}

// SubjectInfoAccessSyntax ::= SEQUENCE SIZE (1..MAX) OF AccessDescription
//
// Order is significant and duplicates are allowed.
type SubjectInfoAccess []AccessDescription

// Access methods commonly found in SIA and AIA extensions. They are used for
// display only; any well-formed identifier is accepted.
var (
	OIDAccessMethodOCSP         = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	OIDAccessMethodCAIssuers    = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
	OIDAccessMethodTimeStamping = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 3}
	OIDAccessMethodCARepository = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 5}
	OIDAccessMethodRPKIManifest = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 10}
	OIDAccessMethodSignedObject = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 11}
	OIDAccessMethodRPKINotify   = ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 13}
)

var accessMethodNames = []struct {
	name string
	oid  ObjectIdentifier
}{
	{"ocsp", OIDAccessMethodOCSP},
	{"caIssuers", OIDAccessMethodCAIssuers},
	{"timeStamping", OIDAccessMethodTimeStamping},
	{"caRepository", OIDAccessMethodCARepository},
	{"rpkiManifest", OIDAccessMethodRPKIManifest},
	{"signedObject", OIDAccessMethodSignedObject},
	{"rpkiNotify", OIDAccessMethodRPKINotify},
}

// AccessMethodName returns the conventional name of a well-known access
// method, or "" for any other identifier.
func AccessMethodName(oid ObjectIdentifier) string {
	for _, m := range accessMethodNames {
		if m.oid.Equal(oid) {
			return m.name
		}
	}
	return ""
}

// Equal reports whether ad and other have the same method and location.
func (ad AccessDescription) Equal(other AccessDescription) bool {
	return ad.AccessMethod.Equal(other.AccessMethod) && EqualGeneralName(ad.AccessLocation, other.AccessLocation)
}

// Equal reports whether sia and other hold equal entries in the same order.
func (sia SubjectInfoAccess) Equal(other SubjectInfoAccess) bool {
	return slices.EqualFunc(sia, other, AccessDescription.Equal)
}

// ParseAccessMethod accepts either dotted decimal or one of the names
// returned by AccessMethodName.
func ParseAccessMethod(s string) (ObjectIdentifier, error) {
	for _, m := range accessMethodNames {
		if strings.EqualFold(m.name, s) {
			return slices.Clone(m.oid), nil
		}
	}
	return OIDFromString(s)
}

// ParseAccessDescription reads one AccessDescription from the front of der.
// Error offsets are relative to the start of der.
func ParseAccessDescription(der *cryptobyte.String) (AccessDescription, error) {
	return parseAccessDescription(der, len(*der))
}

// parseAccessDescription reads from a cursor whose unread tail ends the
// buffer of length total, so total-len(remaining) is an absolute offset.
func parseAccessDescription(der *cryptobyte.String, total int) (AccessDescription, error) {
	start := total - len(*der)
	var accessDescription cryptobyte.String
	if !der.ReadASN1(&accessDescription, asn1.SEQUENCE) {
		return AccessDescription{}, malformed(start, "failed to read AccessDescription")
	}
	end := total - len(*der)
	at := func() int { return end - len(accessDescription) }

	methodOffset := at()
	oid, err := ParseObjectIdentifier(&accessDescription)
	if err != nil {
		return AccessDescription{}, atOffset(fmt.Errorf("parsing AccessMethod: %w", err), methodOffset)
	}

	if accessDescription.Empty() {
		return AccessDescription{}, malformed(at(), "AccessDescription has no AccessLocation")
	}
	locationOffset := at()
	accessLocation, err := ParseGeneralName(&accessDescription)
	if err != nil {
		return AccessDescription{}, atOffset(fmt.Errorf("parsing AccessLocation: %w", err), locationOffset)
	}

	if !accessDescription.Empty() {
		return AccessDescription{}, malformed(at(), "extra data after AccessLocation")
	}

	return AccessDescription{
		AccessMethod:   oid,
		AccessLocation: accessLocation,
	}, nil
}

// ParseSubjectInfoAccess decodes the value of a Subject Information Access
// extension as described in RFC5280 4.2.2.2. der is the complete extension
// value, outer SEQUENCE included; Marshal produces the same framing.
//
// Either every AccessDescription is returned or an error is.
func ParseSubjectInfoAccess(der []byte) (SubjectInfoAccess, error) {
	input := cryptobyte.String(der)
	var sia cryptobyte.String
	if !input.ReadASN1(&sia, asn1.SEQUENCE) {
		return nil, malformed(0, "failed to read SubjectInfoAccess")
	}
	if !input.Empty() {
		return nil, malformed(len(der)-len(input), "extra data after SubjectInfoAccess")
	}
	if sia.Empty() {
		return nil, malformed(0, "SubjectInfoAccess contains no AccessDescription")
	}

	// sia runs to the end of der, so the unread tail locates the cursor.
	var accessDescriptions SubjectInfoAccess
	for i := 0; !sia.Empty(); i++ {
		ad, err := parseAccessDescription(&sia, len(der))
		if err != nil {
			return nil, fmt.Errorf("AccessDescription %d: %w", i, err)
		}
		accessDescriptions = append(accessDescriptions, ad)
	}

	return accessDescriptions, nil
}

// Validate checks that sia can be encoded: it has at least one entry and
// every entry has a valid method and a location.
func (sia SubjectInfoAccess) Validate() error {
	if len(sia) == 0 {
		return malformed(-1, "SubjectInfoAccess contains no AccessDescription")
	}
	for i, ad := range sia {
		if !ad.AccessMethod.Valid() {
			return malformed(-1, fmt.Sprintf("AccessDescription %d: invalid AccessMethod %q", i, ad.AccessMethod.String()))
		}
		if ad.AccessLocation == nil {
			return malformed(-1, fmt.Sprintf("AccessDescription %d: missing AccessLocation", i))
		}
	}
	return nil
}

// Marshal returns the DER encoding of the extension value. The output only
// depends on the list's contents.
func (sia SubjectInfoAccess) Marshal() ([]byte, error) {
	if err := sia.Validate(); err != nil {
		return nil, err
	}

	var names [][]byte
	for i, ad := range sia {
		name, err := EncodeGeneralName(ad.AccessLocation)
		if err != nil {
			return nil, fmt.Errorf("AccessDescription %d: %w", i, err)
		}
		names = append(names, name)
	}

	b := cryptobyte.NewBuilder(make([]byte, 0, 64*len(sia)))
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for i, ad := range sia {
			b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(encoding_asn1.ObjectIdentifier(ad.AccessMethod))
				b.AddBytes(names[i])
			})
		}
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, malformedCause(-1, "encoding SubjectInfoAccess", err)
	}
	return der, nil
}

// Append returns a new list with ad added at the end.
func (sia SubjectInfoAccess) Append(ad AccessDescription) SubjectInfoAccess {
	return append(slices.Clip(sia), ad)
}

// Insert returns a new list with ad placed at index i.
func (sia SubjectInfoAccess) Insert(i int, ad AccessDescription) (SubjectInfoAccess, error) {
	if i < 0 || i > len(sia) {
		return nil, fmt.Errorf("insert index %d out of range [0,%d]", i, len(sia))
	}
	return slices.Insert(slices.Clone(sia), i, ad), nil
}

// Replace returns a new list with the entry at index i replaced by ad.
func (sia SubjectInfoAccess) Replace(i int, ad AccessDescription) (SubjectInfoAccess, error) {
	if i < 0 || i >= len(sia) {
		return nil, fmt.Errorf("replace index %d out of range [0,%d)", i, len(sia))
	}
	ret := slices.Clone(sia)
	ret[i] = ad
	return ret, nil
}

// Remove returns a new list without the entry at index i.
func (sia SubjectInfoAccess) Remove(i int) (SubjectInfoAccess, error) {
	if i < 0 || i >= len(sia) {
		return nil, fmt.Errorf("remove index %d out of range [0,%d)", i, len(sia))
	}
	return slices.Delete(slices.Clone(sia), i, i+1), nil
}

// Move returns a new list with the entry at index from moved to index to,
// shifting the entries in between.
func (sia SubjectInfoAccess) Move(from, to int) (SubjectInfoAccess, error) {
	if from < 0 || from >= len(sia) || to < 0 || to >= len(sia) {
		return nil, fmt.Errorf("move %d to %d out of range [0,%d)", from, to, len(sia))
	}
	ad := sia[from]
	ret := slices.Delete(slices.Clone(sia), from, from+1)
	return slices.Insert(ret, to, ad), nil
}
