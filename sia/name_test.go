package sia

import (
	"bytes"
	"encoding/hex"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

func TestParseName(t *testing.T) {
	der := cryptobyte.String(mustHex(t, exampleNameHex))
	name, err := ParseName(&der)
	if err != nil {
		t.Fatal(err)
	}
	if !der.Empty() {
		t.Errorf("%d bytes left over", len(der))
	}
	if !reflect.DeepEqual(name, exampleName) {
		t.Errorf("ParseName() = %#v, want %#v", name, exampleName)
	}

	out, err := name.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(out) != exampleNameHex {
		t.Errorf("Marshal() = %x, want %s", out, exampleNameHex)
	}
}

func TestNameString(t *testing.T) {
	for _, tc := range []struct {
		name Name
		want string
	}{
		{Name{}, ""},
		{exampleName, "C=US,CN=Example CA"},
		{Name{{
			{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.UTF8String, Value: []byte("a,b")},
			{Type: ObjectIdentifier{2, 5, 4, 10}, Tag: asn1.UTF8String, Value: []byte(" lead+trail ")},
		}}, `CN=a\,b+O=\ lead\+trail\ `},
		{Name{{{Type: ObjectIdentifier{1, 2, 3, 4}, Tag: asn1.UTF8String, Value: []byte("#x")}}}, `1.2.3.4=\#x`},
		{Name{{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.Tag(0x1e), Value: []byte{0, 'h', 0, 'i'}}}}, "CN=#1e0400680069"},
		{Name{{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.PrintableString, Value: []byte("Example CA")}}}, "CN=#130a4578616d706c65204341"},
		{Name{{{Type: ObjectIdentifier{2, 5, 4, 6}, Tag: asn1.UTF8String, Value: []byte("US")}}}, "C=#0c025553"},
	} {
		if got := tc.name.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestParseDistinguishedName(t *testing.T) {
	for _, tc := range []struct {
		text string
		want Name
	}{
		{"", Name{}},
		{"C=US,CN=Example CA", exampleName},
		{"c=US, cn=Example CA", exampleName},
		{`CN=a\,b+O=\ lead\+trail\ `, Name{{
			{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.UTF8String, Value: []byte("a,b")},
			{Type: ObjectIdentifier{2, 5, 4, 10}, Tag: asn1.UTF8String, Value: []byte(" lead+trail ")},
		}}},
		{"CN=#1e0400680069", Name{{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.Tag(0x1e), Value: []byte{0, 'h', 0, 'i'}}}}},
		{"DC=example,OID.1.2.3.4=x", Name{
			{{Type: ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}, Tag: asn1.IA5String, Value: []byte("example")}},
			{{Type: ObjectIdentifier{1, 2, 3, 4}, Tag: asn1.UTF8String, Value: []byte("x")}},
		}},
		{`CN=caf\c3\a9`, Name{{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.UTF8String, Value: []byte("café")}}}},
		{"C=ü", Name{{{Type: ObjectIdentifier{2, 5, 4, 6}, Tag: asn1.UTF8String, Value: []byte("ü")}}}},
	} {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParseDistinguishedName(tc.text)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseDistinguishedName(%q) = %#v, want %#v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseDistinguishedNameErrors(t *testing.T) {
	for _, text := range []string{
		"CN",
		"XX=y",
		"CN=#zz",
		"CN=#0500ff",
		`CN=trailing\`,
	} {
		if _, err := ParseDistinguishedName(text); !errors.Is(err, ErrSyntax) {
			t.Errorf("ParseDistinguishedName(%q) error = %v, want Syntax", text, err)
		}
	}
}

func TestNameStringRoundTrip(t *testing.T) {
	name := Name{
		{{Type: ObjectIdentifier{2, 5, 4, 6}, Tag: asn1.PrintableString, Value: []byte("DE")}},
		{{Type: ObjectIdentifier{2, 5, 4, 10}, Tag: asn1.UTF8String, Value: []byte(`Quote "Inc"; <ok>`)}},
		{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.UTF8String, Value: []byte("line\nbreak")}},
		{{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.PrintableString, Value: []byte("Example CA")}},
		{{Type: ObjectIdentifier{2, 5, 4, 6}, Tag: asn1.UTF8String, Value: []byte("US")}},
		{{Type: ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}, Tag: asn1.UTF8String, Value: []byte("example")}},
		{{Type: ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}, Tag: asn1.IA5String, Value: []byte("ca@example.com")}},
	}
	got, err := ParseDistinguishedName(name.String())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, name) {
		t.Errorf("ParseDistinguishedName(%q) = %#v, want %#v", name.String(), got, name)
	}

	want, err := name.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	der, err := got.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(der, want) {
		t.Errorf("text round trip changed the encoding: %x, want %x", der, want)
	}
}

func TestNameEqual(t *testing.T) {
	if !Name(nil).Equal(Name{}) {
		t.Error("nil Name not equal to empty Name")
	}
	if !exampleName.Equal(Name{exampleName[0], exampleName[1]}) {
		t.Error("copy of exampleName not equal")
	}
	retagged := Name{exampleName[0], {{Type: ObjectIdentifier{2, 5, 4, 3}, Tag: asn1.PrintableString, Value: []byte("Example CA")}}}
	if exampleName.Equal(retagged) {
		t.Error("names differing in string type compare equal")
	}
	if exampleName.Equal(exampleName[:1]) {
		t.Error("names of different length compare equal")
	}
}
