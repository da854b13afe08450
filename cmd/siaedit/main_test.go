package main

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

const golden = "302a302806082b06010505073005861c687474703a2f2f63612e6578616d706c652e636f6d2f63612e63726c"

const goldenJSON = `[
	{"accessMethod": "1.3.6.1.5.5.7.48.5", "accessMethodName": "caRepository",
	 "accessLocation": {"type": "uniformResourceIdentifier", "value": "http://ca.example.com/ca.crl"}}
]`

func runCommand(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(input), &out, &errOut)
	return code, out.String(), errOut.String()
}

func sameJSON(t *testing.T, got, want string) bool {
	t.Helper()
	var g, w interface{}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, got)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatal(err)
	}
	return reflect.DeepEqual(g, w)
}

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		args  []string
	}{
		{"auto hex", golden + "\n", nil},
		{"hex", "302a3028 06082b0601050507 3005861c687474703a2f2f63612e6578616d706c652e636f6d2f63612e63726c", []string{"-format", "hex"}},
		{"auto base64", "MCowKAYIKwYBBQUHMAWGHGh0dHA6Ly9jYS5leGFtcGxlLmNvbS9jYS5jcmw=", nil},
		{"pem", "-----BEGIN SUBJECT INFORMATION ACCESS-----\nMCowKAYIKwYBBQUHMAWGHGh0dHA6Ly9jYS5leGFtcGxlLmNvbS9jYS5jcmw=\n-----END SUBJECT INFORMATION ACCESS-----\n", []string{"-format", "pem"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := runCommand(t, tc.input, append([]string{"decode"}, tc.args...)...)
			if code != 0 {
				t.Fatalf("exit %d: %s", code, errOut)
			}
			if !sameJSON(t, out, goldenJSON) {
				t.Errorf("decode output does not match:\n%s", out)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, input := range []string{
		"3000",
		"302a302806082b06010505073005861c687474703a2f2f63612e6578616d706c652e636f6d2f63612e6372",
		golden + "00",
	} {
		code, out, errOut := runCommand(t, input, "decode", "-format", "hex")
		if code != 1 {
			t.Errorf("decode(%s) exit = %d, want 1", input, code)
		}
		if out != "" {
			t.Errorf("decode(%s) wrote output %q", input, out)
		}
		if !strings.Contains(errOut, "MalformedEncoding") {
			t.Errorf("decode(%s) log = %q, want a MalformedEncoding error", input, errOut)
		}
	}
}

func TestEncode(t *testing.T) {
	code, out, errOut := runCommand(t, goldenJSON, "encode")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != golden {
		t.Errorf("encode = %s, want %s", out, golden)
	}

	code, out, errOut = runCommand(t, goldenJSON, "encode", "-extension")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if want := "303806082b0601050507010b042c" + golden; strings.TrimSpace(out) != want {
		t.Errorf("encode -extension = %s, want %s", out, want)
	}
}

func TestEncodeCID(t *testing.T) {
	code, out, errOut := runCommand(t, goldenJSON, "encode", "-out", "cid")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if want := "bafkreibiuuxnmiu2lwodt7y5t4fsplhd22n6nfd367reg4xbockuzkugp4"; strings.TrimSpace(out) != want {
		t.Errorf("encode -out cid = %s, want %s", out, want)
	}
}

func TestEncodeAccessMethodName(t *testing.T) {
	input := `[{"accessMethod": "caRepository", "accessLocation": {"type": "uri", "value": "http://ca.example.com/ca.crl"}}]`
	code, out, errOut := runCommand(t, input, "encode")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != golden {
		t.Errorf("encode = %s, want %s", out, golden)
	}
}

func TestEncodeErrors(t *testing.T) {
	for _, input := range []string{
		`[]`,
		`not json`,
		`[{"accessMethod": "1.2.3", "accessLocation": {"type": "telephone", "value": "555"}}]`,
	} {
		if code, _, _ := runCommand(t, input, "encode"); code != 1 {
			t.Errorf("encode(%s) exit = %d, want 1", input, code)
		}
	}
	if code, _, _ := runCommand(t, goldenJSON, "encode", "-out", "xml"); code != 2 {
		t.Errorf("encode -out xml exit = %d, want 2", code)
	}
}

func TestUsage(t *testing.T) {
	for _, tc := range []struct {
		args []string
		code int
	}{
		{nil, 2},
		{[]string{"frobnicate"}, 2},
		{[]string{"decode", "-nope"}, 2},
		{[]string{"help"}, 0},
	} {
		if code, _, _ := runCommand(t, "", tc.args...); code != tc.code {
			t.Errorf("run(%q) exit = %d, want %d", tc.args, code, tc.code)
		}
	}
}

func TestNames(t *testing.T) {
	code, out, _ := runCommand(t, "", "names")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, want := range []string{"caRepository", "1.3.6.1.5.5.7.48.5", "[6] uniformResourceIdentifier", "[8] registeredID"} {
		if !strings.Contains(out, want) {
			t.Errorf("names output missing %q:\n%s", want, out)
		}
	}
}

func TestDecodeLogsCertificateFallback(t *testing.T) {
	code, _, errOut := runCommand(t, golden, "decode", "-v")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "input is not a certificate") || !strings.Contains(errOut, "MalformedEncoding") {
		t.Errorf("debug log does not explain the certificate fallback:\n%s", errOut)
	}

	code, _, errOut = runCommand(t, golden, "decode")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if strings.Contains(errOut, "input is not a certificate") {
		t.Errorf("fallback logged without -v:\n%s", errOut)
	}
}
