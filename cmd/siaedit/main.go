// Command siaedit decodes and encodes X.509 Subject Information Access
// extension values.
//
//	siaedit decode [-in FILE] [-format auto|der|hex|base64|pem]
//	siaedit encode [-in FILE] [-out hex|base64|der|pem|cid] [-extension]
//	siaedit names
package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mcpherrinm/siaedit/internal/cidutil"
	"github.com/mcpherrinm/siaedit/sia"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "decode":
		return cmdDecode(args[1:], in, out, errOut)
	case "encode":
		return cmdEncode(args[1:], in, out, errOut)
	case "names":
		return cmdNames(out)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage:
  siaedit decode [-in FILE] [-format auto|der|hex|base64|pem] [-v]
  siaedit encode [-in FILE] [-out hex|base64|der|pem|cid] [-extension] [-v]
  siaedit names

decode reads a Subject Information Access extension value, or a certificate
carrying one, and prints the access descriptions as JSON. encode reads that
JSON and prints the DER extension value.
`)
}

func newLogger(errOut io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
}

func readInput(path string, in io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

func cmdDecode(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	inPath := fs.String("in", "", "input file (default stdin)")
	format := fs.String("format", "auto", "input format: auto, der, hex, base64 or pem")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	log := newLogger(errOut, *verbose)

	data, err := readInput(*inPath, in)
	if err != nil {
		log.Error("reading input", slog.Any("error", err))
		return 1
	}

	list, err := decodeInput(log, data, *format)
	if err != nil {
		log.Error("decoding", slog.Any("error", err))
		return 1
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "\t")
	if err := enc.Encode(list); err != nil {
		log.Error("writing JSON", slog.Any("error", err))
		return 1
	}
	return 0
}

// decodeInput turns the raw input into an access description list. A PEM
// CERTIFICATE block or a DER certificate is searched for the extension;
// anything else is taken to be the extension value itself.
func decodeInput(log *slog.Logger, data []byte, format string) (sia.SubjectInfoAccess, error) {
	var der []byte
	switch format {
	case "auto":
		der = autoDetect(log, data)
	case "der":
		der = data
	case "hex":
		b, err := hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return nil, fmt.Errorf("decoding hex: %w", err)
		}
		der = b
	case "base64":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return nil, fmt.Errorf("decoding base64: %w", err)
		}
		der = b
	case "pem":
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, errors.New("no PEM block found")
		}
		der = block.Bytes
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}

	// A certificate is a SEQUENCE whose first element is itself a SEQUENCE,
	// as is an extension value; try the certificate walk and fall back.
	exts, err := sia.ParseCertificateExtensions(der)
	if err != nil {
		log.Debug("input is not a certificate, reading it as an extension value", slog.Any("error", err))
	} else {
		log.Debug("input is a certificate", slog.Int("extensions", len(exts)))
		ext, ok := exts.Find(sia.OIDSubjectInfoAccess)
		if !ok {
			return nil, errors.New("certificate has no Subject Information Access extension")
		}
		if ext.Critical {
			log.Warn("Subject Information Access extension is marked critical", slog.String("citation", "RFC 5280 4.2.2.2"))
		}
		der = ext.Value
	}

	list, err := sia.ParseSubjectInfoAccess(der)
	if err != nil {
		return nil, err
	}
	if id, err := cidutil.Sum(der); err == nil {
		log.Debug("decoded extension value", slog.Int("bytes", len(der)), slog.String("cid", id.String()))
	}
	return list, nil
}

func autoDetect(log *slog.Logger, data []byte) []byte {
	if block, _ := pem.Decode(data); block != nil {
		log.Debug("detected PEM", slog.String("type", block.Type))
		return block.Bytes
	}
	text := strings.Join(strings.Fields(string(data)), "")
	if b, err := hex.DecodeString(text); err == nil && len(b) > 0 {
		log.Debug("detected hex")
		return b
	}
	if b, err := base64.StdEncoding.DecodeString(text); err == nil && len(b) > 0 {
		log.Debug("detected base64")
		return b
	}
	log.Debug("treating input as DER")
	return data
}

func cmdEncode(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	inPath := fs.String("in", "", "JSON input file (default stdin)")
	outFormat := fs.String("out", "hex", "output format: hex, base64, der, pem or cid")
	extension := fs.Bool("extension", false, "emit the complete Extension SEQUENCE rather than its value")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	log := newLogger(errOut, *verbose)

	data, err := readInput(*inPath, in)
	if err != nil {
		log.Error("reading input", slog.Any("error", err))
		return 1
	}

	var list sia.SubjectInfoAccess
	if err := json.Unmarshal(data, &list); err != nil {
		log.Error("parsing JSON", slog.Any("error", err))
		return 1
	}
	log.Debug("parsed access descriptions", slog.Int("count", len(list)))

	der, err := list.Marshal()
	if err == nil && *extension {
		var ext sia.Extension
		if ext, err = list.Extension(); err == nil {
			der, err = ext.Marshal()
		}
	}
	if err != nil {
		log.Error("encoding", slog.Any("error", err))
		return 1
	}

	switch *outFormat {
	case "hex":
		fmt.Fprintln(out, hex.EncodeToString(der))
	case "base64":
		fmt.Fprintln(out, base64.StdEncoding.EncodeToString(der))
	case "der":
		_, err = out.Write(der)
	case "pem":
		err = pem.Encode(out, &pem.Block{Type: "SUBJECT INFORMATION ACCESS", Bytes: der})
	case "cid":
		id, cidErr := cidutil.Sum(der)
		if cidErr == nil {
			fmt.Fprintln(out, id)
		}
		err = cidErr
	default:
		fmt.Fprintf(errOut, "unknown output format %q\n", *outFormat)
		return 2
	}
	if err != nil {
		log.Error("writing output", slog.Any("error", err))
		return 1
	}
	return 0
}

func cmdNames(out io.Writer) int {
	fmt.Fprintln(out, "access methods:")
	for _, oid := range []sia.ObjectIdentifier{
		sia.OIDAccessMethodOCSP,
		sia.OIDAccessMethodCAIssuers,
		sia.OIDAccessMethodTimeStamping,
		sia.OIDAccessMethodCARepository,
		sia.OIDAccessMethodRPKIManifest,
		sia.OIDAccessMethodSignedObject,
		sia.OIDAccessMethodRPKINotify,
	} {
		fmt.Fprintf(out, "  %-14s %s\n", sia.AccessMethodName(oid), oid)
	}
	fmt.Fprintln(out, "general name types:")
	for t := sia.TypeOtherName; t <= sia.TypeRegisteredID; t++ {
		fmt.Fprintf(out, "  [%d] %s\n", t, t)
	}
	return 0
}
