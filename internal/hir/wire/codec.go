package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the encoding of a document.
type Format uint8

const (
	// FormatAuto sniffs the first byte: '{' is JSON, anything else msgpack.
	FormatAuto Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	}
	return "auto"
}

// ParseFormat maps a flag value to Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return FormatAuto, fmt.Errorf("unknown wire format %q (expected: auto|json|msgpack)", s)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".mp", ".msgpack":
		return FormatMsgpack
	}
	return FormatAuto
}

var (
	// ErrVersion reports a document outside the supported major version.
	ErrVersion = errors.New("unsupported wire version")

	supported = mustConstraint("^1")
)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckVersion validates the header version of a document.
func CheckVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: missing version", ErrVersion)
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrVersion, v, err)
	}
	if !supported.Check(ver) {
		return fmt.Errorf("%w: %s (want %s)", ErrVersion, ver, supported)
	}
	return nil
}

// Decode reads one document and checks its version.
func Decode(r io.Reader, f Format) (*Program, error) {
	br := bufio.NewReader(r)
	if f == FormatAuto {
		f = sniff(br)
	}
	var p Program
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(br)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(br)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode msgpack: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode: unsupported format %s", f)
	}
	if err := CheckVersion(p.Version); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeFile decodes the document at path; the format follows the extension.
func DecodeFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Decode(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Encode writes p; FormatAuto means JSON.
func Encode(w io.Writer, p *Program, f Format) error {
	switch f {
	case FormatAuto, FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(p)
	}
	return fmt.Errorf("encode: unsupported format %s", f)
}

func sniff(br *bufio.Reader) Format {
	for {
		b, err := br.Peek(1)
		if err != nil || len(b) == 0 {
			return FormatJSON
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			if b[0] == '{' {
				return FormatJSON
			}
			return FormatMsgpack
		}
		if _, err := br.Discard(1); err != nil {
			return FormatJSON
		}
	}
}
