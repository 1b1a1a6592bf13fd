package marshal

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/scriptlib/errors"
)

// Encoding is the native string encoding on the other side of the boundary.
type Encoding uint8

const (
	UTF8 Encoding = iota
	UTF16LE
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF16LE:
		return "utf-16le"
	default:
		return "unknown"
	}
}

// ParseEncoding resolves an encoding by name.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "utf-16le", "utf16le", "utf-16", "utf16":
		return UTF16LE, nil
	default:
		return 0, errors.InvalidEnum(errors.PhaseMarshal, name, "Encoding")
	}
}

func (e Encoding) codec() encoding.Encoding {
	if e == UTF16LE {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return nil
}

// EncodeString converts a host string to native bytes. The host string must
// be valid UTF-8.
func EncodeString(s string, enc Encoding) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, errors.InvalidUTF8(errors.PhaseMarshal, []byte(s))
	}
	c := enc.codec()
	if c == nil {
		return []byte(s), nil
	}
	b, err := c.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMarshal, errors.KindInvalidInput, err, "encode "+enc.String())
	}
	return b, nil
}

// DecodeString converts native bytes to a host string. Invalid sequences are
// rejected rather than replaced.
func DecodeString(b []byte, enc Encoding) (string, error) {
	c := enc.codec()
	if c == nil {
		if !utf8.Valid(b) {
			return "", errors.InvalidUTF8(errors.PhaseMarshal, b)
		}
		return string(b), nil
	}
	if len(b)%2 != 0 {
		return "", errors.OutOfBounds(errors.PhaseMarshal, "utf-16 string", len(b)+1, len(b))
	}
	if !validUTF16LE(b) {
		return "", errors.InvalidUTF8(errors.PhaseMarshal, b)
	}
	out, err := c.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.PhaseMarshal, errors.KindInvalidInput, err, "decode "+enc.String())
	}
	return string(out), nil
}

// validUTF16LE reports whether every surrogate in b is part of a pair. The
// x/text decoder would silently substitute U+FFFD otherwise.
func validUTF16LE(b []byte) bool {
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i]) | uint16(b[i+1])<<8
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+3 >= len(b) {
				return false
			}
			next := uint16(b[i+2]) | uint16(b[i+3])<<8
			if next < 0xDC00 || next >= 0xE000 {
				return false
			}
			i += 2
		case u >= 0xDC00 && u < 0xE000:
			return false
		}
	}
	return true
}
