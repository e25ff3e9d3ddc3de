// Package charset maps charset tokens to byte decoders.
//
// Exactly six lower-case tokens are recognized. Anything else, including
// the empty string and differently cased spellings, resolves to UTF-8.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Charset identifies a text encoding.
type Charset int

const (
	UTF8 Charset = iota
	UTF16
	UTF32
	ASCII
	ISO88591
	Windows1252
)

var tokens = map[string]Charset{
	"utf-8":        UTF8,
	"utf-16":       UTF16,
	"utf-32":       UTF32,
	"ascii":        ASCII,
	"iso-8859-1":   ISO88591,
	"windows-1252": Windows1252,
}

// Parse resolves a charset token. It never fails; unrecognized tokens
// yield UTF8.
func Parse(token string) Charset {
	if c, ok := tokens[token]; ok {
		return c
	}
	return UTF8
}

// String returns the canonical token.
func (c Charset) String() string {
	switch c {
	case UTF16:
		return "utf-16"
	case UTF32:
		return "utf-32"
	case ASCII:
		return "ascii"
	case ISO88591:
		return "iso-8859-1"
	case Windows1252:
		return "windows-1252"
	default:
		return "utf-8"
	}
}

// encoding returns the x/text encoding for c. ASCII has none.
// UTF-16 and UTF-32 default to little endian and honour a byte order mark.
func (c Charset) encoding() encoding.Encoding {
	switch c {
	case UTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case UTF32:
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM)
	case ISO88591:
		return charmap.ISO8859_1
	case Windows1252:
		return charmap.Windows1252
	default:
		return unicode.UTF8
	}
}

// Decode converts b to a string. Malformed input is decoded best effort
// with U+FFFD replacement characters; it never returns an error.
func (c Charset) Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if c == ASCII {
		return decodeASCII(b)
	}

	out, err := c.encoding().NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

// Decode parses token and decodes b with the result.
func Decode(b []byte, token string) string {
	return Parse(token).Decode(b)
}

// decodeASCII keeps 7-bit bytes and replaces everything else with '?'.
func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < utf8.RuneSelf {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('?')
		}
	}
	return sb.String()
}
