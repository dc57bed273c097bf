// Package charset resolves character set names against the host registry
// and converts between decoded text and the raw bytes of a named encoding.
package charset

import (
	"strings"

	"github.com/pkg/errors"
	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrUnknown is returned when a name does not resolve to a supported encoding.
	ErrUnknown = errors.New("unknown charset")
	// ErrEmptyName is returned when no charset name was supplied.
	ErrEmptyName = errors.New("charset name is empty")
)

// Default is the charset used when callers do not configure one.
const Default = "UTF-8"

// Charset is a resolved, named text encoding. A Charset is immutable and
// safe for concurrent use; encoders and decoders are created per call.
type Charset struct {
	name string
	enc  encoding.Encoding
	// bare is enc without a byte order mark, or nil when enc writes none.
	bare encoding.Encoding
}

// UTF8 is the resolved UTF-8 charset.
var UTF8 = newCharset("UTF-8", unicode.UTF8)

func newCharset(name string, enc encoding.Encoding) *Charset {
	return &Charset{name: name, enc: enc, bare: withoutBOM(enc)}
}

// withoutBOM returns the variant of enc that writes no byte order mark.
func withoutBOM(enc encoding.Encoding) encoding.Encoding {
	switch enc {
	case unicode.UTF8BOM:
		return unicode.UTF8
	case unicode.UTF16(unicode.BigEndian, unicode.UseBOM), unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return nil
}

// Lookup resolves name to a Charset. IANA names and aliases are tried
// first, then the WHATWG labels understood by browsers (e.g. "utf8",
// "latin1", "sjis").
func Lookup(name string) (*Charset, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrEmptyName
	}

	if enc, err := ianaindex.IANA.Encoding(trimmed); err == nil && enc != nil {
		canonical, nameErr := ianaindex.IANA.Name(enc)
		if nameErr != nil || canonical == "" {
			canonical = strings.ToUpper(trimmed)
		}
		return newCharset(canonical, enc), nil
	}

	if enc, canonical := htmlcharset.Lookup(trimmed); enc != nil {
		if ianaName, err := ianaindex.IANA.Name(enc); err == nil && ianaName != "" {
			canonical = ianaName
		}
		return newCharset(canonical, enc), nil
	}

	return nil, errors.Wrapf(ErrUnknown, "%q", trimmed)
}

// MustLookup is like Lookup but panics when the name cannot be resolved.
func MustLookup(name string) *Charset {
	cs, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return cs
}

// Name returns the canonical name of the charset.
func (c *Charset) Name() string {
	return c.name
}

func (c *Charset) String() string {
	return c.name
}

// MaxBytesPerChar reports the worst-case number of bytes one character can
// expand to under this charset.
func (c *Charset) MaxBytesPerChar() int {
	if _, ok := c.enc.(*charmap.Charmap); ok {
		return 1
	}
	return 4
}

// Encode converts text into the bytes of this charset. Characters the
// charset cannot represent produce an error.
func (c *Charset) Encode(text string) ([]byte, error) {
	out, err := c.enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.Wrapf(err, "encode text as %s", c.name)
	}
	return out, nil
}

// AppendEncode appends the encoding of text to dst. A byte order mark is
// written only when dst is empty, so text encoded piecewise into one
// buffer carries at most one mark, at its start.
func (c *Charset) AppendEncode(dst []byte, text string) ([]byte, error) {
	if text == "" {
		return dst, nil
	}
	enc := c.enc
	if len(dst) > 0 && c.bare != nil {
		enc = c.bare
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return dst, errors.Wrapf(err, "encode text as %s", c.name)
	}
	return append(dst, encoded...), nil
}

// Decode converts bytes of this charset into text. Invalid sequences are
// replaced with U+FFFD.
func (c *Charset) Decode(data []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrapf(err, "decode bytes as %s", c.name)
	}
	return string(out), nil
}

// Normalize decodes data with this charset and encodes the resulting text
// again. For valid input the result equals data.
func (c *Charset) Normalize(data []byte) ([]byte, error) {
	text, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Encode(text)
}
