package codec

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mtraver/base91"
)

const mimeLineLength = 76

// EncodeBase16 renders data as upper-case hex digits.
func EncodeBase16(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// DecodeBase16 accepts hex digits of either case and nothing else.
func DecodeBase16(text string) ([]byte, error) {
	for i := 0; i < len(text); i++ {
		if !isHexDigit(rune(text[i])) {
			return nil, malformed(FormatBase16, int64(i), hex.InvalidByteError(text[i]))
		}
	}
	out, err := hex.DecodeString(text)
	if err != nil {
		return nil, malformed(FormatBase16, int64(len(text)), err)
	}
	return out, nil
}

// EncodeBase32 renders data with the RFC 4648 alphabet and padding.
func EncodeBase32(data []byte) string {
	return base32.StdEncoding.EncodeToString(data)
}

// DecodeBase32 accepts padded RFC 4648 text of either case. Line breaks
// are outside the alphabet.
func DecodeBase32(text string) ([]byte, error) {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return nil, malformed(FormatBase32, int64(i), base32.CorruptInputError(i))
	}
	out, err := base32.StdEncoding.DecodeString(strings.ToUpper(text))
	if err != nil {
		var corrupt base32.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, malformed(FormatBase32, int64(corrupt), err)
		}
		return nil, malformed(FormatBase32, -1, err)
	}
	return out, nil
}

// EncodeBase64 renders data as standard padded Base64 on one line.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 accepts standard padded Base64 on one line.
func DecodeBase64(text string) ([]byte, error) {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return nil, malformed(FormatBase64, int64(i), base64.CorruptInputError(i))
	}
	return decodeBase64(FormatBase64, text)
}

// EncodeBase64MIME renders data as Base64 broken into 76-character lines
// separated by CRLF.
func EncodeBase64MIME(data []byte) string {
	flat := base64.StdEncoding.EncodeToString(data)
	if len(flat) <= mimeLineLength {
		return flat
	}
	var b strings.Builder
	b.Grow(len(flat) + 2*(len(flat)/mimeLineLength))
	for len(flat) > mimeLineLength {
		b.WriteString(flat[:mimeLineLength])
		b.WriteString("\r\n")
		flat = flat[mimeLineLength:]
	}
	b.WriteString(flat)
	return b.String()
}

// DecodeBase64MIME accepts Base64 with arbitrary line breaks.
func DecodeBase64MIME(text string) ([]byte, error) {
	return decodeBase64(FormatBase64MIME, strings.Join(strings.Fields(text), ""))
}

func decodeBase64(f Format, text string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, malformed(f, int64(corrupt), err)
		}
		return nil, malformed(f, -1, err)
	}
	return out, nil
}

// EncodeBase91 renders data with the basE91 alphabet.
func EncodeBase91(data []byte) string {
	return base91.StdEncoding.EncodeToString(data)
}

// DecodeBase91 accepts basE91 text. Whitespace is ignored.
func DecodeBase91(text string) ([]byte, error) {
	out, err := base91.StdEncoding.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, malformed(FormatBase91, -1, err)
	}
	return out, nil
}
