package codec

import (
	"fmt"
	"strings"

	"github.com/RowanDark/bytecodec/internal/charset"
)

// percentCodec implements form-style escaping with a configurable
// introducer: '%' for URL encoding and '=' for quoted-printable.
type percentCodec struct {
	format     Format
	introducer byte
}

var (
	urlCodec = percentCodec{format: FormatURL, introducer: '%'}
	qpCodec  = percentCodec{format: FormatQuotedPrintable, introducer: '='}
)

const upperHex = "0123456789ABCDEF"

func isUnreserved(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.', b == '-', b == '*', b == '_':
		return true
	}
	return false
}

// encode normalizes data through cs and escapes every byte that is not
// unreserved. Space becomes '+'.
func (c percentCodec) encode(data []byte, cs *charset.Charset) (string, error) {
	normalized, err := cs.Normalize(data)
	if err != nil {
		return "", &CharsetError{Side: SideOutput, Name: cs.Name(), Err: err}
	}
	var b strings.Builder
	b.Grow(len(normalized) * 3)
	for _, v := range normalized {
		switch {
		case isUnreserved(v):
			b.WriteByte(v)
		case v == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte(c.introducer)
			b.WriteByte(upperHex[v>>4])
			b.WriteByte(upperHex[v&0x0F])
		}
	}
	return b.String(), nil
}

// decode reverses encode. Characters outside escapes are encoded with cs;
// escapes become raw bytes. The result is normalized through cs.
func (c percentCodec) decode(text string, cs *charset.Charset) ([]byte, error) {
	out := make([]byte, 0, len(text))
	runStart := -1
	flush := func(end int) error {
		if runStart < 0 {
			return nil
		}
		var err error
		out, err = cs.AppendEncode(out, text[runStart:end])
		runStart = -1
		if err != nil {
			return &CharsetError{Side: SideInput, Name: cs.Name(), Err: err}
		}
		return nil
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case c.introducer:
			if err := flush(i); err != nil {
				return nil, err
			}
			if i+2 >= len(text) {
				return nil, malformed(c.format, int64(i), fmt.Errorf("%w: %q needs two hex digits", ErrTruncatedEscape, c.introducer))
			}
			v, ok := hexPair(text[i+1], text[i+2])
			if !ok {
				return nil, malformed(c.format, int64(i), fmt.Errorf("invalid escape %q", text[i:i+3]))
			}
			out = append(out, v)
			i += 2
		case '+':
			if err := flush(i); err != nil {
				return nil, err
			}
			out = append(out, ' ')
		default:
			if runStart < 0 {
				runStart = i
			}
		}
	}
	if err := flush(len(text)); err != nil {
		return nil, err
	}

	normalized, err := cs.Normalize(out)
	if err != nil {
		return nil, &CharsetError{Side: SideInput, Name: cs.Name(), Err: err}
	}
	return normalized, nil
}

// EncodeURL percent-encodes data after normalizing it through cs.
func EncodeURL(data []byte, cs *charset.Charset) (string, error) {
	return urlCodec.encode(data, cs)
}

// DecodeURL reverses EncodeURL.
func DecodeURL(text string, cs *charset.Charset) ([]byte, error) {
	return urlCodec.decode(text, cs)
}

// EncodeQuotedPrintable escapes data with '=' introducers.
func EncodeQuotedPrintable(data []byte, cs *charset.Charset) (string, error) {
	return qpCodec.encode(data, cs)
}

// DecodeQuotedPrintable reverses EncodeQuotedPrintable.
func DecodeQuotedPrintable(text string, cs *charset.Charset) ([]byte, error) {
	return qpCodec.decode(text, cs)
}
