package codec

import (
	"fmt"
	"strings"
)

// Format identifies one supported representation of a byte sequence.
type Format int

const (
	FormatBase16 Format = iota + 1
	FormatBase32
	FormatBase64
	FormatBase64MIME
	FormatBase91
	FormatCEscaped
	FormatEscaped
	FormatString
	FormatQuotedPrintable
	FormatURL
	FormatFile
	FormatHash
	FormatLiteral
	FormatHexView
)

type capability uint8

const (
	capDecode capability = 1 << iota
	capEncode
	capCharset
)

type formatInfo struct {
	name        string
	code        byte
	caps        capability
	description string
}

// formats is indexed by Format. Every Format constant must have an entry.
var formats = [...]formatInfo{
	FormatBase16:          {"base16", '1', capDecode | capEncode, "Base16 (Hex)"},
	FormatBase32:          {"base32", '3', capDecode | capEncode, "Base32"},
	FormatBase64:          {"base64", '6', capDecode | capEncode, "Base64"},
	FormatBase64MIME:      {"base64-mime", 'M', capDecode | capEncode, "Base64 with RFC 2045 line breaks"},
	FormatBase91:          {"base91", '9', capDecode | capEncode, "basE91"},
	FormatCEscaped:        {"c-escaped", 'C', capDecode | capCharset, `C escaped string (e.g. \x22Hi\x22)`},
	FormatEscaped:         {"escaped", 'E', capDecode | capCharset, `Java escaped string (e.g. \u0022Hi\u0022)`},
	FormatString:          {"string", 'S', capDecode | capEncode | capCharset, "String"},
	FormatQuotedPrintable: {"quoted-printable", 'Q', capDecode | capEncode | capCharset, "Quoted-printable (e.g. =22Hi=22)"},
	FormatURL:             {"url", 'U', capDecode | capEncode | capCharset, "URL encoded string (e.g. %22Hi%22)"},
	FormatFile:            {"file", 'F', capDecode | capEncode, "File path"},
	FormatHash:            {"hash", 'H', capEncode, "Hash (CRC32, MD5, SHA-1, SHA-256, SHA3-256)"},
	FormatLiteral:         {"literal", 'J', capEncode, "Java expression (e.g. 0x48, 0x69)"},
	FormatHexView:         {"hexview", 'V', capEncode, "Hex view with offsets and ASCII column"},
}

// Formats returns every supported format in menu order.
func Formats() []Format {
	out := make([]Format, 0, len(formats)-1)
	for f := FormatBase16; int(f) < len(formats); f++ {
		out = append(out, f)
	}
	return out
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f > 0 && int(f) < len(formats)
}

func (f Format) info() formatInfo {
	if !f.Valid() {
		return formatInfo{}
	}
	return formats[f]
}

func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("format(%d)", int(f))
	}
	return formats[f].name
}

// Code returns the single-character menu code of the format.
func (f Format) Code() byte { return f.info().code }

// Description returns a human-readable description of the format.
func (f Format) Description() string { return f.info().description }

// Decodable reports whether f may be used as an input format.
func (f Format) Decodable() bool { return f.info().caps&capDecode != 0 }

// Encodable reports whether f may be used as an output format.
func (f Format) Encodable() bool { return f.info().caps&capEncode != 0 }

// CharsetParametric reports whether f needs a character set.
func (f Format) CharsetParametric() bool { return f.info().caps&capCharset != 0 }

// ParseFormat accepts a format name ("base64") or its menu code ("6"),
// case-insensitively.
func ParseFormat(s string) (Format, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("format is empty")
	}
	for _, f := range Formats() {
		info := formats[f]
		if strings.EqualFold(trimmed, info.name) {
			return f, nil
		}
		if len(trimmed) == 1 && strings.EqualFold(trimmed, string(info.code)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q", trimmed)
}

// MarshalText encodes the format as its name.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText accepts the forms understood by ParseFormat.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FormatInfo describes a format and its capabilities.
type FormatInfo struct {
	Name              string `json:"name"`
	Code              string `json:"code"`
	Description       string `json:"description"`
	Decodable         bool   `json:"decodable"`
	Encodable         bool   `json:"encodable"`
	CharsetParametric bool   `json:"charset_parametric"`
}

// Describe returns the capability table for every format.
func Describe() []FormatInfo {
	all := Formats()
	out := make([]FormatInfo, 0, len(all))
	for _, f := range all {
		out = append(out, FormatInfo{
			Name:              f.String(),
			Code:              string(f.Code()),
			Description:       f.Description(),
			Decodable:         f.Decodable(),
			Encodable:         f.Encodable(),
			CharsetParametric: f.CharsetParametric(),
		})
	}
	return out
}

// Side names the half of a conversion a setting belongs to.
type Side string

const (
	SideInput  Side = "input"
	SideOutput Side = "output"
)

// Request is one conversion. Input carries the text value for textual
// formats; Data carries the bytes the caller read when InputFormat is
// FormatFile.
type Request struct {
	Input         string
	Data          []byte
	InputFormat   Format
	InputCharset  string
	OutputFormat  Format
	OutputCharset string
	// OutputPath is the destination reported back for FormatFile output.
	OutputPath string
	Escape     EscapeOptions
	// Offset labels the first row of a hex view.
	Offset int64
}

// ResultKind tells callers which Result field carries the output.
type ResultKind int

const (
	ResultText ResultKind = iota
	ResultBytes
	ResultDigest
)

// Result is the output of Convert. Bytes always holds the canonical byte
// sequence produced by the decode step.
type Result struct {
	Kind    ResultKind
	Format  Format
	Text    string
	Bytes   []byte
	Digests []DigestEntry
	// Path is set for FormatFile output; the caller writes Bytes there.
	Path string
}

// String renders the result the way the command line prints it.
func (r Result) String() string {
	switch r.Kind {
	case ResultDigest:
		return Summary(r.Digests)
	case ResultBytes:
		return r.Path
	default:
		return r.Text
	}
}
