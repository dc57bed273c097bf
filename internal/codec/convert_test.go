package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRegistryIsExhaustive(t *testing.T) {
	for _, f := range Formats() {
		if f.Decodable() {
			if _, ok := lookupDecoder(f); !ok {
				t.Errorf("decodable format %s has no decoder", f)
			}
		}
		if f.Encodable() {
			if _, ok := lookupEncoder(f); !ok {
				t.Errorf("encodable format %s has no encoder", f)
			}
		}
	}

	for _, f := range registeredFormats(decoders) {
		if !f.Decodable() {
			t.Errorf("decoder registered for non-decodable format %s", f)
		}
	}
	for _, f := range registeredFormats(encoders) {
		if !f.Encodable() {
			t.Errorf("encoder registered for non-encodable format %s", f)
		}
	}
}

func TestRegisterRejectsDuplicatesAndIllegalSides(t *testing.T) {
	if err := registerDecoder(FormatBase64, binaryDecoder(DecodeBase64)); err == nil {
		t.Error("expected error when registering duplicate decoder")
	}
	if err := registerEncoder(FormatBase64, binaryEncoder(FormatBase64, EncodeBase64)); err == nil {
		t.Error("expected error when registering duplicate encoder")
	}
	if err := registerDecoder(FormatHash, binaryDecoder(DecodeBase64)); err == nil {
		t.Error("expected error when registering decoder for encode-only format")
	}
	if err := registerEncoder(FormatCEscaped, binaryEncoder(FormatCEscaped, EncodeBase64)); err == nil {
		t.Error("expected error when registering encoder for decode-only format")
	}
	if err := registerDecoder(FormatBase16, nil); err == nil {
		t.Error("expected error when registering nil decoder")
	}
}

func TestConvertExamples(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected string
		bytes    []byte
	}{
		{
			name:     "c escaped to base16",
			req:      Request{Input: `\x48\x69`, InputFormat: FormatCEscaped, InputCharset: "US-ASCII", OutputFormat: FormatBase16},
			expected: "4869",
			bytes:    []byte{0x48, 0x69},
		},
		{
			name:     "octal escape to string",
			req:      Request{Input: `\101`, InputFormat: FormatCEscaped, InputCharset: "US-ASCII", OutputFormat: FormatString, OutputCharset: "US-ASCII"},
			expected: "A",
			bytes:    []byte{0x41},
		},
		{
			name:     "mnemonic escape",
			req:      Request{Input: `Hi\n`, InputFormat: FormatCEscaped, InputCharset: "US-ASCII", OutputFormat: FormatLiteral},
			expected: "0x48, 0x69, 0x0A",
			bytes:    []byte("Hi\n"),
		},
		{
			name:     "base16 lower case to base64",
			req:      Request{Input: "4869", InputFormat: FormatBase16, OutputFormat: FormatBase64},
			expected: "SGk=",
			bytes:    []byte("Hi"),
		},
		{
			name:     "base64 to literal",
			req:      Request{Input: "SGk=", InputFormat: FormatBase64, OutputFormat: FormatLiteral},
			expected: "0x48, 0x69",
			bytes:    []byte("Hi"),
		},
		{
			name:     "empty base64 to literal",
			req:      Request{Input: "", InputFormat: FormatBase64, OutputFormat: FormatLiteral},
			expected: "",
			bytes:    []byte{},
		},
		{
			name:     "string to url",
			req:      Request{Input: "a b&c", InputFormat: FormatString, InputCharset: "UTF-8", OutputFormat: FormatURL, OutputCharset: "UTF-8"},
			expected: "a+b%26c",
			bytes:    []byte("a b&c"),
		},
		{
			name:     "quoted-printable to string across charsets",
			req:      Request{Input: "caf=E9", InputFormat: FormatQuotedPrintable, InputCharset: "ISO-8859-1", OutputFormat: FormatString, OutputCharset: "ISO-8859-1"},
			expected: "café",
			bytes:    []byte{'c', 'a', 'f', 0xE9},
		},
		{
			name:     "base32 to string",
			req:      Request{Input: "JBUQ====", InputFormat: FormatBase32, OutputFormat: FormatString, OutputCharset: "UTF-8"},
			expected: "Hi",
			bytes:    []byte("Hi"),
		},
		{
			name:     "string to mime",
			req:      Request{Input: "Hi", InputFormat: FormatString, InputCharset: "UTF-8", OutputFormat: FormatBase64MIME},
			expected: "SGk=",
			bytes:    []byte("Hi"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Convert(tt.req)
			if err != nil {
				t.Fatalf("convert failed: %v", err)
			}
			if result.Kind != ResultText {
				t.Errorf("expected text result, got %v", result.Kind)
			}
			if result.Text != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result.Text)
			}
			if !bytes.Equal(result.Bytes, tt.bytes) {
				t.Errorf("expected bytes % X, got % X", tt.bytes, result.Bytes)
			}
			if result.String() != tt.expected {
				t.Errorf("String(): expected %q, got %q", tt.expected, result.String())
			}
		})
	}
}

func TestConvertUnicodeEscapeNeedsLiteralDialect(t *testing.T) {
	input := string([]byte{'\\', 'u', '0', '0', '4', '8', 'i'})
	result, err := Convert(Request{
		Input:         input,
		InputFormat:   FormatEscaped,
		InputCharset:  "UTF-8",
		OutputFormat:  FormatString,
		OutputCharset: "UTF-8",
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if result.Text != "Hi" {
		t.Errorf("expected Hi, got %q", result.Text)
	}
}

func TestConvertHash(t *testing.T) {
	result, err := Convert(Request{Input: "", InputFormat: FormatBase64, OutputFormat: FormatHash})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if result.Kind != ResultDigest {
		t.Fatalf("expected digest result, got %v", result.Kind)
	}
	if len(result.Digests) != 5 {
		t.Fatalf("expected 5 digests, got %d", len(result.Digests))
	}
	if result.Digests[0].Hex != "00000000" {
		t.Errorf("unexpected CRC32 %s", result.Digests[0].Hex)
	}
	if result.Digests[1].Hex != "D41D8CD98F00B204E9800998ECF8427E" {
		t.Errorf("unexpected MD5 %s", result.Digests[1].Hex)
	}
	if !strings.HasPrefix(result.String(), "CRC32    = 00000000") {
		t.Errorf("unexpected summary %q", result.String())
	}
}

func TestConvertFile(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02}

	result, err := Convert(Request{Data: data, InputFormat: FormatFile, OutputFormat: FormatBase16})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if result.Text != "000102" {
		t.Errorf("expected 000102, got %q", result.Text)
	}

	result, err = Convert(Request{Input: "000102", InputFormat: FormatBase16, OutputFormat: FormatFile, OutputPath: "/tmp/out.bin"})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if result.Kind != ResultBytes {
		t.Fatalf("expected bytes result, got %v", result.Kind)
	}
	if result.Path != "/tmp/out.bin" || !bytes.Equal(result.Bytes, data) {
		t.Errorf("unexpected file result %+v", result)
	}
}

func TestConvertHexView(t *testing.T) {
	result, err := Convert(Request{Input: "Hi", InputFormat: FormatString, InputCharset: "UTF-8", OutputFormat: FormatHexView, Offset: 32})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if !strings.Contains(result.Text, "00000020 48 69") {
		t.Errorf("unexpected hex view:\n%s", result.Text)
	}
}

func TestConvertConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		side  Side
		field string
	}{
		{"missing input format", Request{OutputFormat: FormatBase16}, SideInput, "format"},
		{"hash as input", Request{InputFormat: FormatHash, OutputFormat: FormatBase16}, SideInput, "format"},
		{"literal as input", Request{InputFormat: FormatLiteral, OutputFormat: FormatBase16}, SideInput, "format"},
		{"missing output format", Request{InputFormat: FormatBase16}, SideOutput, "format"},
		{"c escaped as output", Request{InputFormat: FormatBase16, OutputFormat: FormatCEscaped}, SideOutput, "format"},
		{"missing input charset", Request{InputFormat: FormatString, OutputFormat: FormatBase16}, SideInput, "charset"},
		{"missing output charset", Request{InputFormat: FormatBase16, OutputFormat: FormatURL}, SideOutput, "charset"},
		{"missing file path", Request{InputFormat: FormatBase16, OutputFormat: FormatFile}, SideOutput, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.req)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			var cErr *ConfigurationError
			if !errors.As(err, &cErr) {
				t.Fatalf("expected *ConfigurationError, got %T", err)
			}
			if cErr.Side != tt.side || cErr.Field != tt.field {
				t.Errorf("expected %s %s, got %s %s", tt.side, tt.field, cErr.Side, cErr.Field)
			}
		})
	}
}

func TestConvertCharsetErrors(t *testing.T) {
	_, err := Convert(Request{Input: "x", InputFormat: FormatString, InputCharset: "no-such-charset", OutputFormat: FormatBase16})
	var csErr *CharsetError
	if !errors.As(err, &csErr) {
		t.Fatalf("expected *CharsetError, got %v", err)
	}
	if csErr.Side != SideInput || csErr.Name != "no-such-charset" {
		t.Errorf("unexpected charset error %+v", csErr)
	}

	_, err = Convert(Request{Input: "4869", InputFormat: FormatBase16, OutputFormat: FormatString, OutputCharset: "bogus"})
	if !errors.As(err, &csErr) || csErr.Side != SideOutput {
		t.Fatalf("expected output charset error, got %v", err)
	}

	_, err = Convert(Request{Input: "世界", InputFormat: FormatString, InputCharset: "ISO-8859-1", OutputFormat: FormatBase16})
	if !errors.Is(err, ErrCharset) {
		t.Errorf("expected unmappable text to be a charset error, got %v", err)
	}
}

func TestConvertMalformedInput(t *testing.T) {
	_, err := Convert(Request{Input: "not-valid-base64!!!", InputFormat: FormatBase64, OutputFormat: FormatBase16})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected malformed input error, got %v", err)
	}

	_, err = Convert(Request{
		Input:        `\q`,
		InputFormat:  FormatCEscaped,
		InputCharset: "UTF-8",
		OutputFormat: FormatBase16,
		Escape:       EscapeOptions{Strict: true},
	})
	if !errors.Is(err, ErrUndefinedEscape) {
		t.Errorf("expected undefined escape in strict mode, got %v", err)
	}
}

func TestConvertIgnoresCharsetOnNonParametricSide(t *testing.T) {
	result, err := Convert(Request{Input: "SGk=", InputFormat: FormatBase64, InputCharset: "bogus", OutputFormat: FormatBase16, OutputCharset: "bogus"})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if result.Text != "4869" {
		t.Errorf("expected 4869, got %q", result.Text)
	}
}

func TestConvertEncodeDecodeRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x7F, 0x80, 0xFF, 'a', 'Z'}
	for _, f := range []Format{FormatBase16, FormatBase32, FormatBase64, FormatBase64MIME, FormatBase91} {
		t.Run(f.String(), func(t *testing.T) {
			encoded, err := Convert(Request{Data: data, InputFormat: FormatFile, OutputFormat: f})
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := Convert(Request{Input: encoded.Text, InputFormat: f, OutputFormat: FormatBase16})
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if !bytes.Equal(decoded.Bytes, data) {
				t.Errorf("round trip mismatch: % X", decoded.Bytes)
			}
		})
	}
}
