package codec

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RowanDark/bytecodec/internal/charset"
)

// decodeFunc turns the input side of a request into bytes. cs is nil for
// formats that are not charset-parametric.
type decodeFunc func(req *Request, cs *charset.Charset) ([]byte, error)

// encodeFunc renders bytes for the output side of a request.
type encodeFunc func(data []byte, req *Request, cs *charset.Charset) (Result, error)

// Per-format codec tables
var (
	decoders   = make(map[Format]decodeFunc)
	encoders   = make(map[Format]encodeFunc)
	registryMu sync.RWMutex
)

func registerDecoder(f Format, fn decodeFunc) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil decoder for %s", f)
	}
	if !f.Decodable() {
		return fmt.Errorf("format %s is not decodable", f)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := decoders[f]; exists {
		return fmt.Errorf("decoder for %s is already registered", f)
	}
	decoders[f] = fn
	return nil
}

func registerEncoder(f Format, fn encodeFunc) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil encoder for %s", f)
	}
	if !f.Encodable() {
		return fmt.Errorf("format %s is not encodable", f)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := encoders[f]; exists {
		return fmt.Errorf("encoder for %s is already registered", f)
	}
	encoders[f] = fn
	return nil
}

func lookupDecoder(f Format) (decodeFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := decoders[f]
	return fn, ok
}

func lookupEncoder(f Format) (encodeFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := encoders[f]
	return fn, ok
}

// registeredFormats returns the formats present in table, sorted.
func registeredFormats[T any](table map[Format]T) []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Format, 0, len(table))
	for f := range table {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func textResult(f Format) func(string, error) (Result, error) {
	return func(text string, err error) (Result, error) {
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ResultText, Format: f, Text: text}, nil
	}
}

func binaryEncoder(f Format, enc func([]byte) string) encodeFunc {
	return func(data []byte, _ *Request, _ *charset.Charset) (Result, error) {
		return Result{Kind: ResultText, Format: f, Text: enc(data)}, nil
	}
}

func binaryDecoder(dec func(string) ([]byte, error)) decodeFunc {
	return func(req *Request, _ *charset.Charset) ([]byte, error) {
		return dec(req.Input)
	}
}

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(registerDecoder(FormatBase16, binaryDecoder(DecodeBase16)))
	must(registerDecoder(FormatBase32, binaryDecoder(DecodeBase32)))
	must(registerDecoder(FormatBase64, binaryDecoder(DecodeBase64)))
	must(registerDecoder(FormatBase64MIME, binaryDecoder(DecodeBase64MIME)))
	must(registerDecoder(FormatBase91, binaryDecoder(DecodeBase91)))
	must(registerDecoder(FormatCEscaped, func(req *Request, cs *charset.Charset) ([]byte, error) {
		return DecodeEscaped(req.Input, cs, DialectC, req.Escape)
	}))
	must(registerDecoder(FormatEscaped, func(req *Request, cs *charset.Charset) ([]byte, error) {
		return DecodeEscaped(req.Input, cs, DialectLiteral, req.Escape)
	}))
	must(registerDecoder(FormatString, func(req *Request, cs *charset.Charset) ([]byte, error) {
		out, err := cs.Encode(req.Input)
		if err != nil {
			return nil, &CharsetError{Side: SideInput, Name: cs.Name(), Err: err}
		}
		return out, nil
	}))
	must(registerDecoder(FormatQuotedPrintable, func(req *Request, cs *charset.Charset) ([]byte, error) {
		return DecodeQuotedPrintable(req.Input, cs)
	}))
	must(registerDecoder(FormatURL, func(req *Request, cs *charset.Charset) ([]byte, error) {
		return DecodeURL(req.Input, cs)
	}))
	must(registerDecoder(FormatFile, func(req *Request, _ *charset.Charset) ([]byte, error) {
		out := make([]byte, len(req.Data))
		copy(out, req.Data)
		return out, nil
	}))

	must(registerEncoder(FormatBase16, binaryEncoder(FormatBase16, EncodeBase16)))
	must(registerEncoder(FormatBase32, binaryEncoder(FormatBase32, EncodeBase32)))
	must(registerEncoder(FormatBase64, binaryEncoder(FormatBase64, EncodeBase64)))
	must(registerEncoder(FormatBase64MIME, binaryEncoder(FormatBase64MIME, EncodeBase64MIME)))
	must(registerEncoder(FormatBase91, binaryEncoder(FormatBase91, EncodeBase91)))
	must(registerEncoder(FormatLiteral, binaryEncoder(FormatLiteral, ToLiteral)))
	must(registerEncoder(FormatString, func(data []byte, _ *Request, cs *charset.Charset) (Result, error) {
		text, err := cs.Decode(data)
		if err != nil {
			return Result{}, &CharsetError{Side: SideOutput, Name: cs.Name(), Err: err}
		}
		return Result{Kind: ResultText, Format: FormatString, Text: text}, nil
	}))
	must(registerEncoder(FormatQuotedPrintable, func(data []byte, _ *Request, cs *charset.Charset) (Result, error) {
		return textResult(FormatQuotedPrintable)(EncodeQuotedPrintable(data, cs))
	}))
	must(registerEncoder(FormatURL, func(data []byte, _ *Request, cs *charset.Charset) (Result, error) {
		return textResult(FormatURL)(EncodeURL(data, cs))
	}))
	must(registerEncoder(FormatFile, func(data []byte, req *Request, _ *charset.Charset) (Result, error) {
		return Result{Kind: ResultBytes, Format: FormatFile, Path: req.OutputPath}, nil
	}))
	must(registerEncoder(FormatHash, func(data []byte, _ *Request, _ *charset.Charset) (Result, error) {
		return Result{Kind: ResultDigest, Format: FormatHash, Digests: Digest(data)}, nil
	}))
	must(registerEncoder(FormatHexView, func(data []byte, req *Request, _ *charset.Charset) (Result, error) {
		return Result{Kind: ResultText, Format: FormatHexView, Text: HexView(data, req.Offset)}, nil
	}))
}
