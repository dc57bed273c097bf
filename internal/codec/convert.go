package codec

import (
	"strings"

	"github.com/RowanDark/bytecodec/internal/charset"
)

// Validate checks that the request names a legal combination of formats,
// charsets and paths. It does not resolve charsets.
func (r *Request) Validate() error {
	switch {
	case !r.InputFormat.Valid():
		return &ConfigurationError{Side: SideInput, Field: "format", Reason: "no input format selected"}
	case !r.InputFormat.Decodable():
		return &ConfigurationError{Side: SideInput, Field: "format", Reason: r.InputFormat.String() + " cannot be used as an input format"}
	case !r.OutputFormat.Valid():
		return &ConfigurationError{Side: SideOutput, Field: "format", Reason: "no output format selected"}
	case !r.OutputFormat.Encodable():
		return &ConfigurationError{Side: SideOutput, Field: "format", Reason: r.OutputFormat.String() + " cannot be used as an output format"}
	case r.InputFormat.CharsetParametric() && strings.TrimSpace(r.InputCharset) == "":
		return &ConfigurationError{Side: SideInput, Field: "charset", Reason: r.InputFormat.String() + " requires a charset"}
	case r.OutputFormat.CharsetParametric() && strings.TrimSpace(r.OutputCharset) == "":
		return &ConfigurationError{Side: SideOutput, Field: "charset", Reason: r.OutputFormat.String() + " requires a charset"}
	case r.OutputFormat == FormatFile && strings.TrimSpace(r.OutputPath) == "":
		return &ConfigurationError{Side: SideOutput, Field: "path", Reason: "file output requires a path"}
	}
	return nil
}

func resolveCharset(side Side, f Format, name string) (*charset.Charset, error) {
	if !f.CharsetParametric() {
		return nil, nil
	}
	cs, err := charset.Lookup(name)
	if err != nil {
		return nil, &CharsetError{Side: side, Name: strings.TrimSpace(name), Err: err}
	}
	return cs, nil
}

// Convert decodes the input side of req into bytes and renders them in
// the output format. Result.Bytes always carries the decoded bytes.
func Convert(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	inCS, err := resolveCharset(SideInput, req.InputFormat, req.InputCharset)
	if err != nil {
		return Result{}, err
	}
	outCS, err := resolveCharset(SideOutput, req.OutputFormat, req.OutputCharset)
	if err != nil {
		return Result{}, err
	}

	decode, ok := lookupDecoder(req.InputFormat)
	if !ok {
		return Result{}, &ConfigurationError{Side: SideInput, Field: "format", Reason: "no decoder registered for " + req.InputFormat.String()}
	}
	encode, ok := lookupEncoder(req.OutputFormat)
	if !ok {
		return Result{}, &ConfigurationError{Side: SideOutput, Field: "format", Reason: "no encoder registered for " + req.OutputFormat.String()}
	}

	data, err := decode(&req, inCS)
	if err != nil {
		return Result{}, err
	}
	result, err := encode(data, &req, outCS)
	if err != nil {
		return Result{}, err
	}
	result.Bytes = data
	return result, nil
}
