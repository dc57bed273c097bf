package rpc

import (
	"encoding/base64"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/bytecodec/internal/codec"
)

// Field names of the Convert request and response structs.
const (
	fieldInput         = "input"
	fieldData          = "data_base64"
	fieldInputFormat   = "input_format"
	fieldInputCharset  = "input_charset"
	fieldOutputFormat  = "output_format"
	fieldOutputCharset = "output_charset"
	fieldOutputPath    = "output_path"
	fieldHexWidth      = "hex_width"
	fieldStrict        = "strict"
	fieldOffset        = "offset"

	fieldKind    = "kind"
	fieldFormat  = "format"
	fieldText    = "text"
	fieldBytes   = "bytes_base64"
	fieldDigests = "digests"
	fieldPath    = "path"
	fieldSummary = "summary"
)

var resultKinds = map[codec.ResultKind]string{
	codec.ResultText:   "text",
	codec.ResultBytes:  "bytes",
	codec.ResultDigest: "digest",
}

// EncodeRequest converts a codec request into its wire struct.
func EncodeRequest(req codec.Request) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldInput:        req.Input,
		fieldInputFormat:  formatName(req.InputFormat),
		fieldOutputFormat: formatName(req.OutputFormat),
		fieldHexWidth:     req.Escape.HexWidth.String(),
		fieldStrict:       req.Escape.Strict,
	}
	if len(req.Data) > 0 {
		fields[fieldData] = base64.StdEncoding.EncodeToString(req.Data)
	}
	if req.InputCharset != "" {
		fields[fieldInputCharset] = req.InputCharset
	}
	if req.OutputCharset != "" {
		fields[fieldOutputCharset] = req.OutputCharset
	}
	if req.OutputPath != "" {
		fields[fieldOutputPath] = req.OutputPath
	}
	if req.Offset != 0 {
		fields[fieldOffset] = req.Offset
	}
	return structpb.NewStruct(fields)
}

func formatName(f codec.Format) string {
	if !f.Valid() {
		return ""
	}
	return f.String()
}

// DecodeRequest converts a wire struct into a codec request. Unknown
// format names are reported as configuration errors.
func DecodeRequest(s *structpb.Struct) (codec.Request, error) {
	fields := s.GetFields()
	var req codec.Request

	req.Input = fields[fieldInput].GetStringValue()
	if data := fields[fieldData].GetStringValue(); data != "" {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return codec.Request{}, &codec.ConfigurationError{Side: codec.SideInput, Field: fieldData, Reason: err.Error()}
		}
		req.Data = decoded
	}

	var err error
	if req.InputFormat, err = parseOptionalFormat(fields[fieldInputFormat].GetStringValue()); err != nil {
		return codec.Request{}, &codec.ConfigurationError{Side: codec.SideInput, Field: "format", Reason: err.Error()}
	}
	if req.OutputFormat, err = parseOptionalFormat(fields[fieldOutputFormat].GetStringValue()); err != nil {
		return codec.Request{}, &codec.ConfigurationError{Side: codec.SideOutput, Field: "format", Reason: err.Error()}
	}
	req.InputCharset = fields[fieldInputCharset].GetStringValue()
	req.OutputCharset = fields[fieldOutputCharset].GetStringValue()
	req.OutputPath = fields[fieldOutputPath].GetStringValue()

	if req.Escape.HexWidth, err = codec.ParseHexWidth(fields[fieldHexWidth].GetStringValue()); err != nil {
		return codec.Request{}, &codec.ConfigurationError{Side: codec.SideInput, Field: fieldHexWidth, Reason: err.Error()}
	}
	req.Escape.Strict = fields[fieldStrict].GetBoolValue()

	if v, ok := fields[fieldOffset]; ok {
		n := v.GetNumberValue()
		if n < 0 || n >= math.MaxInt64 || n != math.Trunc(n) {
			return codec.Request{}, &codec.ConfigurationError{Side: codec.SideOutput, Field: fieldOffset, Reason: fmt.Sprintf("invalid offset %v", n)}
		}
		req.Offset = int64(n)
	}
	return req, nil
}

func parseOptionalFormat(name string) (codec.Format, error) {
	if name == "" {
		return 0, nil
	}
	return codec.ParseFormat(name)
}

// EncodeResult converts a conversion result into its wire struct.
func EncodeResult(res codec.Result) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldKind:   resultKinds[res.Kind],
		fieldFormat: formatName(res.Format),
		fieldBytes:  base64.StdEncoding.EncodeToString(res.Bytes),
	}
	switch res.Kind {
	case codec.ResultText:
		fields[fieldText] = res.Text
	case codec.ResultBytes:
		fields[fieldPath] = res.Path
	case codec.ResultDigest:
		digests := make([]any, 0, len(res.Digests))
		for _, d := range res.Digests {
			digests = append(digests, map[string]any{"algorithm": d.Algorithm, "hex": d.Hex})
		}
		fields[fieldDigests] = digests
		fields[fieldSummary] = codec.Summary(res.Digests)
	}
	return structpb.NewStruct(fields)
}

// DecodeResult converts a wire struct back into a conversion result.
func DecodeResult(s *structpb.Struct) (codec.Result, error) {
	fields := s.GetFields()
	var res codec.Result

	kindName := fields[fieldKind].GetStringValue()
	found := false
	for kind, name := range resultKinds {
		if name == kindName {
			res.Kind = kind
			found = true
			break
		}
	}
	if !found {
		return codec.Result{}, fmt.Errorf("unknown result kind %q", kindName)
	}

	format, err := parseOptionalFormat(fields[fieldFormat].GetStringValue())
	if err != nil {
		return codec.Result{}, err
	}
	res.Format = format

	data, err := base64.StdEncoding.DecodeString(fields[fieldBytes].GetStringValue())
	if err != nil {
		return codec.Result{}, fmt.Errorf("decode result bytes: %w", err)
	}
	res.Bytes = data
	res.Text = fields[fieldText].GetStringValue()
	res.Path = fields[fieldPath].GetStringValue()

	for _, v := range fields[fieldDigests].GetListValue().GetValues() {
		entry := v.GetStructValue().GetFields()
		res.Digests = append(res.Digests, codec.DigestEntry{
			Algorithm: entry["algorithm"].GetStringValue(),
			Hex:       entry["hex"].GetStringValue(),
		})
	}
	return res, nil
}

// EncodeFormats renders the capability table as a wire struct.
func EncodeFormats(infos []codec.FormatInfo) (*structpb.Struct, error) {
	list := make([]any, 0, len(infos))
	for _, info := range infos {
		list = append(list, map[string]any{
			"name":               info.Name,
			"code":               info.Code,
			"description":        info.Description,
			"decodable":          info.Decodable,
			"encodable":          info.Encodable,
			"charset_parametric": info.CharsetParametric,
		})
	}
	algorithms := make([]any, 0)
	for _, name := range codec.DigestAlgorithms() {
		algorithms = append(algorithms, name)
	}
	return structpb.NewStruct(map[string]any{
		"formats":           list,
		"digest_algorithms": algorithms,
	})
}

// DecodeFormats reverses EncodeFormats.
func DecodeFormats(s *structpb.Struct) []codec.FormatInfo {
	values := s.GetFields()["formats"].GetListValue().GetValues()
	out := make([]codec.FormatInfo, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		out = append(out, codec.FormatInfo{
			Name:              f["name"].GetStringValue(),
			Code:              f["code"].GetStringValue(),
			Description:       f["description"].GetStringValue(),
			Decodable:         f["decodable"].GetBoolValue(),
			Encodable:         f["encodable"].GetBoolValue(),
			CharsetParametric: f["charset_parametric"].GetBoolValue(),
		})
	}
	return out
}
