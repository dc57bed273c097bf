package logging

import (
	"errors"

	"github.com/RowanDark/bytecodec/internal/codec"
)

// ErrorKind names the class of a conversion error for logs and RPC details.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, codec.ErrConfiguration):
		return "configuration"
	case errors.Is(err, codec.ErrCharset):
		return "charset"
	case errors.Is(err, codec.ErrMalformedInput):
		return "malformed_input"
	default:
		return "internal"
	}
}

// ConversionEvent describes one Convert call. Only sizes are recorded.
func ConversionEvent(req codec.Request, res codec.Result, err error) AuditEvent {
	inputBytes := len(req.Input)
	if req.InputFormat == codec.FormatFile {
		inputBytes = len(req.Data)
	}
	meta := map[string]any{
		"input_format":  req.InputFormat.String(),
		"output_format": req.OutputFormat.String(),
		"input_bytes":   inputBytes,
	}
	if req.InputFormat.CharsetParametric() {
		meta["input_charset"] = req.InputCharset
	}
	if req.OutputFormat.CharsetParametric() {
		meta["output_charset"] = req.OutputCharset
	}

	if err != nil {
		meta["error_kind"] = ErrorKind(err)
		return AuditEvent{
			EventType: EventConversionFailed,
			Outcome:   OutcomeFailure,
			Metadata:  meta,
			Reason:    err.Error(),
		}
	}

	meta["decoded_bytes"] = len(res.Bytes)
	return AuditEvent{
		EventType: EventConversion,
		Outcome:   OutcomeSuccess,
		Metadata:  meta,
	}
}
