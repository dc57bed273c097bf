package rpc

import (
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/bytecodec/internal/codec"
)

const errorDomain = "bytecodec"

// Reasons carried in the google.rpc.ErrorInfo detail of failed calls.
const (
	ReasonConfiguration  = "CONFIGURATION"
	ReasonCharset        = "CHARSET"
	ReasonMalformedInput = "MALFORMED_INPUT"
	ReasonInputTooLarge  = "INPUT_TOO_LARGE"
)

// statusFromError maps a codec error onto a gRPC status with an ErrorInfo
// detail. Errors outside the codec taxonomy become codes.Internal.
func statusFromError(err error) error {
	var (
		code   codes.Code
		reason string
		meta   = map[string]string{}
	)

	var (
		cfgErr       *codec.ConfigurationError
		charsetErr   *codec.CharsetError
		malformedErr *codec.MalformedInputError
	)
	switch {
	case errors.As(err, &cfgErr):
		code, reason = codes.InvalidArgument, ReasonConfiguration
		meta["side"] = string(cfgErr.Side)
		meta["field"] = cfgErr.Field
	case errors.As(err, &charsetErr):
		code, reason = codes.NotFound, ReasonCharset
		meta["side"] = string(charsetErr.Side)
		meta["charset"] = charsetErr.Name
	case errors.As(err, &malformedErr):
		code, reason = codes.InvalidArgument, ReasonMalformedInput
		meta["format"] = malformedErr.Format.String()
		if malformedErr.Offset >= 0 {
			meta["offset"] = strconv.FormatInt(malformedErr.Offset, 10)
		}
	default:
		return status.Error(codes.Internal, err.Error())
	}

	return withErrorInfo(status.New(code, err.Error()), reason, meta)
}

func withErrorInfo(st *status.Status, reason string, meta map[string]string) error {
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: meta,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorInfo extracts the ErrorInfo detail from an error returned by the
// Codec service.
func ErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info, true
		}
	}
	return nil, false
}
