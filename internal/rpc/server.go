package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/bytecodec/internal/codec"
	"github.com/RowanDark/bytecodec/internal/logging"
)

// Defaults fill in request settings the caller left empty.
type Defaults struct {
	InputCharset  string
	OutputCharset string
	Escape        codec.EscapeOptions
	MaxInputBytes int64
}

// Server implements the Codec service.
type Server struct {
	logger   *slog.Logger
	audit    *logging.AuditLogger
	defaults Defaults
}

// Option customises a Server.
type Option func(*Server)

// WithLogger replaces the default JSON logger on stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger records every conversion on audit.
func WithAuditLogger(audit *logging.AuditLogger) Option {
	return func(s *Server) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// NewServer creates a new codec server.
func NewServer(defaults Defaults, opts ...Option) *Server {
	s := &Server{
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		audit:    logging.NewDiscardLogger("rpc"),
		defaults: defaults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert decodes the request struct, runs the conversion and encodes the
// result.
func (s *Server) Convert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	req, err := DecodeRequest(in)
	if err != nil {
		s.logger.Warn("Rejected malformed request", "error", err)
		return nil, statusFromError(err)
	}
	s.applyDefaults(&req)

	if err := s.checkSize(req); err != nil {
		s.logger.Warn("Rejected oversized request", "input_format", req.InputFormat.String(), "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	res, err := codec.Convert(req)
	if auditErr := s.audit.Emit(logging.ConversionEvent(req, res, err)); auditErr != nil {
		s.logger.Error("Failed to write audit event", "error", auditErr)
	}
	if err != nil {
		s.logger.Info("Conversion failed",
			"input_format", req.InputFormat.String(),
			"output_format", req.OutputFormat.String(),
			"error_kind", logging.ErrorKind(err),
			"error", err,
		)
		return nil, statusFromError(err)
	}

	out, err := EncodeResult(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	s.logger.Debug("Conversion complete",
		"input_format", req.InputFormat.String(),
		"output_format", req.OutputFormat.String(),
		"bytes", len(res.Bytes),
		"duration", time.Since(start),
	)
	return out, nil
}

// ListFormats returns the capability table of every format.
func (s *Server) ListFormats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := EncodeFormats(codec.Describe())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode formats: %v", err)
	}
	return out, nil
}

func (s *Server) applyDefaults(req *codec.Request) {
	if req.InputFormat.CharsetParametric() && req.InputCharset == "" {
		req.InputCharset = s.defaults.InputCharset
	}
	if req.OutputFormat.CharsetParametric() && req.OutputCharset == "" {
		req.OutputCharset = s.defaults.OutputCharset
	}
	if req.Escape == (codec.EscapeOptions{}) {
		req.Escape = s.defaults.Escape
	}
}

func (s *Server) checkSize(req codec.Request) error {
	limit := s.defaults.MaxInputBytes
	if limit <= 0 {
		return nil
	}
	size := int64(len(req.Input))
	if n := int64(len(req.Data)); n > size {
		size = n
	}
	if size <= limit {
		return nil
	}
	st := status.New(codes.InvalidArgument, fmt.Sprintf("input of %d bytes exceeds the %d byte limit", size, limit))
	return withErrorInfo(st, ReasonInputTooLarge, map[string]string{
		"limit": fmt.Sprint(limit),
		"size":  fmt.Sprint(size),
	})
}
