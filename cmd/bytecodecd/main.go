package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/RowanDark/bytecodec/internal/config"
	"github.com/RowanDark/bytecodec/internal/logging"
	"github.com/RowanDark/bytecodec/internal/rpc"
)

const shutdownGrace = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	addr := flag.String("addr", cfg.ServerAddr, "address for the gRPC server to listen on")
	auditPath := flag.String("audit-log", cfg.AuditLog, "append a JSON audit event per conversion to this file")
	flag.Parse()

	cfg.ServerAddr = *addr
	cfg.AuditLog = *auditPath
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	audit, err := openAudit(cfg.AuditLog)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			logger.Warn("Failed to close audit log", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ServerAddr, err)
	}
	defer func() {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("Failed to close listener", "error", err)
		}
	}()

	return serve(ctx, lis, cfg, logger, audit)
}

func openAudit(path string) (*logging.AuditLogger, error) {
	if path == "" {
		return logging.NewDiscardLogger("bytecodecd"), nil
	}
	return logging.NewAuditLogger("bytecodecd", logging.WithoutStdout(), logging.WithFile(path))
}

func serve(ctx context.Context, lis net.Listener, cfg config.Config, logger *slog.Logger, audit *logging.AuditLogger) error {
	srv := grpc.NewServer()
	codecServer := rpc.NewServer(rpc.Defaults{
		InputCharset:  cfg.Charsets.Input,
		OutputCharset: cfg.Charsets.Output,
		Escape:        cfg.EscapeOptions(),
		MaxInputBytes: cfg.MaxInputBytes,
	}, rpc.WithLogger(logger), rpc.WithAuditLogger(audit.WithComponent("rpc")))
	rpc.RegisterCodecServer(srv, codecServer)

	lifecycle(logger, audit, "started", lis.Addr().String())

	// Stop the gRPC server once the provided context is cancelled.
	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(shutdownGrace):
			srv.Stop()
		}
	}()

	err := srv.Serve(lis)
	lifecycle(logger, audit, "stopped", lis.Addr().String())
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func lifecycle(logger *slog.Logger, audit *logging.AuditLogger, state, addr string) {
	logger.Info("Codec server "+state, "addr", addr)
	if err := audit.Emit(logging.AuditEvent{
		EventType: logging.EventServerLifecycle,
		Outcome:   logging.OutcomeInfo,
		Metadata:  map[string]any{"state": state, "addr": addr},
	}); err != nil {
		logger.Warn("Failed to write audit event", "error", err)
	}
}
