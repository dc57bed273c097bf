// Package logging records conversions as JSON lines for later audit.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	EventConversion       EventType = "conversion"
	EventConversionFailed EventType = "conversion_failed"
	EventRecipeApplied    EventType = "recipe_applied"
	EventServerLifecycle  EventType = "server_lifecycle"
)

type Outcome string

const (
	OutcomeInfo    Outcome = "info"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// AuditEvent is one line of the audit log. Events describe the shape of a
// conversion (formats, charsets, sizes) and never carry the converted data.
type AuditEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	EventType EventType      `json:"event_type"`
	Outcome   Outcome        `json:"outcome,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Option selects where an AuditLogger writes. Stdout is used unless
// WithoutStdout is given.
type Option func(*sinkOptions) error

type sinkOptions struct {
	stdout bool
	extra  []io.Writer
	files  []*os.File
	now    func() time.Time
}

func WithWriter(w io.Writer) Option {
	return func(o *sinkOptions) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		o.extra = append(o.extra, w)
		return nil
	}
}

// WithFile appends events to path, creating it with owner-only permissions.
func WithFile(path string) Option {
	return func(o *sinkOptions) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		o.files = append(o.files, f)
		return nil
	}
}

func WithoutStdout() Option {
	return func(o *sinkOptions) error {
		o.stdout = false
		return nil
	}
}

// WithClock replaces time.Now for events emitted without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *sinkOptions) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

func (o *sinkOptions) writers() []io.Writer {
	var out []io.Writer
	if o.stdout {
		out = append(out, os.Stdout)
	}
	out = append(out, o.extra...)
	for _, f := range o.files {
		out = append(out, f)
	}
	return out
}

func (o *sinkOptions) closeFiles() {
	for _, f := range o.files {
		_ = f.Close()
	}
}

// auditSink is shared by a logger and every WithComponent child.
type auditSink struct {
	mu    sync.Mutex
	w     io.Writer
	files []*os.File
	now   func() time.Time
}

// AuditLogger writes AuditEvents as JSON lines. It is safe for concurrent use.
type AuditLogger struct {
	component string
	sink      *auditSink
	root      bool
}

func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	o := &sinkOptions{stdout: true, now: time.Now}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.closeFiles()
			return nil, err
		}
	}
	writers := o.writers()
	if len(writers) == 0 {
		return nil, errors.New("no writers configured for audit logger")
	}
	return &AuditLogger{
		component: component,
		sink: &auditSink{
			w:     io.MultiWriter(writers...),
			files: o.files,
			now:   o.now,
		},
		root: true,
	}, nil
}

func MustNewAuditLogger(component string, opts ...Option) *AuditLogger {
	logger, err := NewAuditLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// NewDiscardLogger returns a logger that drops every event.
func NewDiscardLogger(component string) *AuditLogger {
	return MustNewAuditLogger(component, WithoutStdout(), WithWriter(io.Discard))
}

// Close releases files opened by WithFile. Children created by
// WithComponent never close the shared sink.
func (l *AuditLogger) Close() error {
	if l == nil || l.sink == nil || !l.root {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	var errs []error
	for _, f := range l.sink.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.sink.files = nil
	return errors.Join(errs...)
}

// Emit writes event, filling in the ID, timestamp and component when unset.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil || l.sink == nil {
		return errors.New("nil audit logger")
	}
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.sink.now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Component == "" {
		event.Component = l.component
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	line = append(line, '\n')

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, err = l.sink.w.Write(line)
	return err
}

// WithComponent returns a logger that shares l's destinations but stamps
// events with component.
func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil || l.sink == nil {
		return nil
	}
	return &AuditLogger{component: component, sink: l.sink}
}
