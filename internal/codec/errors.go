package codec

import (
	"errors"
	"fmt"
)

// Sentinel kinds matched with errors.Is against the typed errors below.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrCharset        = errors.New("charset error")
	ErrMalformedInput = errors.New("malformed input")
)

// Causes reported inside MalformedInputError.
var (
	ErrUndefinedEscape  = errors.New("undefined escape sequence")
	ErrTruncatedEscape  = errors.New("truncated escape sequence")
	ErrInvalidCodePoint = errors.New("invalid code point")
)

// ConfigurationError reports an illegal format or charset combination.
type ConfigurationError struct {
	Side   Side
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Side, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// CharsetError reports a charset that is missing, unknown to the host
// registry, or unable to represent the text it was given.
type CharsetError struct {
	Side Side
	Name string
	Err  error
}

func (e *CharsetError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s charset: %v", e.Side, e.Err)
	}
	return fmt.Sprintf("%s charset %q: %v", e.Side, e.Name, e.Err)
}

func (e *CharsetError) Unwrap() error { return e.Err }

func (e *CharsetError) Is(target error) bool {
	return target == ErrCharset
}

// MalformedInputError reports text outside the alphabet or grammar of the
// selected input format. Offset is the byte offset of the problem, or -1
// when the underlying decoder does not report one.
type MalformedInputError struct {
	Format Format
	Offset int64
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("malformed %s input: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("malformed %s input at offset %d: %v", e.Format, e.Offset, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func malformed(f Format, offset int64, err error) error {
	return &MalformedInputError{Format: f, Offset: offset, Err: err}
}
