package acconfig

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when an archive ends before its declared
	// size or a string lacks its terminator.
	ErrTruncated = errors.New("archive truncated")

	// ErrRecordTooLarge is returned when the string table does not fit
	// in the record capacity.
	ErrRecordTooLarge = errors.New("archive record too large")

	// ErrInvalid is returned for configuration values out of range.
	ErrInvalid = errors.New("invalid configuration")
)

// ConfigError describes a malformed archive or an invalid field.
type ConfigError struct {
	Field  string // empty when the error concerns the record as a whole
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func invalid(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...), Err: ErrInvalid}
}
