package nvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when a record does not start with the
	// expected identifier.
	ErrBadMagic = errors.New("identifier mismatch")

	// ErrOutOfRange is returned for transactions outside the region or
	// for a selector the back-end cannot address.
	ErrOutOfRange = errors.New("selector out of range")

	// ErrNotFound is returned when a key-addressed record is absent.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned when the back-end cannot be reached.
	ErrUnavailable = errors.New("storage back-end unavailable")
)

// StorageError describes a failed storage operation.
type StorageError struct {
	Op       string   // "load", "save", "open"
	Backend  string   // Store.Name()
	Selector Selector // what was addressed
	Err      error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Selector, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsNotFound reports whether err means no record was stored, either
// because the key is absent or because the flash region is erased.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadMagic)
}
