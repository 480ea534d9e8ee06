package credential

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no stored credential matches. For Seek
// this is a normal outcome.
var ErrNotFound = errors.New("no matching credential")

// CapacityError reports that inserting a credential evicted another.
// The insert itself succeeded.
type CapacityError struct {
	Capacity int
	Evicted  Credential
}

// Error implements the error interface
func (e *CapacityError) Error() string {
	return fmt.Sprintf("credential store full (%d slots): evicted %q recency %d",
		e.Capacity, e.Evicted.SSID, e.Evicted.Recency)
}

// IsCapacityError reports whether err is or wraps a *CapacityError.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
