package portal

import (
	"errors"
	"fmt"
)

// ConnectErrorKind classifies a failed connection attempt.
type ConnectErrorKind int

const (
	// ConnectTimeout means the radio did not associate within BeginTimeout.
	ConnectTimeout ConnectErrorKind = iota
	// ConnectRejected means the radio reported failure, usually a bad
	// passphrase.
	ConnectRejected
	// ConnectNotFound means no stored credential matched the scan.
	ConnectNotFound
)

func (k ConnectErrorKind) String() string {
	switch k {
	case ConnectTimeout:
		return "timeout"
	case ConnectRejected:
		return "rejected"
	case ConnectNotFound:
		return "not found"
	default:
		return fmt.Sprintf("ConnectErrorKind(%d)", int(k))
	}
}

// ConnectError describes why the controller did not reach Connected.
type ConnectError struct {
	Kind ConnectErrorKind
	SSID string
	Err  error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	msg := "connect"
	if e.SSID != "" {
		msg = fmt.Sprintf("connect %q", e.SSID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsConnectError reports whether err is or wraps a *ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is a connection timeout.
func IsTimeout(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Kind == ConnectTimeout
}

var errVetoed = errors.New("candidate vetoed by detect hook")
