package webportal

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind is the category of a client failure.
type ErrorKind int

const (
	ErrKindNetwork ErrorKind = iota
	ErrKindTimeout
	ErrKindRefused
	ErrKindHTTP
	ErrKindParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNetwork:
		return "network error"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindRefused:
		return "connection refused"
	case ErrKindHTTP:
		return "http error"
	case ErrKindParse:
		return "parse error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ClientError is returned by Client for every failed request.
type ClientError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a ClientError worth retrying.
func IsRetryable(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Retryable
}

// IsHTTPStatus reports whether err is an HTTP error with the given code.
func IsHTTPStatus(err error, code int) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Kind == ErrKindHTTP && ce.StatusCode == code
}

// classifyNetworkError sorts a transport failure into a ClientError.
func classifyNetworkError(message string, err error) *ClientError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	if os.IsTimeout(err) {
		return &ClientError{Kind: ErrKindTimeout, Message: message, Err: err, Retryable: true}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClientError{Kind: ErrKindNetwork, Message: message, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ClientError{Kind: ErrKindRefused, Message: message, Err: err, Retryable: true}
	}
	return &ClientError{Kind: ErrKindNetwork, Message: message, Err: err, Retryable: true}
}

func httpError(code int, body string) *ClientError {
	return &ClientError{
		Kind:       ErrKindHTTP,
		Message:    fmt.Sprintf("unexpected status %d: %s", code, body),
		StatusCode: code,
		// a busy portal answers 503 until the controller is attached
		Retryable: code == 503,
	}
}
