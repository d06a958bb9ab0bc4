package fetch

import (
	"errors"
	"fmt"
)

// FailureClass partitions fetch failures by what the caller should do about
// them. Detection failures burn the identity; transport failures are
// retryable with another strategy; parse failures mean the page changed.
type FailureClass string

const (
	FailureDetection FailureClass = "detection"
	FailureTransport FailureClass = "transport"
	FailureParse     FailureClass = "parse"
)

// Error is a classified fetch failure.
type Error struct {
	Class      FailureClass
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Class, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsDetection reports whether err carries the detection failure class.
func IsDetection(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Class == FailureDetection
}

// IsTransport reports whether err carries the transport failure class.
func IsTransport(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Class == FailureTransport
}

func detectionError(url string, status int) *Error {
	return &Error{Class: FailureDetection, URL: url, StatusCode: status}
}

func transportError(url string, err error) *Error {
	return &Error{Class: FailureTransport, URL: url, Err: err}
}
