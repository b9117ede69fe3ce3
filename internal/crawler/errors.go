package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is wrapped by StatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxy is returned for an unsupported proxy URL.
	ErrInvalidProxy = errors.New("invalid proxy URL")

	// ErrInvalidBaseURL is returned for a catalog URL that cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid catalog base URL")
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d for %s", ErrUnexpectedStatus, e.Code, e.URL)
}

// Unwrap returns ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
