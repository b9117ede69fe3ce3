package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/carledger/internal/model"
)

// ErrMissingElement is wrapped by fetchers when an expected element is not
// present on a page.
var ErrMissingElement = errors.New("missing page element")

// SkipError rejects a listing item.
type SkipError struct {
	Reason model.SkipReason
	Detail string
}

// Error implements error.
func (e *SkipError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Skip returns a *SkipError with a formatted detail.
func Skip(reason model.SkipReason, format string, args ...any) *SkipError {
	return &SkipError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsSkip converts err into a model.Skip for url.
// Errors that are not a *SkipError are classified as fetch failures, or as
// missing elements when they wrap ErrMissingElement.
func AsSkip(url string, err error) model.Skip {
	var se *SkipError
	if errors.As(err, &se) {
		return model.Skip{URL: url, Reason: se.Reason, Detail: se.Detail}
	}
	if errors.Is(err, ErrMissingElement) {
		return model.Skip{URL: url, Reason: model.SkipMissingElement, Detail: err.Error()}
	}
	return model.Skip{URL: url, Reason: model.SkipFetchFailed, Detail: err.Error()}
}
