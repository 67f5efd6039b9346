package upstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for upstream operations.
var (
	// ErrNotConfigured is returned when the base URL is empty.
	ErrNotConfigured = errors.New("upstream: base URL not configured")

	// ErrUpstreamStatus matches every StatusError.
	ErrUpstreamStatus = errors.New("upstream: non-success status")

	// ErrNoChoices is returned when a completion has no choices.
	ErrNoChoices = errors.New("upstream: response has no choices")
)

// StatusError reports a response with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Is reports whether target is ErrUpstreamStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}
