package refresh

import "github.com/cockroachdb/errors"

var (
	// ErrConfigIncomplete is returned when a required setting is missing.
	// No upstream call is made.
	ErrConfigIncomplete = errors.New("refresh: configuration incomplete")

	// ErrNoMarker is returned when a reply lacks the expected marker.
	ErrNoMarker = errors.New("refresh: marker not found")

	// ErrRejected is returned when an extracted payload fails validation.
	ErrRejected = errors.New("refresh: payload rejected")
)
