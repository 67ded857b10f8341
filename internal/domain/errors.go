package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUser is returned by identity stores when no identifier has been
	// persisted yet.
	ErrNoUser = errors.New("no stored user identity")

	// ErrActivityNotFound means no cached activity exists for an experiment
	// name; at the session level this triggers the fallback booking flow.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrStreamNotFound means the activity exists but carries no stream
	// with the requested role tag.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamTimeout is returned by message-channel receives that exceed
	// their deadline. Callers use it as a control signal, not a failure.
	ErrStreamTimeout = errors.New("stream receive timed out")
)

// NoMatchError is returned when a booking is requested but the last filter
// pass left no available experiments. The message distinguishes whether a
// rig number was part of the filter.
type NoMatchError struct {
	Name   string
	Number string
}

func (e *NoMatchError) Error() string {
	if e.Number == "" {
		return fmt.Sprintf("no available experiments matching %q", e.Name)
	}
	return fmt.Sprintf("no available experiments matching %q number %q", e.Name, e.Number)
}
