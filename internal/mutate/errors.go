package mutate

import (
	"errors"
	"fmt"
)

// ErrToggleInFlight is returned when a completion toggle for the same task is
// already waiting on the server. Callers treat it as a no-op.
var ErrToggleInFlight = errors.New("toggle already in flight")

// ErrClosed is returned for calls made (or completed) after Close.
var ErrClosed = errors.New("coordinator closed")

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}
