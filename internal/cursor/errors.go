package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the OS had no usable cursor at the time of the
	// query. Callers retry on the next poll tick.
	ErrUnavailable = errors.New("cursor unavailable")

	// ErrStaleCursor means the cursor changed between observing an
	// identity and requesting its bitmap. Callers re-run detection and
	// never retry with the old identity.
	ErrStaleCursor = errors.New("cursor changed")
)

// UnavailableReason says which part of the cursor query came back empty.
type UnavailableReason string

const (
	ReasonNoCursor         UnavailableReason = "no cursor"
	ReasonNoImage          UnavailableReason = "no image"
	ReasonNoRepresentation UnavailableReason = "no color-sampleable representation"
)

// UnavailableError is returned when a cursor, its image or its pixel
// representation cannot be obtained.
type UnavailableError struct {
	Reason UnavailableReason
	Err    error
}

// Unavailable builds an UnavailableError with an optional underlying cause.
func Unavailable(reason UnavailableReason, err error) *UnavailableError {
	return &UnavailableError{Reason: reason, Err: err}
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cursor unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cursor unavailable: %s", e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// StaleError records the identity the caller asked for and the one found.
type StaleError struct {
	Expected Identity
	Actual   Identity
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("cursor changed: expected identity %d, found %d", e.Expected, e.Actual)
}

func (e *StaleError) Is(target error) bool {
	return target == ErrStaleCursor
}

// Kind classifies err as "unavailable", "stale" or "" for anything else.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrStaleCursor):
		return "stale"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return ""
	}
}
