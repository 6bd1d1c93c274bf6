package work

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoConverter is returned when no converter is registered for a
	// (source, target) pair.
	ErrNoConverter = errors.New("omnisustain: no converter")

	// ErrWrongHandle is returned when an operation produces a handle whose Go
	// type does not match its descriptor.
	ErrWrongHandle = errors.New("omnisustain: wrong handle type")

	// ErrUnhandledFailure marks a native failure that was not a cancellation.
	ErrUnhandledFailure = errors.New("omnisustain: unhandled native failure")

	// ErrCanceled is the completion error of canceled work. It matches
	// context.Canceled with errors.Is.
	ErrCanceled = fmt.Errorf("omnisustain: canceled: %w", context.Canceled)
)

// HandleError reports an operation whose handle does not match its descriptor.
type HandleError struct {
	Want Type
	Got  any
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("omnisustain: operation of type %s produced handle %T", e.Want, e.Got)
}

// Unwrap returns ErrWrongHandle.
func (e *HandleError) Unwrap() error { return ErrWrongHandle }

// IsCancellation reports whether err signals cancellation rather than failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
