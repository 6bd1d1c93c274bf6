package convert

import (
	"errors"
	"fmt"

	"github.com/bft-labs/omnisustain/pkg/work"
)

var (
	// ErrNilOperation is returned when converting a nil operation.
	ErrNilOperation = errors.New("convert: nil operation")

	// ErrSourceType is returned when a converter receives an operation of
	// the wrong descriptor.
	ErrSourceType = errors.New("convert: source type mismatch")
)

// NoConverterError reports a missing (From, To) pair.
type NoConverterError struct {
	From work.Type
	To   work.Type
}

func (e *NoConverterError) Error() string {
	return fmt.Sprintf("omnisustain: no converter from %s to %s", e.From, e.To)
}

// Unwrap returns work.ErrNoConverter.
func (e *NoConverterError) Unwrap() error { return work.ErrNoConverter }

// FailureError is an unhandled native failure observed while adapting a
// unit of work to the pivot.
type FailureError struct {
	From work.Type
	Err  error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("omnisustain: unhandled %s failure: %v", e.From, e.Err)
}

// Unwrap exposes both work.ErrUnhandledFailure and the native error.
func (e *FailureError) Unwrap() []error {
	return []error{work.ErrUnhandledFailure, e.Err}
}
