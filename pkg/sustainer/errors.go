package sustainer

import "errors"

var (
	// ErrNilSustainable is returned when Sustain is called with nil.
	ErrNilSustainable = errors.New("omnisustain: nil sustainable")

	// ErrNotComparable is returned for Sustainables that cannot be used as keys.
	ErrNotComparable = errors.New("omnisustain: sustainable is not comparable")

	// ErrStopped is returned for requests made after teardown.
	ErrStopped = errors.New("omnisustain: sustainer stopped")
)
