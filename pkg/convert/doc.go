// Package convert translates units of work between representations.
//
// A UniConverter handles one ordered pair of descriptors. Every non-identity
// converter has the pivot (work.TypeStartStop) on one side and wires the two
// lifecycles together: starting or stopping one side eventually starts or
// stops the other, and neither side is ever stopped or canceled twice.
//
// OmniConverter is the registry. It is assembled once from the compiled-in
// representations and resolves a (source, target) pair by direct lookup; it
// does not chain converters. Callers that need X -> Y go through the pivot
// explicitly (X -> startstop, startstop -> Y).
//
//	conv := convert.New(pool, logger)
//	op, err := conv.Convert(jobOp, work.TypeStartStop)
//	if errors.Is(err, work.ErrNoConverter) { ... }
//
// # Unhandled failures
//
// A deferred result that fails with anything other than a cancellation while
// adapted to the pivot is an unhandled failure. FailureRaise (the default)
// raises it as a panic on an executor goroutine, where the executor reports
// it; the pivot is left as is. FailureStop stops the pivot and hands a
// *FailureError to the configured FailureHandler instead.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package convert
