// Package deferred implements the deferred result representation: work that
// is running from the moment it is created and completes exactly once, by
// success, failure or cancellation. There is no separate started phase.
//
// New returns a deferred completed from outside (Complete, Fail, Cancel).
// Async starts a function on its own goroutine and completes the deferred
// with its result.
//
// The first completion wins; later calls report false and change nothing.
// A canceled deferred completes with work.ErrCanceled, which matches
// context.Canceled under errors.Is.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package deferred
