// Package job implements the cooperative task representation: a function run
// on its own goroutine under a context, cancellable from outside, completing
// implicitly when the function returns.
//
// Jobs created with New are lazy and begin on Start; Go creates and starts in
// one step. Cancel cancels the job's context; the job completes once its
// function observes the cancellation and returns. Cancelling a job that was
// never started completes it immediately without running the function.
//
//	j := job.Go(ctx, func(ctx context.Context) error {
//	    <-ctx.Done()
//	    return ctx.Err()
//	})
//	j.OnComplete(func(err error) { ... })
//	j.Cancel()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package job
