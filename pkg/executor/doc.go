// Package executor provides the execution context background goroutines are
// launched on.
//
// Kernel components never start goroutines on hidden process-wide state; they
// are handed an Executor. Pool, the default implementation, tracks every
// goroutine it starts, recovers panics and reports them with the goroutine's
// name, and supports waiting for all work with a timeout.
//
//	pool := executor.New(logger)
//	pool.Go("reload", func() { ... })
//	if err := pool.WaitWithTimeout(10 * time.Second); err != nil {
//	    logger.Warn("executor did not drain", log.Err(err))
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package executor
