// Package lifecycle provides StartStop, the two-phase start/stop primitive
// every omnisustain conversion funnels through (the pivot representation).
//
// A StartStop moves through a one-shot lifecycle:
//
//	Created -> Started -> Stopped
//
// Start has effect only on the first call. Stop has effect only after a Start
// and only once. Calling Stop before Start is accepted and ignored; callers
// must not rely on any particular state afterwards.
//
// # Listeners
//
// OnStart and OnStop register listeners. Listeners accumulate and are invoked
// in registration order, each at most once. Side effects passed to New run
// after the listeners of the same transition.
//
//	ss := lifecycle.New(lifecycle.WithStopEffect(closeConn))
//	ss.OnStop(func() { logger.Info("stopped") })
//	ss.Start()
//	ss.Stop()
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
