// Package sustainer implements the aggregate sustainer: a dynamic set of
// heterogeneous work units kept alive behind one controllable operation.
//
// Callers Sustain, Release and ReleaseAll from any goroutine without
// blocking. Requests land on one unbounded FIFO queue; a single consumer
// goroutine drains it and is the only code that starts or stops the units it
// owns. The consumer runs while the sustainer's own operation is started:
//
//	s, err := sustainer.New(work.TypeJob)
//	if err != nil { ... }
//	root, _ := job.Handle(s.Operation())
//	root.Start()
//	s.Sustain(work.Sustain("ticker", tickOp))
//	...
//	root.Cancel() // stops every sustained unit
//	<-s.Done()
//
// Requests issued before the operation starts are buffered and processed
// once it does. Requests issued after it stops are dropped. A Sustainer is
// itself a work.Sustainable, so one sustainer can sustain another and stopping
// the outer one stops the whole tree.
//
// Requests are applied in the order they were enqueued, so ReleaseAll followed
// by Sustain on one goroutine leaves the new units running. Calls racing on
// different goroutines are applied in whatever order they reached the queue.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package sustainer
