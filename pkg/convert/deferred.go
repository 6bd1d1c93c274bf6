package convert

import (
	"sync"

	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// PivotToDeferred converts a startstop operation into a deferred result. The
// pivot is started as soon as the deferred is created; the deferred resolves
// when the pivot stops, and completing the deferred early (cancel or fail)
// stops the pivot.
func PivotToDeferred(env Env) UniConverter {
	env = env.withDefaults()
	return Func(work.TypeStartStop, work.TypeDeferred, func(src work.Operation) (work.Operation, error) {
		return deferred.Operation(func() *deferred.Deferred {
			d := deferred.New()
			p, err := lifecycle.Handle(src)
			if err != nil {
				d.Fail(err)
				return d
			}

			p.OnStop(func() { d.Complete() })
			d.OnComplete(func(error) { p.Stop() })
			p.Start()
			if p.IsStopped() {
				d.Complete()
			}
			return d
		}), nil
	})
}

// DeferredToPivot converts a deferred operation into a pivot. Starting the
// pivot begins the deferred. Success or cancellation stops the pivot; any
// other failure is handled by the failure policy. Stopping the pivot cancels
// the deferred.
func DeferredToPivot(env Env) UniConverter {
	env = env.withDefaults()
	return Func(work.TypeDeferred, work.TypeStartStop, func(src work.Operation) (work.Operation, error) {
		return lifecycle.Operation(func() *lifecycle.StartStop {
			p := lifecycle.New()

			var mu sync.Mutex
			var d *deferred.Deferred

			p.OnStart(func() {
				h, err := deferred.Handle(src)
				if err != nil {
					env.fail(work.TypeDeferred, err, p.Stop)
					return
				}
				mu.Lock()
				d = h
				mu.Unlock()

				h.OnComplete(func(err error) {
					if err == nil || work.IsCancellation(err) {
						p.Stop()
						return
					}
					env.fail(work.TypeDeferred, err, p.Stop)
				})
				if p.IsStopped() {
					h.Cancel()
				}
			})
			p.OnStop(func() {
				mu.Lock()
				h := d
				mu.Unlock()
				if h != nil {
					h.Cancel()
				}
			})
			return p
		}), nil
	})
}
