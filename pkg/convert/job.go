package convert

import (
	"context"
	"sync"

	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// PivotToJob converts a startstop operation into a job that starts the
// pivot, then waits. Canceling the job stops the pivot; stopping the pivot
// cancels the job.
func PivotToJob(env Env) UniConverter {
	env = env.withDefaults()
	return Func(work.TypeStartStop, work.TypeJob, func(src work.Operation) (work.Operation, error) {
		return job.Operation(func() *job.Job {
			p, herr := lifecycle.Handle(src)

			var j *job.Job
			j = job.New(env.Context, func(ctx context.Context) error {
				if herr != nil {
					return herr
				}
				p.OnStop(j.Cancel)
				p.Start()
				if p.IsStopped() {
					// Stopped before the listener was registered.
					return nil
				}
				<-ctx.Done()
				p.Stop()
				return ctx.Err()
			})
			return j
		}), nil
	})
}

// JobToPivot converts a job operation into a pivot. Starting the pivot
// starts the job on an executor goroutine; the job's completion stops the
// pivot and stopping the pivot cancels the job.
func JobToPivot(env Env) UniConverter {
	env = env.withDefaults()
	return Func(work.TypeJob, work.TypeStartStop, func(src work.Operation) (work.Operation, error) {
		return lifecycle.Operation(func() *lifecycle.StartStop {
			p := lifecycle.New()

			var mu sync.Mutex
			var j *job.Job

			p.OnStart(func() {
				env.Executor.Go("job->startstop", func() {
					h, err := job.Handle(src)
					if err != nil {
						env.Logger.Error("job operation produced no job", log.Err(err))
						p.Stop()
						return
					}
					mu.Lock()
					j = h
					mu.Unlock()

					if p.IsStopped() {
						h.Cancel()
						return
					}
					h.OnComplete(func(error) { p.Stop() })
					h.Start()
				})
			})
			p.OnStop(func() {
				mu.Lock()
				h := j
				mu.Unlock()
				if h != nil {
					h.Cancel()
				}
			})
			return p
		}), nil
	})
}
