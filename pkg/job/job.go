package job

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// ErrPanicked is the completion error of a job whose function panicked.
var ErrPanicked = errors.New("job: function panicked")

// Func is the body of a job.
type Func func(ctx context.Context) error

// Job is a cancellable unit of cooperative work.
type Job struct {
	fn     Func
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	started    bool
	canceled   bool
	completed  bool
	err        error
	onComplete []func(error)
}

// New creates a job that runs fn once started. The job's context derives
// from parent.
func New(parent context.Context, fn Func) *Job {
	if parent == nil {
		parent = context.Background()
	}
	if fn == nil {
		panic("job: Func is nil")
	}
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Go creates and starts a job.
func Go(parent context.Context, fn Func) *Job {
	j := New(parent, fn)
	j.Start()
	return j
}

// Start launches the job's goroutine. Only the first call has effect, and a
// job canceled before Start never runs.
func (j *Job) Start() {
	j.mu.Lock()
	if j.started || j.canceled {
		j.mu.Unlock()
		return
	}
	j.started = true
	j.mu.Unlock()

	go j.run()
}

func (j *Job) run() {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = j.fn(j.ctx) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("%w: %v", ErrPanicked, r.Value)
	}

	j.mu.Lock()
	canceled := j.canceled
	j.mu.Unlock()

	// A canceled job reports cancellation when its body only echoed the
	// context error back.
	if canceled && (err == nil || errors.Is(err, context.Canceled)) {
		err = context.Canceled
	}
	j.complete(err)
}

// Cancel requests cancellation. Idempotent.
func (j *Job) Cancel() {
	j.mu.Lock()
	if j.completed || j.canceled {
		j.mu.Unlock()
		return
	}
	j.canceled = true
	started := j.started
	j.mu.Unlock()

	j.cancel()
	if !started {
		j.complete(context.Canceled)
	}
}

func (j *Job) complete(err error) {
	j.mu.Lock()
	if j.completed {
		j.mu.Unlock()
		return
	}
	j.completed = true
	j.err = err
	listeners := j.onComplete
	j.onComplete = nil
	j.mu.Unlock()

	j.cancel()
	close(j.done)
	for _, fn := range listeners {
		fn(err)
	}
}

// OnComplete registers fn to be called with the completion error. If the job
// has already completed fn is called immediately.
func (j *Job) OnComplete(fn func(error)) {
	if fn == nil {
		return
	}
	j.mu.Lock()
	if j.completed {
		err := j.err
		j.mu.Unlock()
		fn(err)
		return
	}
	j.onComplete = append(j.onComplete, fn)
	j.mu.Unlock()
}

// Done returns a channel closed when the job completes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the completion error: nil on success, context.Canceled when
// canceled, otherwise the function's error. It is nil while the job runs.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Wait blocks until the job completes or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsActive reports whether the job has started and not completed.
func (j *Job) IsActive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started && !j.completed
}

// IsCompleted reports whether the job has completed for any reason.
func (j *Job) IsCompleted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed
}

// IsCancelled reports whether Cancel was requested.
func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canceled
}
