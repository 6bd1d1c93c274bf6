package deferred

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/omnisustain/pkg/work"
)

// Deferred is a result completed exactly once.
type Deferred struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu         sync.Mutex
	completed  bool
	err        error
	onComplete []func(error)
}

// New creates an incomplete deferred.
func New() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Async runs fn on a new goroutine and completes the deferred with its
// result. Cancel cancels the context passed to fn.
func Async(parent context.Context, fn func(ctx context.Context) error) *Deferred {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	d := New()
	d.cancel = cancel

	go func() {
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = fn(ctx) })
		if r := pc.Recovered(); r != nil {
			err = fmt.Errorf("deferred: function panicked: %v", r.Value)
		}
		if err != nil {
			d.Fail(err)
			return
		}
		d.Complete()
	}()
	return d
}

// Complete resolves the deferred successfully.
func (d *Deferred) Complete() bool {
	return d.finish(nil)
}

// Fail completes the deferred with err. A nil err is treated as success.
func (d *Deferred) Fail(err error) bool {
	return d.finish(err)
}

// Cancel completes the deferred with work.ErrCanceled.
func (d *Deferred) Cancel() bool {
	return d.finish(work.ErrCanceled)
}

func (d *Deferred) finish(err error) bool {
	d.mu.Lock()
	if d.completed {
		d.mu.Unlock()
		return false
	}
	d.completed = true
	d.err = err
	listeners := d.onComplete
	d.onComplete = nil
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	close(d.done)
	for _, fn := range listeners {
		fn(err)
	}
	return true
}

// OnComplete registers fn to be called with the completion error. If the
// deferred has already completed fn is called immediately.
func (d *Deferred) OnComplete(fn func(error)) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if d.completed {
		err := d.err
		d.mu.Unlock()
		fn(err)
		return
	}
	d.onComplete = append(d.onComplete, fn)
	d.mu.Unlock()
}

// Done returns a channel closed on completion.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Err returns the completion error, or nil while incomplete or on success.
func (d *Deferred) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Wait blocks until completion or until ctx is done.
func (d *Deferred) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsCompleted reports whether the deferred has completed.
func (d *Deferred) IsCompleted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// IsCancelled reports whether the deferred completed by cancellation.
func (d *Deferred) IsCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed && work.IsCancellation(d.err)
}
