package executor

import (
	"errors"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/omnisustain/pkg/log"
)

// ErrWaitTimeout is returned by WaitWithTimeout when goroutines are still running.
var ErrWaitTimeout = errors.New("executor: wait timeout")

// Executor runs functions in the background.
type Executor interface {
	Go(name string, fn func())
}

// PanicPolicy controls what a Pool does after reporting a panic.
type PanicPolicy int

const (
	// RecoverAndReport recovers the panic and reports it.
	RecoverAndReport PanicPolicy = iota

	// RepanicOnWait reports the panic and re-raises it from Wait.
	RepanicOnWait
)

// PanicInfo describes a recovered panic.
type PanicInfo struct {
	Name  string
	Value any
	Stack []byte
}

// PanicHandler is invoked for every recovered panic.
type PanicHandler func(info PanicInfo)

// Option configures a Pool.
type Option func(*Pool)

// WithPanicHandler sets a handler called after a panic is logged.
func WithPanicHandler(h PanicHandler) Option {
	return func(p *Pool) { p.onPanic = h }
}

// WithPanicPolicy sets the panic policy.
func WithPanicPolicy(policy PanicPolicy) Option {
	return func(p *Pool) { p.policy = policy }
}

// Pool is the default Executor.
type Pool struct {
	wg      conc.WaitGroup
	logger  log.Logger
	onPanic PanicHandler
	policy  PanicPolicy
}

// New creates a Pool. A nil logger discards reports.
func New(logger log.Logger, opts ...Option) *Pool {
	p := &Pool{logger: log.OrNoop(logger)}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Go runs fn on a new goroutine tracked by the pool.
func (p *Pool) Go(name string, fn func()) {
	p.wg.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		r := pc.Recovered()
		if r == nil {
			return
		}

		p.logger.Error("goroutine panicked",
			log.String("goroutine", name),
			log.Any("panic", r.Value),
			log.String("stack", string(r.Stack)),
		)
		if p.onPanic != nil {
			p.onPanic(PanicInfo{Name: name, Value: r.Value, Stack: r.Stack})
		}
		if p.policy == RepanicOnWait {
			// Caught again by the wait group and re-raised from Wait.
			pc.Repanic()
		}
	})
}

// Wait blocks until every goroutine started with Go has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// WaitWithTimeout waits for all goroutines with a timeout.
// Returns ErrWaitTimeout if the timeout expires.
func (p *Pool) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		// Repanics surface on this goroutine; keep them from escaping as
		// an unrecoverable crash of the waiter.
		defer close(done)
		p.wg.WaitAndRecover()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		p.logger.Warn("executor wait timeout", log.Duration("timeout", timeout))
		return ErrWaitTimeout
	}
}

// OrNew returns e, or a fresh Pool logging to logger when e is nil.
func OrNew(e Executor, logger log.Logger) Executor {
	if e != nil {
		return e
	}
	return New(logger)
}
