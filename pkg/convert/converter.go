package convert

import (
	"context"
	"fmt"

	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// UniConverter converts operations of one descriptor to another.
type UniConverter interface {
	From() work.Type
	To() work.Type
	Convert(src work.Operation) (work.Operation, error)
}

// Pair is a registry key.
type Pair struct {
	From work.Type
	To   work.Type
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.From, p.To)
}

// FailurePolicy selects how unhandled native failures are surfaced.
type FailurePolicy int

const (
	// FailureRaise panics on an executor goroutine. The panic is only
	// fatal when the executor re-raises it, as an executor.Pool with
	// RepanicOnWait does from Wait. Under the default RecoverAndReport the
	// panic is logged and the pivot stays started; use FailureStop when the
	// pivot must end with the failed work.
	FailureRaise FailurePolicy = iota

	// FailureStop stops the pivot and calls the FailureHandler.
	FailureStop
)

// FailureHandler receives unhandled failures under FailureStop.
type FailureHandler func(err *FailureError)

// Env is what converters need from their surroundings.
type Env struct {
	// Context is the parent of job contexts created by converters.
	Context   context.Context
	Executor  executor.Executor
	Logger    log.Logger
	Policy    FailurePolicy
	OnFailure FailureHandler
}

func (e Env) withDefaults() Env {
	if e.Context == nil {
		e.Context = context.Background()
	}
	e.Logger = log.OrNoop(e.Logger)
	e.Executor = executor.OrNew(e.Executor, e.Logger)
	return e
}

// fail surfaces an unhandled failure according to the policy. stop stops the
// pivot the failure was observed on.
func (e Env) fail(from work.Type, err error, stop func()) {
	ferr := &FailureError{From: from, Err: err}
	switch e.Policy {
	case FailureStop:
		e.Logger.Warn("unhandled native failure, stopping",
			log.Stringer("type", from), log.Err(err))
		stop()
		if e.OnFailure != nil {
			e.OnFailure(ferr)
		}
	default:
		e.Executor.Go(fmt.Sprintf("%s->%s failure", from, work.TypeStartStop), func() {
			panic(ferr)
		})
	}
}

// Func adapts a function to a UniConverter.
func Func(from, to work.Type, fn func(src work.Operation) (work.Operation, error)) UniConverter {
	return &funcConverter{from: from, to: to, fn: fn}
}

type funcConverter struct {
	from, to work.Type
	fn       func(src work.Operation) (work.Operation, error)
}

func (c *funcConverter) From() work.Type { return c.from }
func (c *funcConverter) To() work.Type   { return c.to }

func (c *funcConverter) Convert(src work.Operation) (work.Operation, error) {
	if src == nil {
		return nil, ErrNilOperation
	}
	if src.Type() != c.from {
		return nil, fmt.Errorf("%w: %s converter got %s", ErrSourceType, Pair{c.from, c.to}, src.Type())
	}
	return c.fn(src)
}

// Identity returns the X -> X converter, which hands the source back unchanged.
func Identity(t work.Type) UniConverter {
	return Func(t, t, func(src work.Operation) (work.Operation, error) {
		return src, nil
	})
}
