package convert

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// Representation contributes the converters of one native model.
type Representation interface {
	Type() work.Type
	Converters(env Env) ([]UniConverter, error)
}

// RepresentationFunc adapts a function to a Representation.
func RepresentationFunc(t work.Type, fn func(env Env) ([]UniConverter, error)) Representation {
	return repFunc{t: t, fn: fn}
}

type repFunc struct {
	t  work.Type
	fn func(env Env) ([]UniConverter, error)
}

func (r repFunc) Type() work.Type                            { return r.t }
func (r repFunc) Converters(env Env) ([]UniConverter, error) { return r.fn(env) }

// StartStopRepresentation provides the pivot identity converter.
func StartStopRepresentation() Representation {
	return RepresentationFunc(work.TypeStartStop, func(Env) ([]UniConverter, error) {
		return []UniConverter{Identity(work.TypeStartStop)}, nil
	})
}

// JobRepresentation provides job identity and job <-> pivot converters.
func JobRepresentation() Representation {
	return RepresentationFunc(work.TypeJob, func(env Env) ([]UniConverter, error) {
		return []UniConverter{Identity(work.TypeJob), PivotToJob(env), JobToPivot(env)}, nil
	})
}

// DeferredRepresentation provides deferred identity and deferred <-> pivot converters.
func DeferredRepresentation() Representation {
	return RepresentationFunc(work.TypeDeferred, func(env Env) ([]UniConverter, error) {
		return []UniConverter{Identity(work.TypeDeferred), PivotToDeferred(env), DeferredToPivot(env)}, nil
	})
}

// DefaultRepresentations returns every representation compiled into this module.
func DefaultRepresentations() []Representation {
	return []Representation{
		StartStopRepresentation(),
		JobRepresentation(),
		DeferredRepresentation(),
	}
}

// Option configures an OmniConverter.
type Option func(*options)

type options struct {
	ctx       context.Context
	policy    FailurePolicy
	onFailure FailureHandler
	reps      []Representation
}

// WithContext sets the parent context for jobs created by converters.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithFailurePolicy sets how unhandled native failures surface. handler is
// only used with FailureStop.
func WithFailurePolicy(policy FailurePolicy, handler FailureHandler) Option {
	return func(o *options) {
		o.policy = policy
		o.onFailure = handler
	}
}

// WithRepresentations replaces the default representation set.
func WithRepresentations(reps ...Representation) Option {
	return func(o *options) { o.reps = reps }
}

// OmniConverter is the immutable converter registry.
type OmniConverter struct {
	converters map[Pair]UniConverter
	types      []work.Type
	logger     log.Logger
}

// New probes the configured representations and builds the registry. A
// representation whose probe fails or panics is left out.
func New(exec executor.Executor, logger log.Logger, opts ...Option) *OmniConverter {
	o := options{reps: DefaultRepresentations()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	logger = log.OrNoop(logger)
	env := Env{
		Context:   o.ctx,
		Executor:  exec,
		Logger:    logger,
		Policy:    o.policy,
		OnFailure: o.onFailure,
	}.withDefaults()

	c := &OmniConverter{
		converters: make(map[Pair]UniConverter),
		logger:     logger,
	}
	for _, rep := range o.reps {
		convs, err := probe(rep, env)
		if err != nil {
			logger.Debug("representation unavailable",
				log.Stringer("type", rep.Type()), log.Err(err))
			continue
		}
		for _, uc := range convs {
			key := Pair{From: uc.From(), To: uc.To()}
			if _, dup := c.converters[key]; dup {
				logger.Warn("duplicate converter ignored", log.Stringer("pair", key))
				continue
			}
			c.converters[key] = uc
		}
		c.types = append(c.types, rep.Type())
	}
	sort.Slice(c.types, func(i, j int) bool { return c.types[i] < c.types[j] })
	return c
}

func probe(rep Representation, env Env) (convs []UniConverter, err error) {
	var pc panics.Catcher
	pc.Try(func() { convs, err = rep.Converters(env) })
	if r := pc.Recovered(); r != nil {
		return nil, fmt.Errorf("probe %s panicked: %v", rep.Type(), r.Value)
	}
	return convs, err
}

// Convert converts op to the target representation using the registered
// converter for (op.Type(), target).
func (c *OmniConverter) Convert(op work.Operation, target work.Type) (work.Operation, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	uc, ok := c.converters[Pair{From: op.Type(), To: target}]
	if !ok {
		return nil, &NoConverterError{From: op.Type(), To: target}
	}
	return uc.Convert(op)
}

// Has reports whether a converter is registered for (from, to).
func (c *OmniConverter) Has(from, to work.Type) bool {
	_, ok := c.converters[Pair{From: from, To: to}]
	return ok
}

// Types returns the available representations, sorted.
func (c *OmniConverter) Types() []work.Type {
	return append([]work.Type(nil), c.types...)
}

// Pairs returns every registered pair, sorted by source then target.
func (c *OmniConverter) Pairs() []Pair {
	out := make([]Pair, 0, len(c.converters))
	for p := range c.converters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
