// Package units builds sustainable work units from configuration.
//
// Each unit kind maps to one native representation: watch units are jobs
// that follow a path with fsnotify, tick units are pivots that log a
// heartbeat while started, and timer units are deferred results that resolve
// after a delay. Units sharing a group are sustained by a nested sustainer
// named after the group.
package units

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/convert"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/sustainer"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// Retry defaults for watch units.
const (
	DefaultRetryInitial = 500 * time.Millisecond
	DefaultRetryMax     = 30 * time.Second
)

// ErrUnknownKind is returned for unit kinds this package cannot build.
var ErrUnknownKind = errors.New("omnisustain: unknown unit kind")

// Builder turns unit declarations into Sustainables.
type Builder struct {
	Context   context.Context
	Logger    log.Logger
	Executor  executor.Executor
	Converter *convert.OmniConverter
	Metrics   *sustainer.Metrics
	Events    *Events

	RetryInitial time.Duration
	RetryMax     time.Duration

	once sync.Once
}

// Representation returns the native representation a unit kind is built in.
func Representation(kind string) (work.Type, error) {
	switch kind {
	case cliconfig.KindWatch:
		return work.TypeJob, nil
	case cliconfig.KindTick:
		return work.TypeStartStop, nil
	case cliconfig.KindTimer:
		return work.TypeDeferred, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Operation builds the operation for one unit.
func (b *Builder) Operation(u cliconfig.UnitConfig) (work.Operation, error) {
	switch u.Kind {
	case cliconfig.KindWatch:
		return b.watch(u), nil
	case cliconfig.KindTick:
		return b.tick(u), nil
	case cliconfig.KindTimer:
		return b.timer(u), nil
	default:
		return nil, fmt.Errorf("unit %s: %w: %q", u.Name, ErrUnknownKind, u.Kind)
	}
}

// Build returns the top-level Sustainables for units in declaration order.
// A group is returned once, at the position of its first member.
func (b *Builder) Build(units []cliconfig.UnitConfig) ([]work.Sustainable, error) {
	var out []work.Sustainable
	groups := make(map[string]*sustainer.Sustainer)

	for _, u := range units {
		op, err := b.Operation(u)
		if err != nil {
			return nil, err
		}
		unit := work.Sustain(u.Name, op)
		if u.Group == "" {
			out = append(out, unit)
			continue
		}

		g, ok := groups[u.Group]
		if !ok {
			g, err = b.group(u.Group)
			if err != nil {
				return nil, err
			}
			groups[u.Group] = g
			out = append(out, g)
		}
		if err := g.Sustain(unit); err != nil {
			return nil, fmt.Errorf("group %s: unit %s: %w", u.Group, u.Name, err)
		}
	}
	return out, nil
}

func (b *Builder) group(name string) (*sustainer.Sustainer, error) {
	opts := []sustainer.Option{
		sustainer.WithName(name),
		sustainer.WithLogger(b.Logger),
		sustainer.WithMetrics(b.Metrics),
		sustainer.WithExecutor(b.exec()),
	}
	if b.Converter != nil {
		opts = append(opts, sustainer.WithConverter(b.Converter))
	}
	s, err := sustainer.New(work.TypeStartStop, opts...)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", name, err)
	}
	return s, nil
}

func (b *Builder) ctx() context.Context {
	if b.Context == nil {
		return context.Background()
	}
	return b.Context
}

func (b *Builder) logger(u cliconfig.UnitConfig) log.Logger {
	return log.With(b.Logger, log.String("unit", u.Name), log.String("kind", u.Kind))
}

func (b *Builder) exec() executor.Executor {
	b.once.Do(func() {
		b.Executor = executor.OrNew(b.Executor, b.Logger)
	})
	return b.Executor
}

func (b *Builder) retry() (time.Duration, time.Duration) {
	initial, max := b.RetryInitial, b.RetryMax
	if initial <= 0 {
		initial = DefaultRetryInitial
	}
	if max <= 0 {
		max = DefaultRetryMax
	}
	return initial, max
}
