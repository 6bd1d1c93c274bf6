package sustainer

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/omnisustain/internal/queue"
	"github.com/bft-labs/omnisustain/pkg/convert"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// DefaultName labels sustainers created without WithName.
const DefaultName = "root"

// Entry describes one sustained unit.
type Entry struct {
	ID       uuid.UUID
	Name     string
	Type     work.Type
	State    lifecycle.State
	Admitted time.Time
}

type entry struct {
	Entry
	seq   uint64
	pivot *lifecycle.StartStop
}

// Option configures a Sustainer.
type Option func(*Sustainer)

// WithConverter sets the converter registry. The default registry holds the
// built-in representations.
func WithConverter(c *convert.OmniConverter) Option {
	return func(s *Sustainer) { s.conv = c }
}

// WithExecutor sets the executor running the consumer loop.
func WithExecutor(e executor.Executor) Option {
	return func(s *Sustainer) { s.exec = e }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Sustainer) { s.logger = l }
}

// WithMetrics reports to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Sustainer) { s.metrics = m }
}

// WithName names the sustainer in logs, metrics and snapshots.
func WithName(name string) Option {
	return func(s *Sustainer) { s.name = name }
}

type query chan []Entry

type requestKind int

const (
	admitRequest requestKind = iota
	releaseRequest
	releaseAllRequest
)

// request is one Sustain, Release or ReleaseAll call. All three share one
// queue so the consumer applies them in the order callers issued them.
type request struct {
	kind requestKind
	unit work.Sustainable
}

// Sustainer keeps a set of admitted units alive while its own operation is
// started.
type Sustainer struct {
	name    string
	target  work.Type
	conv    *convert.OmniConverter
	exec    executor.Executor
	logger  log.Logger
	metrics *Metrics
	stats   scoped

	requests *queue.Queue[request]
	queries  chan query

	pivot  *lifecycle.StartStop
	op     work.Operation
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the consumer goroutine.
	entries map[work.Sustainable]*entry
	seq     uint64
}

// New creates a Sustainer whose operation has the target representation. It
// fails when the converter registry cannot convert the pivot to target.
func New(target work.Type, opts ...Option) (*Sustainer, error) {
	s := &Sustainer{
		name:     DefaultName,
		target:   target,
		requests: queue.New[request](),
		queries:  make(chan query),
		done:     make(chan struct{}),
		entries:  make(map[work.Sustainable]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.logger = log.With(s.logger, log.String("sustainer", s.name))
	s.exec = executor.OrNew(s.exec, s.logger)
	if s.conv == nil {
		s.conv = convert.New(s.exec, s.logger)
	}
	s.stats = s.metrics.scope(s.name)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.pivot = lifecycle.New(
		lifecycle.WithStartEffect(func() {
			s.exec.Go(s.name+" consumer", s.loop)
		}),
		lifecycle.WithStopEffect(s.cancel),
	)

	op, err := s.conv.Convert(lifecycle.Of(s.pivot), target)
	if err != nil {
		return nil, fmt.Errorf("sustainer %s: %w", s.name, err)
	}
	s.op = op
	return s, nil
}

// Name returns the sustainer name.
func (s *Sustainer) Name() string { return s.name }

// String implements fmt.Stringer.
func (s *Sustainer) String() string { return s.name }

// Operation returns the sustainer's own operation in its target
// representation. Starting it starts request processing; stopping or
// canceling it tears down every sustained unit.
func (s *Sustainer) Operation() work.Operation { return s.op }

// Done is closed once teardown has stopped every unit.
func (s *Sustainer) Done() <-chan struct{} { return s.done }

// Sustain enqueues u for admission. It does not wait for u to start.
//
// Errors are reported synchronously: nil or non-comparable units, units
// whose representation has no converter to the pivot, and requests after
// teardown. Admitting a unit that is already sustained is a no-op.
func (s *Sustainer) Sustain(u work.Sustainable) error {
	if err := checkKey(u); err != nil {
		return err
	}
	op := u.Operation()
	if op == nil {
		return fmt.Errorf("%w: %s", convert.ErrNilOperation, unitName(u))
	}
	if !s.conv.Has(op.Type(), work.TypeStartStop) {
		return &convert.NoConverterError{From: op.Type(), To: work.TypeStartStop}
	}
	if s.pivot.IsStopped() {
		s.logger.Debug("sustain after teardown dropped", log.String("unit", unitName(u)))
		return ErrStopped
	}
	s.requests.Push(request{kind: admitRequest, unit: u})
	return nil
}

// Release enqueues removal of u. Releasing a unit that is not sustained is a
// no-op.
func (s *Sustainer) Release(u work.Sustainable) {
	if checkKey(u) != nil || s.pivot.IsStopped() {
		return
	}
	s.requests.Push(request{kind: releaseRequest, unit: u})
}

// ReleaseAll enqueues removal of every sustained unit. Units sustained after
// the call returns are not affected.
func (s *Sustainer) ReleaseAll() {
	if s.pivot.IsStopped() {
		return
	}
	s.requests.Push(request{kind: releaseAllRequest})
}

// Len returns the number of sustained units.
func (s *Sustainer) Len() int {
	return len(s.Snapshot())
}

// Snapshot returns the sustained units in admission order. The answer comes
// from the consumer, so it reflects every request processed so far. Before
// the operation starts and after teardown the set is empty.
func (s *Sustainer) Snapshot() []Entry {
	if !s.pivot.WasStarted() {
		return nil
	}
	reply := make(query, 1)
	select {
	case s.queries <- reply:
		return <-reply
	case <-s.done:
		return nil
	}
}

func (s *Sustainer) loop() {
	s.logger.Info("sustainer started", log.Stringer("type", s.target))
	defer s.teardown()

	for {
		s.drain()
		select {
		case <-s.ctx.Done():
			return
		case <-s.requests.Signal():
		case reply := <-s.queries:
			reply <- s.snapshot()
		}
	}
}

func (s *Sustainer) drain() {
	for _, r := range s.requests.Drain() {
		switch r.kind {
		case admitRequest:
			s.admitOne(r.unit)
		case releaseRequest:
			s.releaseOne(r.unit)
		case releaseAllRequest:
			s.releaseEvery("release all")
		}
	}
}

func (s *Sustainer) admitOne(u work.Sustainable) {
	name := unitName(u)
	if _, ok := s.entries[u]; ok {
		s.logger.Debug("unit already sustained", log.String("unit", name))
		return
	}

	var (
		pivot *lifecycle.StartStop
		typ   work.Type
		err   error
	)
	r := panics.Try(func() {
		op := u.Operation()
		typ = op.Type()
		var pop work.Operation
		if pop, err = s.conv.Convert(op, work.TypeStartStop); err != nil {
			return
		}
		if pivot, err = lifecycle.Handle(pop); err != nil {
			return
		}
		pivot.Start()
	})
	if r != nil {
		err = r.AsError()
	}
	if err != nil {
		s.stats.failed()
		s.logger.Error("failed to admit unit",
			log.String("unit", name), log.Stringer("type", typ), log.Err(err))
		if pivot != nil {
			s.stopPivot(name, pivot)
		}
		return
	}

	s.seq++
	e := &entry{
		Entry: Entry{
			ID:       uuid.New(),
			Name:     name,
			Type:     typ,
			Admitted: time.Now(),
		},
		seq:   s.seq,
		pivot: pivot,
	}
	s.entries[u] = e
	s.stats.admitted(len(s.entries))
	s.logger.Info("unit sustained",
		log.String("unit", name), log.Stringer("type", typ), log.Stringer("id", e.ID))
}

func (s *Sustainer) releaseOne(u work.Sustainable) {
	e, ok := s.entries[u]
	if !ok {
		return
	}
	delete(s.entries, u)
	s.stopPivot(e.Name, e.pivot)
	s.stats.released(1, len(s.entries))
	s.logger.Info("unit released", log.String("unit", e.Name), log.Stringer("id", e.ID))
}

func (s *Sustainer) releaseEvery(reason string) {
	if len(s.entries) == 0 {
		return
	}
	ordered := s.ordered()
	count := len(ordered)
	s.entries = make(map[work.Sustainable]*entry)
	for _, e := range ordered {
		s.stopPivot(e.Name, e.pivot)
	}
	s.stats.released(count, 0)
	s.logger.Info("units released", log.String("reason", reason), log.Int("count", count))
}

// stopPivot stops p, containing panics raised by its listeners.
func (s *Sustainer) stopPivot(name string, p *lifecycle.StartStop) {
	if r := panics.Try(p.Stop); r != nil {
		s.logger.Error("unit panicked while stopping",
			log.String("unit", name), log.Any("panic", r.Value))
	}
}

func (s *Sustainer) teardown() {
	s.releaseEvery("teardown")
	if dropped := len(s.requests.Drain()); dropped > 0 {
		s.logger.Debug("pending requests dropped", log.Int("count", dropped))
	}
	s.logger.Info("sustainer stopped")
	close(s.done)
}

func (s *Sustainer) ordered() []*entry {
	out := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *Sustainer) snapshot() []Entry {
	ordered := s.ordered()
	out := make([]Entry, len(ordered))
	for i, e := range ordered {
		out[i] = e.Entry
		out[i].State = e.pivot.State()
	}
	return out
}

func checkKey(u work.Sustainable) error {
	if u == nil {
		return ErrNilSustainable
	}
	// A comparable type can still hold an incomparable dynamic value in an
	// interface field, so check the value.
	if !reflect.ValueOf(u).Comparable() {
		return fmt.Errorf("%w: %T", ErrNotComparable, u)
	}
	return nil
}

func unitName(u work.Sustainable) string {
	if st, ok := u.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", u)
}

var _ work.Sustainable = (*Sustainer)(nil)
