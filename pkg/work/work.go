package work

// Type identifies the native execution model of a work handle.
type Type string

// Built-in representations.
const (
	// TypeStartStop is the pivot representation (*lifecycle.StartStop).
	TypeStartStop Type = "startstop"

	// TypeJob is the cooperative task representation (*job.Job).
	TypeJob Type = "job"

	// TypeDeferred is the deferred result representation (*deferred.Deferred).
	TypeDeferred Type = "deferred"
)

// String returns the descriptor name.
func (t Type) String() string {
	if t == "" {
		return "<none>"
	}
	return string(t)
}

// Operation is a unit of work: a factory for a native handle plus the
// descriptor of that handle.
//
// Calling Work creates the handle. For eagerly started models (deferred
// results) this also starts the underlying work.
type Operation interface {
	Type() Type
	Work() any
}

// Func adapts a factory function to an Operation.
func Func(t Type, factory func() any) Operation {
	return &funcOperation{t: t, factory: factory}
}

type funcOperation struct {
	t       Type
	factory func() any
}

func (o *funcOperation) Type() Type { return o.t }
func (o *funcOperation) Work() any  { return o.factory() }

// Sustainable is a caller-supplied wrapper around an Operation; it is the unit
// admitted into a sustainer.
//
// Sustainers key their bookkeeping by the Sustainable value itself, so
// implementations must be comparable. Pointer receivers are the usual choice.
type Sustainable interface {
	Operation() Operation
}

// Unit is a named Sustainable holding a fixed Operation.
type Unit struct {
	Name string
	Op   Operation
}

// Sustain wraps op in a new *Unit.
func Sustain(name string, op Operation) *Unit {
	return &Unit{Name: name, Op: op}
}

// Operation returns the wrapped operation.
func (u *Unit) Operation() Operation { return u.Op }

// String returns the unit name.
func (u *Unit) String() string { return u.Name }
