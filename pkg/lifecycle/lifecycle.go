package lifecycle

import "sync"

// State represents the lifecycle state of a StartStop.
type State int

const (
	StateCreated State = iota
	StateStarted
	StateStopped
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Option configures a StartStop.
type Option func(*StartStop)

// WithStartEffect sets a side effect run after the start listeners.
func WithStartEffect(fn func()) Option {
	return func(s *StartStop) { s.startEffect = fn }
}

// WithStopEffect sets a side effect run after the stop listeners.
func WithStopEffect(fn func()) Option {
	return func(s *StartStop) { s.stopEffect = fn }
}

// StartStop is the pivot lifecycle primitive. It is safe for concurrent use;
// listeners and effects are called without holding the internal lock.
type StartStop struct {
	mu             sync.Mutex
	started        bool
	stopped        bool
	hasEverStarted bool

	onStart []func()
	onStop  []func()

	startEffect func()
	stopEffect  func()
}

// New creates a StartStop in StateCreated.
func New(opts ...Option) *StartStop {
	s := &StartStop{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start transitions Created -> Started. Only the first call has effect.
func (s *StartStop) Start() {
	s.mu.Lock()
	if s.hasEverStarted {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.hasEverStarted = true
	listeners := append([]func(){}, s.onStart...)
	effect := s.startEffect
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	if effect != nil {
		effect()
	}
}

// Stop transitions Started -> Stopped. It has no effect before Start or after
// a previous Stop.
func (s *StartStop) Stop() {
	s.mu.Lock()
	if !s.hasEverStarted || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.stopped = true
	listeners := append([]func(){}, s.onStop...)
	effect := s.stopEffect
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	if effect != nil {
		effect()
	}
}

// OnStart registers a start listener. Listeners registered after Start are
// not invoked.
func (s *StartStop) OnStart(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = append(s.onStart, fn)
}

// OnStop registers a stop listener. Listeners registered after Stop are not
// invoked.
func (s *StartStop) OnStop(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStop = append(s.onStop, fn)
}

// IsStarted reports whether the primitive is currently started.
func (s *StartStop) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// IsStopped reports whether Stop has taken effect.
func (s *StartStop) IsStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// WasStarted reports whether Start has ever taken effect.
func (s *StartStop) WasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasEverStarted
}

// State returns the current lifecycle state.
func (s *StartStop) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return StateStopped
	case s.started:
		return StateStarted
	default:
		return StateCreated
	}
}
