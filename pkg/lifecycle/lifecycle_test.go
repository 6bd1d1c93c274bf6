package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/omnisustain/pkg/work"
)

func TestNew(t *testing.T) {
	s := New()
	if s.State() != StateCreated {
		t.Errorf("initial state = %v, want Created", s.State())
	}
	if s.IsStarted() || s.IsStopped() || s.WasStarted() {
		t.Error("new primitive must report no transitions")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "Created"},
		{StateStarted, "Started"},
		{StateStopped, "Stopped"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestStart_Idempotent(t *testing.T) {
	var listener, effect int
	s := New(WithStartEffect(func() { effect++ }))
	s.OnStart(func() { listener++ })

	for i := 0; i < 5; i++ {
		s.Start()
	}

	if listener != 1 {
		t.Errorf("start listener calls = %d, want 1", listener)
	}
	if effect != 1 {
		t.Errorf("start effect calls = %d, want 1", effect)
	}
	if !s.IsStarted() || !s.WasStarted() {
		t.Error("primitive should be started")
	}
}

func TestStop_Idempotent(t *testing.T) {
	var listener, effect int
	s := New(WithStopEffect(func() { effect++ }))
	s.OnStop(func() { listener++ })

	s.Start()
	for i := 0; i < 5; i++ {
		s.Stop()
	}

	if listener != 1 {
		t.Errorf("stop listener calls = %d, want 1", listener)
	}
	if effect != 1 {
		t.Errorf("stop effect calls = %d, want 1", effect)
	}
	if s.IsStarted() {
		t.Error("IsStarted() = true after Stop")
	}
	if !s.IsStopped() || !s.WasStarted() {
		t.Error("primitive should be stopped and was-started")
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want Stopped", s.State())
	}
}

func TestStop_BeforeStartIsSafe(t *testing.T) {
	called := false
	s := New(WithStopEffect(func() { called = true }))
	s.OnStop(func() { called = true })

	s.Stop()

	if called {
		t.Error("stop listener/effect invoked without a prior Start")
	}
}

func TestStart_AfterStopDoesNotRestart(t *testing.T) {
	starts := 0
	s := New()
	s.OnStart(func() { starts++ })

	s.Start()
	s.Stop()
	s.Start()

	if starts != 1 {
		t.Errorf("start listener calls = %d, want 1", starts)
	}
	if s.IsStarted() {
		t.Error("stopped primitive must not start again")
	}
}

func TestListeners_OrderAndEffectLast(t *testing.T) {
	var order []string
	s := New(WithStartEffect(func() { order = append(order, "effect") }))
	s.OnStart(func() { order = append(order, "first") })
	s.OnStart(func() { order = append(order, "second") })

	s.Start()

	want := []string{"first", "second", "effect"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestListener_ReentrantStop(t *testing.T) {
	s := New()
	stops := 0
	s.OnStop(func() { stops++ })
	// A start listener that stops the primitive must not deadlock.
	s.OnStart(func() { s.Stop() })

	s.Start()

	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if !s.IsStopped() {
		t.Error("expected stopped")
	}
}

func TestStartStop_Concurrency(t *testing.T) {
	s := New()
	var starts, stops atomic.Int32
	s.OnStart(func() { starts.Add(1) })
	s.OnStop(func() { stops.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Start()
				_ = s.State()
				_ = s.IsStarted()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	if starts.Load() != 1 || stops.Load() != 1 {
		t.Errorf("starts=%d stops=%d, want 1/1", starts.Load(), stops.Load())
	}
}

func TestOperation_Handle(t *testing.T) {
	s := New()
	op := Of(s)
	if op.Type() != work.TypeStartStop {
		t.Errorf("Type() = %v", op.Type())
	}
	got, err := Handle(op)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got != s {
		t.Error("Handle returned a different primitive")
	}

	bad := work.Func(work.TypeStartStop, func() any { return "nope" })
	if _, err := Handle(bad); !errors.Is(err, work.ErrWrongHandle) {
		t.Errorf("Handle(bad) error = %v, want ErrWrongHandle", err)
	}
}

func TestBackoff_GrowsAndResets(t *testing.T) {
	b := NewBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if b.Current() != 4*time.Millisecond {
		t.Errorf("Current() = %v, want capped 4ms", b.Current())
	}
	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 1ms", b.Current())
	}
}

func TestBackoff_WaitCanceled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
