package convert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/work"
)

func TestIdentity(t *testing.T) {
	src := lifecycle.Of(lifecycle.New())
	got, err := Identity(work.TypeStartStop).Convert(src)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if got != src {
		t.Error("identity must return the source unchanged")
	}
}

func TestFunc_RejectsWrongSource(t *testing.T) {
	uc := PivotToJob(testEnv())
	if _, err := uc.Convert(job.Of(job.New(context.Background(), func(context.Context) error { return nil }))); !errors.Is(err, ErrSourceType) {
		t.Errorf("Convert(job) error = %v, want ErrSourceType", err)
	}
	if _, err := uc.Convert(nil); !errors.Is(err, ErrNilOperation) {
		t.Errorf("Convert(nil) error = %v, want ErrNilOperation", err)
	}
}

func TestPivotToJob_StartAndCancel(t *testing.T) {
	p := lifecycle.New()
	op, err := PivotToJob(testEnv()).Convert(lifecycle.Of(p))
	if err != nil {
		t.Fatal(err)
	}
	j, err := job.Handle(op)
	if err != nil {
		t.Fatal(err)
	}

	if p.WasStarted() {
		t.Fatal("pivot started before the job")
	}
	j.Start()
	eventually(t, "pivot started", p.IsStarted)

	j.Cancel()
	eventually(t, "pivot stopped", p.IsStopped)
	eventually(t, "job completed", j.IsCompleted)
}

func TestPivotToJob_PivotStopCancelsJob(t *testing.T) {
	p := lifecycle.New()
	op, _ := PivotToJob(testEnv()).Convert(lifecycle.Of(p))
	j, _ := job.Handle(op)

	var stops int
	var mu sync.Mutex
	p.OnStop(func() {
		mu.Lock()
		stops++
		mu.Unlock()
	})

	j.Start()
	eventually(t, "pivot started", p.IsStarted)
	p.Stop()
	eventually(t, "job completed", j.IsCompleted)

	if !errors.Is(j.Err(), context.Canceled) {
		t.Errorf("job Err() = %v, want context.Canceled", j.Err())
	}
	mu.Lock()
	defer mu.Unlock()
	if stops != 1 {
		t.Errorf("pivot stop listener ran %d times, want 1", stops)
	}
}

func TestPivotToJob_AlreadyStoppedPivot(t *testing.T) {
	p := lifecycle.New()
	p.Start()
	p.Stop()

	op, _ := PivotToJob(testEnv()).Convert(lifecycle.Of(p))
	j, _ := job.Handle(op)
	j.Start()
	eventually(t, "job completed", j.IsCompleted)
}

func TestJobToPivot_StartStop(t *testing.T) {
	running := make(chan struct{})
	var once sync.Once
	src := job.Operation(func() *job.Job {
		return job.New(context.Background(), func(ctx context.Context) error {
			once.Do(func() { close(running) })
			<-ctx.Done()
			return ctx.Err()
		})
	})

	op, err := JobToPivot(testEnv()).Convert(src)
	if err != nil {
		t.Fatal(err)
	}
	p, err := lifecycle.Handle(op)
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	eventually(t, "job running", func() bool {
		select {
		case <-running:
			return true
		default:
			return false
		}
	})

	p.Stop()
	if !p.IsStopped() {
		t.Error("pivot not stopped")
	}
}

func TestJobToPivot_JobCompletionStopsPivot(t *testing.T) {
	j := job.New(context.Background(), func(context.Context) error { return nil })
	op, _ := JobToPivot(testEnv()).Convert(job.Of(j))
	p, _ := lifecycle.Handle(op)

	p.Start()
	eventually(t, "pivot stopped after job returned", p.IsStopped)
}

func TestJobToPivot_StopCancelsJob(t *testing.T) {
	j := job.Go(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	op, _ := JobToPivot(testEnv()).Convert(job.Of(j))
	p, _ := lifecycle.Handle(op)

	p.Start()
	// The wrapper goroutine attaches to the job asynchronously; stopping
	// at any point must still cancel it.
	p.Stop()
	eventually(t, "job canceled", j.IsCompleted)
	if !j.IsCancelled() {
		t.Error("job should have been canceled")
	}
}

func TestRoundTrip_PivotJobPivot(t *testing.T) {
	env := testEnv()
	orig := lifecycle.New()

	jobOp, _ := PivotToJob(env).Convert(lifecycle.Of(orig))
	backOp, _ := JobToPivot(env).Convert(jobOp)
	back, err := lifecycle.Handle(backOp)
	if err != nil {
		t.Fatal(err)
	}

	back.Start()
	eventually(t, "original started", orig.IsStarted)

	back.Stop()
	eventually(t, "original stopped", orig.IsStopped)
}

func TestRoundTrip_PivotJobPivot_OriginalStopPropagates(t *testing.T) {
	env := testEnv()
	orig := lifecycle.New()

	jobOp, _ := PivotToJob(env).Convert(lifecycle.Of(orig))
	backOp, _ := JobToPivot(env).Convert(jobOp)
	back, _ := lifecycle.Handle(backOp)

	back.Start()
	eventually(t, "original started", orig.IsStarted)

	orig.Stop()
	eventually(t, "converted-back pivot stopped", back.IsStopped)
}

func TestPivotToDeferred(t *testing.T) {
	p := lifecycle.New()
	op, _ := PivotToDeferred(testEnv()).Convert(lifecycle.Of(p))
	d, err := deferred.Handle(op)
	if err != nil {
		t.Fatal(err)
	}

	if !p.IsStarted() {
		t.Fatal("pivot must start when the deferred is created")
	}
	if d.IsCompleted() {
		t.Fatal("deferred completed early")
	}

	p.Stop()
	eventually(t, "deferred resolved", d.IsCompleted)
	if d.Err() != nil {
		t.Errorf("deferred Err() = %v, want success", d.Err())
	}
}

func TestPivotToDeferred_CancelStopsPivot(t *testing.T) {
	p := lifecycle.New()
	op, _ := PivotToDeferred(testEnv()).Convert(lifecycle.Of(p))
	d, _ := deferred.Handle(op)

	d.Cancel()
	if !p.IsStopped() {
		t.Error("canceling the deferred must stop the pivot")
	}
	if !d.IsCancelled() {
		t.Errorf("deferred should stay canceled, Err() = %v", d.Err())
	}
}

func TestRoundTrip_PivotDeferredPivot(t *testing.T) {
	env := testEnv()
	orig := lifecycle.New()

	defOp, _ := PivotToDeferred(env).Convert(lifecycle.Of(orig))
	backOp, _ := DeferredToPivot(env).Convert(defOp)
	back, _ := lifecycle.Handle(backOp)

	back.Start()
	eventually(t, "original started", orig.IsStarted)

	orig.Stop()
	eventually(t, "converted-back pivot stopped", back.IsStopped)

	orig2 := lifecycle.New()
	defOp2, _ := PivotToDeferred(env).Convert(lifecycle.Of(orig2))
	backOp2, _ := DeferredToPivot(env).Convert(defOp2)
	back2, _ := lifecycle.Handle(backOp2)
	back2.Start()
	back2.Stop()
	eventually(t, "original stopped from converted side", orig2.IsStopped)
}

func TestDeferredToPivot_DoesNotBeginUntilStart(t *testing.T) {
	calls := 0
	src := deferred.Operation(func() *deferred.Deferred {
		calls++
		return deferred.New()
	})
	op, _ := DeferredToPivot(testEnv()).Convert(src)
	p, _ := lifecycle.Handle(op)

	if calls != 0 {
		t.Fatalf("deferred begun before Start (calls=%d)", calls)
	}
	p.Start()
	if calls != 1 {
		t.Errorf("calls after Start = %d, want 1", calls)
	}
}

func TestDeferredToPivot_SuccessAndCancellationStop(t *testing.T) {
	tests := []struct {
		name     string
		complete func(d *deferred.Deferred)
	}{
		{"success", func(d *deferred.Deferred) { d.Complete() }},
		{"cancel", func(d *deferred.Deferred) { d.Cancel() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deferred.New()
			op, _ := DeferredToPivot(testEnv()).Convert(deferred.Operation(func() *deferred.Deferred { return d }))
			p, _ := lifecycle.Handle(op)
			p.Start()

			tt.complete(d)
			if !p.IsStopped() {
				t.Error("pivot should stop")
			}
		})
	}
}

func TestDeferredToPivot_StopCancelsDeferred(t *testing.T) {
	d := deferred.New()
	op, _ := DeferredToPivot(testEnv()).Convert(deferred.Operation(func() *deferred.Deferred { return d }))
	p, _ := lifecycle.Handle(op)

	p.Start()
	p.Stop()
	if !d.IsCancelled() {
		t.Errorf("deferred should be canceled, Err() = %v", d.Err())
	}
}

func TestDeferredToPivot_FailureRaise(t *testing.T) {
	panicked := make(chan executor.PanicInfo, 1)
	env := Env{Executor: executor.New(nil, executor.WithPanicHandler(func(info executor.PanicInfo) {
		panicked <- info
	}))}.withDefaults()

	d := deferred.New()
	op, _ := DeferredToPivot(env).Convert(deferred.Operation(func() *deferred.Deferred { return d }))
	p, _ := lifecycle.Handle(op)
	p.Start()

	boom := errors.New("disk full")
	d.Fail(boom)

	info := <-panicked
	ferr, ok := info.Value.(*FailureError)
	if !ok {
		t.Fatalf("panic value = %T, want *FailureError", info.Value)
	}
	if !errors.Is(ferr, boom) || !errors.Is(ferr, work.ErrUnhandledFailure) {
		t.Errorf("failure error %v should match both the cause and ErrUnhandledFailure", ferr)
	}
	if p.IsStopped() {
		t.Error("raise policy leaves the pivot untouched")
	}
}

func TestDeferredToPivot_FailureRaiseRepanicsFromWait(t *testing.T) {
	pool := executor.New(nil, executor.WithPanicPolicy(executor.RepanicOnWait))
	env := Env{Executor: pool}.withDefaults()

	d := deferred.New()
	op, _ := DeferredToPivot(env).Convert(deferred.Operation(func() *deferred.Deferred { return d }))
	p, _ := lifecycle.Handle(op)
	p.Start()

	d.Fail(errors.New("disk full"))

	defer func() {
		if recover() == nil {
			t.Error("Wait() should re-raise the failure panic")
		}
	}()
	pool.Wait()
}

func TestDeferredToPivot_FailureStop(t *testing.T) {
	var got *FailureError
	env := Env{
		Executor:  executor.New(nil),
		Policy:    FailureStop,
		OnFailure: func(err *FailureError) { got = err },
	}.withDefaults()

	d := deferred.New()
	op, _ := DeferredToPivot(env).Convert(deferred.Operation(func() *deferred.Deferred { return d }))
	p, _ := lifecycle.Handle(op)
	p.Start()

	d.Fail(errors.New("disk full"))

	if !p.IsStopped() {
		t.Error("stop policy must stop the pivot")
	}
	if got == nil || got.From != work.TypeDeferred {
		t.Errorf("failure handler got %+v", got)
	}
}
