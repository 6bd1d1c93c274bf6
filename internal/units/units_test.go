package units

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/sustainer"
	"github.com/bft-labs/omnisustain/pkg/work"
)

const waitFor = 3 * time.Second

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	events, err := NewEvents(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	return &Builder{Events: events, RetryInitial: 10 * time.Millisecond, RetryMax: 50 * time.Millisecond}
}

func TestRepresentation(t *testing.T) {
	tests := []struct {
		kind string
		want work.Type
	}{
		{cliconfig.KindWatch, work.TypeJob},
		{cliconfig.KindTick, work.TypeStartStop},
		{cliconfig.KindTimer, work.TypeDeferred},
	}
	for _, tt := range tests {
		got, err := Representation(tt.kind)
		if err != nil || got != tt.want {
			t.Errorf("Representation(%q) = %v, %v; want %v", tt.kind, got, err, tt.want)
		}
	}
	if _, err := Representation("cron"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Representation(cron) error = %v", err)
	}
}

func TestTick_RunsWhileStarted(t *testing.T) {
	b := newBuilder(t)
	u := cliconfig.UnitConfig{Name: "hb", Kind: cliconfig.KindTick, Interval: 5 * time.Millisecond}
	op, err := b.Operation(u)
	if err != nil {
		t.Fatal(err)
	}
	p, err := lifecycle.Handle(op)
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	eventually(t, "ticks", func() bool { return testutil.ToFloat64(b.Events.Count("hb", cliconfig.KindTick)) >= 2 })

	p.Stop()
	time.Sleep(20 * time.Millisecond)
	after := testutil.ToFloat64(b.Events.Count("hb", cliconfig.KindTick))
	time.Sleep(30 * time.Millisecond)
	if got := testutil.ToFloat64(b.Events.Count("hb", cliconfig.KindTick)); got != after {
		t.Errorf("ticks continued after stop: %v -> %v", after, got)
	}
}

func TestTimer_ResolvesAfterInterval(t *testing.T) {
	b := newBuilder(t)
	op, _ := b.Operation(cliconfig.UnitConfig{Name: "warmup", Kind: cliconfig.KindTimer, Interval: 10 * time.Millisecond})

	d, err := deferred.Handle(op)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("timer Err() = %v", err)
	}
	if got := testutil.ToFloat64(b.Events.Count("warmup", cliconfig.KindTimer)); got != 1 {
		t.Errorf("timer events = %v, want 1", got)
	}
}

func TestTimer_Cancel(t *testing.T) {
	b := newBuilder(t)
	op, _ := b.Operation(cliconfig.UnitConfig{Name: "slow", Kind: cliconfig.KindTimer, Interval: time.Hour})
	d, _ := deferred.Handle(op)

	d.Cancel()
	if !d.IsCancelled() {
		t.Errorf("Err() = %v, want cancellation", d.Err())
	}
}

func TestWatch_ObservesFileEvents(t *testing.T) {
	dir := t.TempDir()
	b := newBuilder(t)
	op, _ := b.Operation(cliconfig.UnitConfig{Name: "cfg", Kind: cliconfig.KindWatch, Path: dir})

	j, err := job.Handle(op)
	if err != nil {
		t.Fatal(err)
	}
	j.Start()
	defer j.Cancel()

	// The watcher is added asynchronously; keep writing until an event lands.
	target := filepath.Join(dir, "app.toml")
	eventually(t, "file event", func() bool {
		_ = os.WriteFile(target, []byte("x = 1\n"), 0o644)
		return testutil.ToFloat64(b.Events.Count("cfg", cliconfig.KindWatch)) > 0
	})

	j.Cancel()
	eventually(t, "job completed", j.IsCompleted)
	if !j.IsCancelled() {
		t.Errorf("job Err() = %v, want cancellation", j.Err())
	}
}

func TestWatch_RetriesMissingPathUntilCanceled(t *testing.T) {
	b := newBuilder(t)
	missing := filepath.Join(t.TempDir(), "not-yet")
	op, _ := b.Operation(cliconfig.UnitConfig{Name: "late", Kind: cliconfig.KindWatch, Path: missing})

	j, _ := job.Handle(op)
	j.Start()
	time.Sleep(30 * time.Millisecond)
	if j.IsCompleted() {
		t.Fatalf("watch gave up on a missing path: %v", j.Err())
	}

	// Creating the path lets the next retry succeed.
	if err := os.Mkdir(missing, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, "file event after retry", func() bool {
		_ = os.WriteFile(filepath.Join(missing, "f"), []byte("y"), 0o644)
		return testutil.ToFloat64(b.Events.Count("late", cliconfig.KindWatch)) > 0
	})

	j.Cancel()
	eventually(t, "job completed", j.IsCompleted)
}

func TestOperation_UnknownKind(t *testing.T) {
	b := newBuilder(t)
	if _, err := b.Operation(cliconfig.UnitConfig{Name: "x", Kind: "cron"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("error = %v, want ErrUnknownKind", err)
	}
	if _, err := b.Build([]cliconfig.UnitConfig{{Name: "x", Kind: "cron"}}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Build error = %v, want ErrUnknownKind", err)
	}
}

func TestBuild_Groups(t *testing.T) {
	b := newBuilder(t)
	cfgs := []cliconfig.UnitConfig{
		{Name: "a", Kind: cliconfig.KindTick, Interval: time.Hour},
		{Name: "b", Kind: cliconfig.KindTick, Interval: time.Hour, Group: "bg"},
		{Name: "c", Kind: cliconfig.KindTimer, Interval: time.Hour, Group: "bg"},
		{Name: "d", Kind: cliconfig.KindTimer, Interval: time.Hour},
	}

	got, err := b.Build(cfgs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Build() returned %d units, want 3", len(got))
	}

	group, ok := got[1].(*sustainer.Sustainer)
	if !ok {
		t.Fatalf("second unit is %T, want *sustainer.Sustainer", got[1])
	}
	if group.Name() != "bg" {
		t.Errorf("group name = %q", group.Name())
	}
	if u, ok := got[2].(*work.Unit); !ok || u.Name != "d" {
		t.Errorf("third unit = %v", got[2])
	}

	// Starting the group admits its buffered members.
	root, err := lifecycle.Handle(group.Operation())
	if err != nil {
		t.Fatal(err)
	}
	root.Start()
	eventually(t, "group members admitted", func() bool { return group.Len() == 2 })
	root.Stop()
	<-group.Done()
}

func TestNewEvents_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewEvents(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEvents(reg)
	if err != nil {
		t.Fatal(err)
	}
	a.inc("u", "tick")
	if got := testutil.ToFloat64(b.Count("u", "tick")); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}

	var nilEvents *Events
	nilEvents.inc("u", "tick")
}
