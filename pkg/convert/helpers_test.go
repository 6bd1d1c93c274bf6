package convert

import (
	"testing"
	"time"

	"github.com/bft-labs/omnisustain/pkg/executor"
)

const waitFor = 2 * time.Second

// eventually polls cond until it holds or the deadline passes.
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

func testEnv() Env {
	return Env{Executor: executor.New(nil)}.withDefaults()
}
