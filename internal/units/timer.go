package units

import (
	"context"
	"time"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/deferred"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// timer builds a deferred result that resolves u.Interval after it begins.
func (b *Builder) timer(u cliconfig.UnitConfig) work.Operation {
	logger := b.logger(u)
	return deferred.Operation(func() *deferred.Deferred {
		return deferred.Async(b.ctx(), func(ctx context.Context) error {
			t := time.NewTimer(u.Interval)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				logger.Info("timer fired", log.Duration("after", u.Interval))
				b.Events.inc(u.Name, u.Kind)
				return nil
			}
		})
	})
}
