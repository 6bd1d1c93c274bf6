package units

import (
	"time"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// tick builds a pivot that logs a heartbeat every u.Interval while started.
func (b *Builder) tick(u cliconfig.UnitConfig) work.Operation {
	logger := b.logger(u)
	return lifecycle.Operation(func() *lifecycle.StartStop {
		stop := make(chan struct{})
		return lifecycle.New(
			lifecycle.WithStartEffect(func() {
				b.exec().Go("tick "+u.Name, func() {
					t := time.NewTicker(u.Interval)
					defer t.Stop()
					for n := 1; ; n++ {
						select {
						case <-stop:
							return
						case <-t.C:
							logger.Debug("tick", log.Int("n", n))
							b.Events.inc(u.Name, u.Kind)
						}
					}
				})
			}),
			lifecycle.WithStopEffect(func() { close(stop) }),
		)
	})
}
