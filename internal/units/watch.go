package units

import (
	"context"
	"errors"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

var errWatcherClosed = errors.New("watcher closed")

// watch builds a job that follows u.Path until canceled. Setup failures are
// retried with backoff.
func (b *Builder) watch(u cliconfig.UnitConfig) work.Operation {
	logger := b.logger(u)
	return job.Operation(func() *job.Job {
		return job.New(b.ctx(), func(ctx context.Context) error {
			backoff := lifecycle.NewBackoff(b.retry())
			for {
				err := b.watchOnce(ctx, u, logger, backoff.Reset)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("watch failed, retrying",
					log.String("path", u.Path), log.Err(err), log.Duration("backoff", backoff.Current()))
				if err := backoff.Wait(ctx); err != nil {
					return err
				}
			}
		})
	})
}

func (b *Builder) watchOnce(ctx context.Context, u cliconfig.UnitConfig, logger log.Logger, ready func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(u.Path); err != nil {
		return err
	}
	ready()
	logger.Info("watching", log.String("path", u.Path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errWatcherClosed
			}
			logger.Debug("file event", log.String("name", ev.Name), log.Stringer("op", ev.Op))
			b.Events.inc(u.Name, u.Kind)
		case err, ok := <-w.Errors:
			if !ok {
				return errWatcherClosed
			}
			return err
		}
	}
}
