// Package reload watches the config file and swaps the sustained unit set
// when it changes.
package reload

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/job"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/work"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 250 * time.Millisecond

// Target receives the rebuilt unit set.
type Target interface {
	ReleaseAll()
	Sustain(u work.Sustainable) error
}

// BuildFunc turns unit declarations into Sustainables.
type BuildFunc func(units []cliconfig.UnitConfig) ([]work.Sustainable, error)

// Config configures a Reloader.
type Config struct {
	// Path is the config file to watch.
	Path     string
	Debounce time.Duration
	Target   Target
	Build    BuildFunc

	// OnApply is called after a new unit set has been handed to Target.
	OnApply func(units []cliconfig.UnitConfig, sustained []work.Sustainable)

	Logger     log.Logger
	Registerer prometheus.Registerer
}

// Reloader reapplies the unit set on config changes.
type Reloader struct {
	cfg     Config
	logger  log.Logger
	reloads *prometheus.CounterVec

	mu       sync.Mutex
	debounce *time.Timer
	applying sync.Mutex
}

// New creates a Reloader.
func New(cfg Config) (*Reloader, error) {
	if cfg.Path == "" {
		return nil, errors.New("reload: config path is required")
	}
	if cfg.Target == nil || cfg.Build == nil {
		return nil, errors.New("reload: target and build are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	cfg.Path = filepath.Clean(cfg.Path)

	r := &Reloader{
		cfg:    cfg,
		logger: log.With(cfg.Logger, log.String("component", "reload"), log.String("path", cfg.Path)),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnisustain_config_reloads_total",
				Help: "Total config reloads by result",
			},
			[]string{"result"},
		),
	}
	if cfg.Registerer != nil {
		if err := cfg.Registerer.Register(r.reloads); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Operation returns the watcher as a job.
func (r *Reloader) Operation(ctx context.Context) work.Operation {
	return job.Operation(func() *job.Job {
		return job.New(ctx, r.Watch)
	})
}

// Watch follows the config file until ctx is done. The directory is watched
// so editors that replace the file are seen.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	defer r.cancelPending()

	if err := watcher.Add(filepath.Dir(r.cfg.Path)); err != nil {
		return err
	}
	r.logger.Info("watching config")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.cfg.Path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (r *Reloader) schedule(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.debounce != nil {
		r.debounce.Stop()
	}
	r.debounce = time.AfterFunc(r.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.Reload(); err != nil {
			r.logger.Error("config reload failed, keeping current units", log.Err(err))
		}
	})
}

func (r *Reloader) cancelPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.debounce != nil {
		r.debounce.Stop()
	}
}

// Reload reads the unit set and applies it. On any error the current units
// are left alone.
func (r *Reloader) Reload() error {
	r.applying.Lock()
	defer r.applying.Unlock()

	units, err := cliconfig.LoadUnits(r.cfg.Path)
	if err != nil {
		r.reloads.WithLabelValues("invalid").Inc()
		return err
	}
	sustained, err := r.cfg.Build(units)
	if err != nil {
		r.reloads.WithLabelValues("invalid").Inc()
		return err
	}

	r.cfg.Target.ReleaseAll()
	var errs []error
	for _, u := range sustained {
		if err := r.cfg.Target.Sustain(u); err != nil {
			errs = append(errs, err)
		}
	}
	if r.cfg.OnApply != nil {
		r.cfg.OnApply(units, sustained)
	}

	if err := errors.Join(errs...); err != nil {
		r.reloads.WithLabelValues("partial").Inc()
		return err
	}
	r.reloads.WithLabelValues("ok").Inc()
	r.logger.Info("config reloaded", log.Int("units", len(units)))
	return nil
}
