package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/bft-labs/omnisustain"
	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/internal/reload"
	"github.com/bft-labs/omnisustain/internal/status"
	"github.com/bft-labs/omnisustain/internal/units"
	"github.com/bft-labs/omnisustain/pkg/convert"
	"github.com/bft-labs/omnisustain/pkg/executor"
	"github.com/bft-labs/omnisustain/pkg/lifecycle"
	"github.com/bft-labs/omnisustain/pkg/log"
	"github.com/bft-labs/omnisustain/pkg/sustainer"
	"github.com/bft-labs/omnisustain/pkg/work"
)

func (c *cli) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sustain the configured units until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			logger, err := c.logger()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return c.run(ctx, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&c.cfg.StatusAddr, "status-addr", c.cfg.StatusAddr, "status server listen address (empty disables)")
	f.StringVar(&c.cfg.Target, "target", c.cfg.Target, "representation of the root sustainer (startstop, job, deferred)")
	f.StringVar(&c.cfg.FailurePolicy, "failure-policy", c.cfg.FailurePolicy, "unhandled unit failures: stop the unit or raise")
	f.DurationVar(&c.cfg.ShutdownTimeout, "shutdown-timeout", c.cfg.ShutdownTimeout, "time allowed for teardown")
	f.BoolVar(&c.cfg.Reload, "reload", c.cfg.Reload, "reload units when the config file changes")
	f.DurationVar(&c.cfg.ReloadDebounce, "reload-debounce", c.cfg.ReloadDebounce, "delay after a config change before reloading")
	return cmd
}

// daemon is the wired process: a root sustainer holding the status server,
// the reloader and a "units" sustainer for the configured units.
type daemon struct {
	logger  log.Logger
	exec    *executor.Pool
	conv    *convert.OmniConverter
	reg     *prometheus.Registry
	root    *sustainer.Sustainer
	units   *sustainer.Sustainer
	builder *units.Builder
	status  *status.Server
}

func (c *cli) newDaemon(ctx context.Context, logger log.Logger) (*daemon, error) {
	d := &daemon{logger: logger, reg: prometheus.NewRegistry()}
	d.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	d.exec = executor.New(logger)
	policy := convert.FailureStop
	if c.cfg.FailurePolicy == cliconfig.PolicyRaise {
		policy = convert.FailureRaise
	}
	d.conv = convert.New(d.exec, logger,
		convert.WithContext(ctx),
		convert.WithFailurePolicy(policy, func(err *convert.FailureError) {
			logger.Error("unit failed", log.Stringer("type", err.From), log.Err(err.Err))
		}),
	)

	metrics, err := sustainer.NewMetrics(d.reg)
	if err != nil {
		return nil, err
	}
	events, err := units.NewEvents(d.reg)
	if err != nil {
		return nil, err
	}

	opts := func(name string) []omnisustain.Option {
		return []omnisustain.Option{
			omnisustain.WithName(name),
			omnisustain.WithConverter(d.conv),
			omnisustain.WithExecutor(d.exec),
			omnisustain.WithLogger(logger),
			omnisustain.WithMetrics(metrics),
		}
	}
	if d.root, err = omnisustain.New(work.Type(c.cfg.Target), opts(cliconfig.RootSustainer)...); err != nil {
		return nil, err
	}
	if d.units, err = omnisustain.New(work.TypeStartStop, opts(cliconfig.UnitsSustainer)...); err != nil {
		return nil, err
	}
	if err := d.root.Sustain(d.units); err != nil {
		return nil, err
	}

	d.builder = &units.Builder{
		Context:   ctx,
		Logger:    logger,
		Executor:  d.exec,
		Converter: d.conv,
		Metrics:   metrics,
		Events:    events,
	}

	if c.cfg.StatusAddr != "" {
		d.status = status.New(c.cfg.StatusAddr, d.reg, logger)
		if err := d.root.Sustain(omnisustain.Sustain("status", d.status.Operation(ctx))); err != nil {
			return nil, err
		}
	}

	built, err := d.builder.Build(c.cfg.Units)
	if err != nil {
		return nil, err
	}
	for _, u := range built {
		if err := d.units.Sustain(u); err != nil {
			return nil, err
		}
	}
	d.setSources(built)

	if p := c.configFile(); c.cfg.Reload && p != "" {
		r, err := reload.New(reload.Config{
			Path:     p,
			Debounce: c.cfg.ReloadDebounce,
			Target:   d.units,
			Build:    d.builder.Build,
			OnApply: func(_ []cliconfig.UnitConfig, sustained []work.Sustainable) {
				d.setSources(sustained)
			},
			Logger:     logger,
			Registerer: d.reg,
		})
		if err != nil {
			return nil, err
		}
		if err := d.root.Sustain(omnisustain.Sustain("reload", r.Operation(ctx))); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// setSources lists the root, units and group sustainers on the status server.
func (d *daemon) setSources(sustained []work.Sustainable) {
	if d.status == nil {
		return
	}
	sources := []status.Source{d.root, d.units}
	for _, u := range sustained {
		if g, ok := u.(*sustainer.Sustainer); ok {
			sources = append(sources, g)
		}
	}
	d.status.SetSources(sources...)
}

func (c *cli) run(ctx context.Context, logger log.Logger) error {
	d, err := c.newDaemon(ctx, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	// Drive the root through the pivot regardless of its representation.
	op, err := d.conv.Convert(d.root.Operation(), work.TypeStartStop)
	if err != nil {
		return err
	}
	root, err := lifecycle.Handle(op)
	if err != nil {
		return err
	}
	root.Start()
	logger.Info("omnisustain running",
		log.String("target", c.cfg.Target), log.Int("units", len(c.cfg.Units)))

	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping...")
	case <-d.root.Done():
		logger.Warn("root sustainer stopped on its own")
	}

	root.Stop()
	return d.shutdown(c.cfg.ShutdownTimeout)
}

func (d *daemon) shutdown(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	select {
	case <-d.root.Done():
	case <-time.After(timeout):
		return errors.New("shutdown timed out waiting for units to stop")
	}
	if err := d.exec.WaitWithTimeout(time.Until(deadline)); err != nil {
		d.logger.Warn("background goroutines still running at exit", log.Err(err))
	}
	d.logger.Info("stopped")
	return nil
}
