package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/omnisustain/internal/cliconfig"
	"github.com/bft-labs/omnisustain/pkg/log"
)

const helpDescription = `
Keep a tree of long-running units alive and bring it down cleanly.

Units are declared in a TOML file as [[unit]] tables:
  - watch: follow a path for file changes (runs as a job)
  - tick:  log a heartbeat at an interval (runs as a start/stop pivot)
  - timer: resolve once after a delay (runs as a deferred result)

Units sharing a group are sustained by a nested sustainer. Configure via
file, OMNISUSTAIN_* environment variables, or flags (flags win).
`

var exampleUsage = strings.TrimSpace(`
  omnisustain run --config $HOME/.omnisustain/config.toml
  omnisustain run --target deferred --status-addr :9464
  omnisustain units
  omnisustain check
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli holds state shared by the subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	out     io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.NewZerologAdapter(zerolog.InfoLevel).Error("omnisustain", log.Err(err))
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig(), out: out}

	root := &cobra.Command{
		Use:           "omnisustain",
		Short:         "Sustain heterogeneous long-running units behind one handle",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.omnisustain/config.toml)")
	root.PersistentFlags().StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.cfg.LogJSON, "log-json", c.cfg.LogJSON, "log as JSON instead of console output")

	root.AddCommand(c.runCmd(), c.unitsCmd(), c.checkCmd())
	return root
}

// configFile returns the config path to read, or "" if none exists.
func (c *cli) configFile() string {
	p := c.cfgPath
	if p == "" {
		p = cliconfig.DefaultConfigPath()
	}
	if p == "" || !cliconfig.FileExists(p) {
		return ""
	}
	return p
}

// load layers the config file, then OMNISUSTAIN_* variables, under the flags
// set on cmd, and validates the result.
func (c *cli) load(cmd *cobra.Command) error {
	if c.cfgPath != "" && !cliconfig.FileExists(c.cfgPath) {
		return fmt.Errorf("config file %s not found", c.cfgPath)
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if p := c.configFile(); p != "" {
		fc, err := cliconfig.LoadFileConfig(p)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	return c.cfg.Validate()
}

func (c *cli) logger() (*log.ZerologAdapter, error) {
	level, err := log.ParseLevel(c.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.NewZerologAdapterTo(os.Stderr, level, c.cfg.LogJSON), nil
}
