package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LogLevel        string     `toml:"log_level"`
	LogJSON         *bool      `toml:"log_json"`
	StatusAddr      *string    `toml:"status_addr"`
	Target          string     `toml:"target"`
	FailurePolicy   string     `toml:"failure_policy"`
	ShutdownTimeout string     `toml:"shutdown_timeout"`
	Reload          *bool      `toml:"reload"`
	ReloadDebounce  string     `toml:"reload_debounce"`
	Units           []FileUnit `toml:"unit"`
}

// FileUnit is one [[unit]] table.
type FileUnit struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind"`
	Group    string `toml:"group"`
	Path     string `toml:"path"`
	Interval string `toml:"interval"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.omnisustain/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".omnisustain", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map). Units have
// no flags and always come from the file.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("target", fc.Target, &cfg.Target)
	s.setString("failure-policy", fc.FailurePolicy, &cfg.FailurePolicy)

	// An explicit empty status_addr disables the server.
	if fc.StatusAddr != nil && !changed["status-addr"] {
		cfg.StatusAddr = *fc.StatusAddr
	}

	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setBool("reload", fc.Reload, &cfg.Reload)

	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reload-debounce", fc.ReloadDebounce, &cfg.ReloadDebounce); err != nil {
		return err
	}

	units, err := fc.units()
	if err != nil {
		return err
	}
	cfg.Units = units
	return nil
}

func (fc FileConfig) units() ([]UnitConfig, error) {
	if len(fc.Units) == 0 {
		return nil, nil
	}
	out := make([]UnitConfig, 0, len(fc.Units))
	for _, fu := range fc.Units {
		u := UnitConfig{
			Name:  fu.Name,
			Kind:  fu.Kind,
			Group: fu.Group,
			Path:  fu.Path,
		}
		if fu.Interval != "" {
			d, err := time.ParseDuration(fu.Interval)
			if err != nil {
				return nil, fmt.Errorf("unit %s: parse interval: %w", fu.Name, err)
			}
			u.Interval = d
		}
		out = append(out, u)
	}
	return out, nil
}

// LoadUnits reads only the unit declarations from path and validates them.
func LoadUnits(path string) ([]UnitConfig, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	units, err := fc.units()
	if err != nil {
		return nil, err
	}
	if err := ValidateUnits(units); err != nil {
		return nil, err
	}
	return units, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
