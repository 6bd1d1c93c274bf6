package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit kinds.
const (
	KindWatch = "watch"
	KindTick  = "tick"
	KindTimer = "timer"
)

// Names of the daemon's built-in sustainers. Groups may not reuse them.
const (
	RootSustainer  = "root"
	UnitsSustainer = "units"
)

// Failure policy names.
const (
	PolicyRaise = "raise"
	PolicyStop  = "stop"
)

// Config holds CLI configuration for omnisustain.
type Config struct {
	LogLevel string
	LogJSON  bool

	// StatusAddr is the listen address of the status server. Empty disables it.
	StatusAddr string

	// Target is the representation the root sustainer exposes.
	Target string

	FailurePolicy   string
	ShutdownTimeout time.Duration

	Reload         bool
	ReloadDebounce time.Duration

	Units []UnitConfig
}

// UnitConfig declares one sustained unit.
type UnitConfig struct {
	Name string
	Kind string

	// Group places the unit in a nested sustainer of that name.
	Group string

	// Path is watched by watch units.
	Path string

	// Interval is the heartbeat period of tick units and the delay of timer units.
	Interval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:        "info",
		StatusAddr:      "127.0.0.1:9464",
		Target:          "job",
		FailurePolicy:   PolicyStop,
		ShutdownTimeout: 10 * time.Second,
		Reload:          true,
		ReloadDebounce:  250 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Target {
	case "startstop", "job", "deferred":
	default:
		return fmt.Errorf("target must be one of startstop, job, deferred (got %q)", c.Target)
	}

	switch c.FailurePolicy {
	case PolicyRaise, PolicyStop:
	default:
		return fmt.Errorf("failure-policy must be %q or %q (got %q)", PolicyRaise, PolicyStop, c.FailurePolicy)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Reload && c.ReloadDebounce <= 0 {
		return fmt.Errorf("reload debounce must be positive")
	}

	return ValidateUnits(c.Units)
}

// ValidateUnits checks unit declarations.
func ValidateUnits(units []UnitConfig) error {
	seen := make(map[string]bool, len(units))
	for i, u := range units {
		if u.Name == "" {
			return fmt.Errorf("unit %d: name is required", i)
		}
		if seen[u.Name] {
			return fmt.Errorf("unit %s: duplicate name", u.Name)
		}
		seen[u.Name] = true

		if u.Group == RootSustainer || u.Group == UnitsSustainer {
			return fmt.Errorf("unit %s: group name %q is reserved", u.Name, u.Group)
		}

		switch u.Kind {
		case KindWatch:
			if u.Path == "" {
				return fmt.Errorf("unit %s: watch requires a path", u.Name)
			}
		case KindTick, KindTimer:
			if u.Interval <= 0 {
				return fmt.Errorf("unit %s: %s requires a positive interval", u.Name, u.Kind)
			}
		default:
			return fmt.Errorf("unit %s: unknown kind %q", u.Name, u.Kind)
		}
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
