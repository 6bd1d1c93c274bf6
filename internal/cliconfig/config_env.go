package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "OMNISUSTAIN_"

// ApplyEnvConfig applies configuration from environment variables (OMNISUSTAIN_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("status-addr", os.Getenv(EnvPrefix+"STATUS_ADDR"), &cfg.StatusAddr)
	s.setString("target", os.Getenv(EnvPrefix+"TARGET"), &cfg.Target)
	s.setString("failure-policy", os.Getenv(EnvPrefix+"FAILURE_POLICY"), &cfg.FailurePolicy)

	if err := s.setBoolFromString("log-json", os.Getenv(EnvPrefix+"LOG_JSON"), &cfg.LogJSON); err != nil {
		return err
	}
	if err := s.setBoolFromString("reload", os.Getenv(EnvPrefix+"RELOAD"), &cfg.Reload); err != nil {
		return err
	}

	if err := s.setDuration("shutdown-timeout", os.Getenv(EnvPrefix+"SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reload-debounce", os.Getenv(EnvPrefix+"RELOAD_DEBOUNCE"), &cfg.ReloadDebounce); err != nil {
		return err
	}

	return nil
}
