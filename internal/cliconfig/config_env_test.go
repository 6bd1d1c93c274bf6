package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"OMNISUSTAIN_LOG_LEVEL":        "debug",
				"OMNISUSTAIN_LOG_JSON":         "true",
				"OMNISUSTAIN_STATUS_ADDR":      ":9000",
				"OMNISUSTAIN_TARGET":           "deferred",
				"OMNISUSTAIN_FAILURE_POLICY":   "raise",
				"OMNISUSTAIN_SHUTDOWN_TIMEOUT": "30s",
				"OMNISUSTAIN_RELOAD":           "0",
				"OMNISUSTAIN_RELOAD_DEBOUNCE":  "1s",
			},
			changed: map[string]bool{},
			expected: Config{
				LogLevel:        "debug",
				LogJSON:         true,
				StatusAddr:      ":9000",
				Target:          "deferred",
				FailurePolicy:   "raise",
				ShutdownTimeout: 30 * time.Second,
				Reload:          false,
				ReloadDebounce:  time.Second,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"OMNISUSTAIN_TARGET":    "deferred",
				"OMNISUSTAIN_LOG_LEVEL": "warn",
			},
			changed: map[string]bool{"target": true},
			expected: Config{
				LogLevel: "warn",
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"OMNISUSTAIN_SHUTDOWN_TIMEOUT": "never",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid bool",
			envVars: map[string]string{
				"OMNISUSTAIN_RELOAD": "maybe",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			var cfg Config
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}

			if cfg.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.expected.LogLevel)
			}
			if cfg.LogJSON != tt.expected.LogJSON {
				t.Errorf("LogJSON = %v, want %v", cfg.LogJSON, tt.expected.LogJSON)
			}
			if cfg.StatusAddr != tt.expected.StatusAddr {
				t.Errorf("StatusAddr = %v, want %v", cfg.StatusAddr, tt.expected.StatusAddr)
			}
			if cfg.Target != tt.expected.Target {
				t.Errorf("Target = %v, want %v", cfg.Target, tt.expected.Target)
			}
			if cfg.FailurePolicy != tt.expected.FailurePolicy {
				t.Errorf("FailurePolicy = %v, want %v", cfg.FailurePolicy, tt.expected.FailurePolicy)
			}
			if cfg.ShutdownTimeout != tt.expected.ShutdownTimeout {
				t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, tt.expected.ShutdownTimeout)
			}
			if cfg.Reload != tt.expected.Reload {
				t.Errorf("Reload = %v, want %v", cfg.Reload, tt.expected.Reload)
			}
			if cfg.ReloadDebounce != tt.expected.ReloadDebounce {
				t.Errorf("ReloadDebounce = %v, want %v", cfg.ReloadDebounce, tt.expected.ReloadDebounce)
			}
		})
	}
}
