package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("HOURS")
	os.Unsetenv("BUFFER_PERCENT")
	os.Unsetenv("PROMETHEUS_URL")
	os.Unsetenv("EXCLUDED_NAMESPACES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WindowHours != 168 {
		t.Errorf("Expected default window 168h, got %d", cfg.WindowHours)
	}
	if cfg.BufferPercent != 20 {
		t.Errorf("Expected default buffer 20%%, got %d", cfg.BufferPercent)
	}
	if cfg.PrometheusURL != "http://prometheus-server.default.svc:9090" {
		t.Errorf("Unexpected default Prometheus URL: %s", cfg.PrometheusURL)
	}
	if len(cfg.ExcludedNamespaces) != 3 {
		t.Errorf("Expected 3 default excluded namespaces, got %v", cfg.ExcludedNamespaces)
	}
	if cfg.TargetNamespaces != nil {
		t.Errorf("Expected no target namespaces by default, got %v", cfg.TargetNamespaces)
	}
	if cfg.QueryTimeout != 30*time.Second {
		t.Errorf("Expected 30s query timeout, got %v", cfg.QueryTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("HOURS", "24")
	os.Setenv("BUFFER_PERCENT", "30")
	os.Setenv("TARGET_NAMESPACES", "prod, staging")
	os.Setenv("OUTPUT_FORMAT", "yaml")
	defer os.Unsetenv("HOURS")
	defer os.Unsetenv("BUFFER_PERCENT")
	defer os.Unsetenv("TARGET_NAMESPACES")
	defer os.Unsetenv("OUTPUT_FORMAT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WindowHours != 24 {
		t.Errorf("Expected window 24h from env, got %d", cfg.WindowHours)
	}
	if cfg.BufferPercent != 30 {
		t.Errorf("Expected buffer 30%% from env, got %d", cfg.BufferPercent)
	}
	if len(cfg.TargetNamespaces) != 2 || cfg.TargetNamespaces[0] != "prod" || cfg.TargetNamespaces[1] != "staging" {
		t.Errorf("Expected trimmed target namespaces [prod staging], got %v", cfg.TargetNamespaces)
	}
	if cfg.OutputFormat != FormatYAML {
		t.Errorf("Expected yaml output format, got %s", cfg.OutputFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		setupConfig func(*Config)
		expectError bool
	}{
		{
			name:        "valid defaults",
			setupConfig: func(c *Config) {},
			expectError: false,
		},
		{
			name:        "window too short",
			setupConfig: func(c *Config) { c.WindowHours = 0 },
			expectError: true,
		},
		{
			name:        "buffer negative",
			setupConfig: func(c *Config) { c.BufferPercent = -1 },
			expectError: true,
		},
		{
			name:        "buffer over 100",
			setupConfig: func(c *Config) { c.BufferPercent = 150 },
			expectError: true,
		},
		{
			name:        "bad output format",
			setupConfig: func(c *Config) { c.OutputFormat = "xml" },
			expectError: true,
		},
		{
			name:        "archive without database",
			setupConfig: func(c *Config) { c.ArchiveEnabled = true; c.DatabaseURL = "" },
			expectError: true,
		},
		{
			name:        "zero rounding unit",
			setupConfig: func(c *Config) { c.CPURoundingMilli = 0 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.setupConfig(cfg)

			err = cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected validation error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	cfg := &Config{WindowHours: 24}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w := cfg.Window(now)
	if !w.End.Equal(now) {
		t.Errorf("Expected window end %v, got %v", now, w.End)
	}
	if !w.Start.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Expected window start 24h before now, got %v", w.Start)
	}
	if w.Contains(now) {
		t.Error("Window must be half-open: end is excluded")
	}
	if !w.Contains(w.Start) {
		t.Error("Window must include its start")
	}
}
