package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kubewise/k8s-resource-recommender/pkg/models"
)

// Output format selection.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatBoth  = "both"
)

// Config holds one recommendation cycle's configuration. It is built once
// at process start and treated as immutable for the duration of the cycle;
// core packages never read environment state themselves.
type Config struct {
	// Metrics backend
	PrometheusURL string
	SampleStep    time.Duration

	// Cluster access
	UseInClusterConfig bool

	// Namespace selection. Targets win over exclusions.
	TargetNamespaces   []string
	ExcludedNamespaces []string

	// Analysis
	WindowHours   int
	BufferPercent int
	MinSamples    int

	// Policy: rounding units and floors per resource kind
	CPURoundingMilli int64 // millicores
	MemoryRoundingMi int64 // mebibytes
	CPUFloorMilli    int64
	MemoryFloorMi    int64
	TolerancePercent float64

	// Concurrency
	MaxConcurrentQueries int
	QueryTimeout         time.Duration

	// Retry against backends
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration

	// Output and delivery
	OutputFormat    string
	OutputDir       string
	SlackWebhookURL string
	ArchiveEnabled  bool
	DatabaseURL     string
	NoColor         bool
	Verbose         bool
}

// Load builds a Config from environment variables with defaults. The env
// names match the original deployment (.env files are loaded by main before
// this runs).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("prometheus_url", "http://prometheus-server.default.svc:9090")
	v.SetDefault("sample_step_seconds", 60)
	v.SetDefault("kubernetes_use_in_cluster_config", false)
	v.SetDefault("target_namespaces", "")
	v.SetDefault("excluded_namespaces", "kube-system,kube-public,kube-node-lease")
	v.SetDefault("hours", 168)
	v.SetDefault("buffer_percent", 20)
	v.SetDefault("min_samples", 1)
	v.SetDefault("cpu_rounding_milli", 1)
	v.SetDefault("memory_rounding_mi", 1)
	v.SetDefault("cpu_floor_milli", 10)
	v.SetDefault("memory_floor_mi", 16)
	v.SetDefault("tolerance_percent", 5.0)
	v.SetDefault("max_concurrent_queries", 8)
	v.SetDefault("query_timeout_seconds", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_initial_backoff_ms", 500)
	v.SetDefault("output_format", FormatBoth)
	v.SetDefault("output_dir", ".")
	v.SetDefault("slack_webhook_url", "")
	v.SetDefault("archive_enabled", false)
	v.SetDefault("database_url", "")
	v.SetDefault("no_color", false)
	v.SetDefault("verbose", false)

	v.AutomaticEnv()

	cfg := &Config{
		PrometheusURL:        v.GetString("prometheus_url"),
		SampleStep:           time.Duration(v.GetInt("sample_step_seconds")) * time.Second,
		UseInClusterConfig:   v.GetBool("kubernetes_use_in_cluster_config"),
		TargetNamespaces:     splitList(v.GetString("target_namespaces")),
		ExcludedNamespaces:   splitList(v.GetString("excluded_namespaces")),
		WindowHours:          v.GetInt("hours"),
		BufferPercent:        v.GetInt("buffer_percent"),
		MinSamples:           v.GetInt("min_samples"),
		CPURoundingMilli:     v.GetInt64("cpu_rounding_milli"),
		MemoryRoundingMi:     v.GetInt64("memory_rounding_mi"),
		CPUFloorMilli:        v.GetInt64("cpu_floor_milli"),
		MemoryFloorMi:        v.GetInt64("memory_floor_mi"),
		TolerancePercent:     v.GetFloat64("tolerance_percent"),
		MaxConcurrentQueries: v.GetInt("max_concurrent_queries"),
		QueryTimeout:         time.Duration(v.GetInt("query_timeout_seconds")) * time.Second,
		RetryMaxAttempts:     v.GetInt("retry_max_attempts"),
		RetryInitialBackoff:  time.Duration(v.GetInt("retry_initial_backoff_ms")) * time.Millisecond,
		OutputFormat:         v.GetString("output_format"),
		OutputDir:            v.GetString("output_dir"),
		SlackWebhookURL:      v.GetString("slack_webhook_url"),
		ArchiveEnabled:       v.GetBool("archive_enabled"),
		DatabaseURL:          v.GetString("database_url"),
		NoColor:              v.GetBool("no_color"),
		Verbose:              v.GetBool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable for a cycle.
func (c *Config) Validate() error {
	if c.WindowHours < 1 {
		return fmt.Errorf("analysis window must be at least 1 hour, got %d", c.WindowHours)
	}
	if c.BufferPercent < 0 || c.BufferPercent > 100 {
		return fmt.Errorf("buffer percent must be in [0,100], got %d", c.BufferPercent)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("minimum sample count must be >= 1, got %d", c.MinSamples)
	}
	if c.CPURoundingMilli < 1 || c.MemoryRoundingMi < 1 {
		return fmt.Errorf("rounding units must be >= 1")
	}
	if c.MaxConcurrentQueries < 1 {
		return fmt.Errorf("max concurrent queries must be >= 1, got %d", c.MaxConcurrentQueries)
	}
	switch c.OutputFormat {
	case FormatTable, FormatYAML, FormatBoth:
	default:
		return fmt.Errorf("output format must be table, yaml, or both, got %q", c.OutputFormat)
	}
	if c.ArchiveEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when ARCHIVE_ENABLED is true")
	}
	return nil
}

// Window returns the analysis interval [now-H, now).
func (c *Config) Window(now time.Time) models.Window {
	return models.Window{
		Start: now.Add(-time.Duration(c.WindowHours) * time.Hour),
		End:   now,
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
