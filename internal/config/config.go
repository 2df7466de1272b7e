// Package config defines service configuration and its layered loader.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and CHRONO_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5001".
	Addr string `koanf:"addr"`

	// StorageDriver selects the event store: memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// StoragePath is the SQLite database file.
	StoragePath string `koanf:"storage_path"`

	// DatasetPath is a CSV or YAML file loaded at startup. Empty skips loading.
	DatasetPath string `koanf:"dataset_path"`

	// WatchDataset reloads DatasetPath whenever it changes on disk.
	WatchDataset bool `koanf:"watch_dataset"`

	// DefaultStartYear and DefaultEndYear bound queries that omit a window.
	DefaultStartYear int64 `koanf:"default_start_year"`
	DefaultEndYear   int64 `koanf:"default_end_year"`

	// EnableClustering and EnableSpans are the query toggles' defaults.
	EnableClustering bool `koanf:"enable_clustering"`
	EnableSpans      bool `koanf:"enable_spans"`

	// CategoryOrder lists categories shown first, in this order.
	CategoryOrder []string `koanf:"category_order"`

	// MaxWindowYears rejects wider windows.
	MaxWindowYears int64 `koanf:"max_window_years"`

	// MetricsEnabled turns metric recording on or off. /metrics is served
	// either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsPrefix is inserted before every metric name, e.g. "timeline".
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels attached to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsLatencyBuckets overrides the latency histogram buckets in
	// milliseconds. Empty keeps the Prometheus defaults.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`

	// MetricsRefreshInterval is how often memory and goroutine gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":5001",
		StorageDriver:    DriverMemory,
		StoragePath:      "chronoverse.db",
		DefaultStartYear: -5_000_000_000,
		DefaultEndYear:   2025,
		EnableClustering: true,
		EnableSpans:      true,
		CategoryOrder: []string{
			"era", "migration", "civilization", "empire", "war", "religion", "biblical",
		},
		MaxWindowYears:         10_000_000_000,
		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{DriverMemory, DriverSQLite}, c.StorageDriver):
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.StorageDriver)
	case c.StorageDriver == DriverSQLite && c.StoragePath == "":
		return fmt.Errorf("%w: storage_path is required for sqlite", ErrInvalidConfig)
	case c.DefaultStartYear >= c.DefaultEndYear:
		return fmt.Errorf("%w: default_start_year must be before default_end_year", ErrInvalidConfig)
	case c.MaxWindowYears <= 0:
		return fmt.Errorf("%w: max_window_years must be positive", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
