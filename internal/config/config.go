// Package config loads twprofiles' configuration through a layered
// koanf pipeline: built-in defaults, then an optional YAML file, then
// environment variables, each layer overriding the last.
package config

import "time"

// StoreConfig configures the profile archive.
type StoreConfig struct {
	Path             string `koanf:"path"`
	ValueLogFileSize int64  `koanf:"value_log_file_size"`
	EnableStatistics bool   `koanf:"enable_statistics"`
}

// DeactivationConfig configures the deactivation log file.
type DeactivationConfig struct {
	Path string `koanf:"path"`
}

// SchedulerConfig configures the rescrape scheduler.
type SchedulerConfig struct {
	SkipDeactivationRecheck time.Duration `koanf:"skip_deactivation_recheck"`
	BootstrapPath           string        `koanf:"bootstrap_path"`
}

// ScraperConfig configures the scraper's run loop.
type ScraperConfig struct {
	BatchSize int `koanf:"batch_size"`
}

// RateLimitConfig configures the UserLookup rate limiter.
type RateLimitConfig struct {
	AppPerSecond  float64 `koanf:"app_per_second"`
	AppBurst      int     `koanf:"app_burst"`
	UserPerSecond float64 `koanf:"user_per_second"`
	UserBurst     int     `koanf:"user_burst"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	Caller    bool   `koanf:"caller"`
	Timestamp bool   `koanf:"timestamp"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
}

// Config is the full twprofiles configuration tree.
type Config struct {
	Store        StoreConfig        `koanf:"store"`
	Deactivation DeactivationConfig `koanf:"deactivation"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"`
	Scraper      ScraperConfig      `koanf:"scraper"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	Logging      LoggingConfig      `koanf:"logging"`
	Metrics      MetricsConfig      `koanf:"metrics"`
}

// defaultConfig returns sensible built-in defaults. Applied first,
// then overridden by an optional config file and then environment
// variables.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:             "/data/twprofiles/store",
			ValueLogFileSize: 1 << 30,
			EnableStatistics: false,
		},
		Deactivation: DeactivationConfig{
			Path: "/data/twprofiles/deactivation.log",
		},
		Scheduler: SchedulerConfig{
			SkipDeactivationRecheck: 2 * time.Hour,
			BootstrapPath:           "",
		},
		Scraper: ScraperConfig{
			BatchSize: 100,
		},
		RateLimit: RateLimitConfig{
			AppPerSecond:  1,
			AppBurst:      1,
			UserPerSecond: 0.2,
			UserBurst:     1,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Caller:    false,
			Timestamp: true,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9090",
		},
	}
}
