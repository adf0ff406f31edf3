package config

import (
	"errors"
	"fmt"
)

// Validate checks every section and joins every violation found,
// rather than stopping at the first — matching the deactivation log's
// own collect-all-invalid style.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.ValueLogFileSize < 0 {
		errs = append(errs, fmt.Errorf("store.value_log_file_size must be non-negative, got %d", c.Store.ValueLogFileSize))
	}

	if c.Deactivation.Path == "" {
		errs = append(errs, errors.New("deactivation.path is required"))
	}

	if c.Scheduler.SkipDeactivationRecheck < 0 {
		errs = append(errs, fmt.Errorf("scheduler.skip_deactivation_recheck must be non-negative, got %s", c.Scheduler.SkipDeactivationRecheck))
	}

	if c.Scraper.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("scraper.batch_size must be positive, got %d", c.Scraper.BatchSize))
	}

	if c.RateLimit.AppPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.app_per_second must be positive, got %v", c.RateLimit.AppPerSecond))
	}
	if c.RateLimit.AppBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.app_burst must be positive, got %d", c.RateLimit.AppBurst))
	}
	if c.RateLimit.UserPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.user_per_second must be positive, got %v", c.RateLimit.UserPerSecond))
	}
	if c.RateLimit.UserBurst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.user_burst must be positive, got %d", c.RateLimit.UserBurst))
	}

	if !validLogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, errors.New("metrics.listen_addr is required when metrics.enabled is true"))
	}

	return errors.Join(errs...)
}

func validLogLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
		return true
	default:
		return false
	}
}
