package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.allowed_origins",
			Message: "at least one allowed origin is required",
		})
	}

	// Validate database configuration
	if c.Database.SQLitePath == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.sqlite_path",
			Message: "sqlite_path is required",
		})
	}

	// Validate assessment configuration
	if c.Assessment.RangeWeight < 0 || c.Assessment.RangeWeight > 1 {
		errs = append(errs, &ValidationError{
			Field:   "assessment.range_weight",
			Message: fmt.Sprintf("range_weight must be between 0 and 1, got %g", c.Assessment.RangeWeight),
		})
	}

	if c.Assessment.OverrideGap < 0 || c.Assessment.OverrideGap > 1 {
		errs = append(errs, &ValidationError{
			Field:   "assessment.override_gap",
			Message: fmt.Sprintf("override_gap must be between 0 and 1, got %g", c.Assessment.OverrideGap),
		})
	}

	if c.Assessment.OverrideRangeWeight < 0 || c.Assessment.OverrideRangeWeight > 1 {
		errs = append(errs, &ValidationError{
			Field:   "assessment.override_range_weight",
			Message: fmt.Sprintf("override_range_weight must be between 0 and 1, got %g", c.Assessment.OverrideRangeWeight),
		})
	} else if c.Assessment.OverrideRangeWeight < c.Assessment.RangeWeight {
		errs = append(errs, &ValidationError{
			Field:   "assessment.override_range_weight",
			Message: "override_range_weight must not be below range_weight",
		})
	}

	if c.Assessment.DebounceTicks < 1 {
		errs = append(errs, &ValidationError{
			Field:   "assessment.debounce_ticks",
			Message: fmt.Sprintf("debounce_ticks must be at least 1, got %d", c.Assessment.DebounceTicks),
		})
	}

	// Validate baseline configuration
	if c.Baseline.MinCoverage <= 0 || c.Baseline.MinCoverage > 1 {
		errs = append(errs, &ValidationError{
			Field:   "baseline.min_coverage",
			Message: fmt.Sprintf("min_coverage must be greater than 0 and at most 1, got %g", c.Baseline.MinCoverage),
		})
	}

	// Validate detector configuration
	if c.Detector.BatchWindowSize < 10 {
		errs = append(errs, &ValidationError{
			Field:   "detector.batch_window_size",
			Message: fmt.Sprintf("batch_window_size must be at least 10, got %d", c.Detector.BatchWindowSize),
		})
	}

	// Validate ingest configuration
	if c.Ingest.RateLimitPerMinute < 0 {
		errs = append(errs, &ValidationError{
			Field:   "ingest.rate_limit_per_minute",
			Message: fmt.Sprintf("rate_limit_per_minute must not be negative, got %d", c.Ingest.RateLimitPerMinute),
		})
	}

	// Validate simulator configuration
	if c.Simulator.Enabled {
		if c.Simulator.AssetID == "" {
			errs = append(errs, &ValidationError{
				Field:   "simulator.asset_id",
				Message: "asset_id is required when the simulator is enabled",
			})
		}
		if c.Simulator.IntervalMS < 10 {
			errs = append(errs, &ValidationError{
				Field:   "simulator.interval_ms",
				Message: fmt.Sprintf("interval_ms must be at least 10, got %d", c.Simulator.IntervalMS),
			})
		}
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Logging.Level),
		})
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (must be one of: json, text)", c.Logging.Format),
		})
	}

	if c.Logging.JournalPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "logging.journal_path",
			Message: "journal_path is required",
		})
	}

	return errs
}
