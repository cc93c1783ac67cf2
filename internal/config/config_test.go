package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test server defaults
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)

	// Test database defaults
	assert.NotEmpty(t, cfg.Database.SQLitePath)

	// Test assessment defaults
	assert.Equal(t, 0.60, cfg.Assessment.RangeWeight)
	assert.Equal(t, 0.35, cfg.Assessment.OverrideGap)
	assert.Equal(t, 0.85, cfg.Assessment.OverrideRangeWeight)
	assert.Equal(t, 2, cfg.Assessment.DebounceTicks)
	assert.False(t, cfg.Assessment.EnableRecovering)

	// Test baseline defaults
	assert.Equal(t, 0.80, cfg.Baseline.MinCoverage)

	// Test detector defaults
	assert.Equal(t, int64(1), cfg.Detector.Seed)
	assert.Equal(t, 100, cfg.Detector.BatchWindowSize)

	// Test ingest defaults
	assert.Equal(t, 600, cfg.Ingest.RateLimitPerMinute)

	// Test simulator defaults
	assert.False(t, cfg.Simulator.Enabled)
	assert.Equal(t, "motor-001", cfg.Simulator.AssetID)
	assert.Equal(t, 1000, cfg.Simulator.IntervalMS)

	// Test logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Logging.JournalPath)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "invalid port - too low",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "invalid port - too high",
			modifyFn: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name: "no allowed origins",
			modifyFn: func(cfg *Config) {
				cfg.Server.AllowedOrigins = nil
			},
			wantError: true,
			errorMsg:  "at least one allowed origin",
		},
		{
			name: "missing sqlite path",
			modifyFn: func(cfg *Config) {
				cfg.Database.SQLitePath = ""
			},
			wantError: true,
			errorMsg:  "sqlite_path is required",
		},
		{
			name: "range weight out of bounds",
			modifyFn: func(cfg *Config) {
				cfg.Assessment.RangeWeight = 1.5
			},
			wantError: true,
			errorMsg:  "range_weight must be between 0 and 1",
		},
		{
			name: "negative override gap",
			modifyFn: func(cfg *Config) {
				cfg.Assessment.OverrideGap = -0.1
			},
			wantError: true,
			errorMsg:  "override_gap must be between 0 and 1",
		},
		{
			name: "override weight below base weight",
			modifyFn: func(cfg *Config) {
				cfg.Assessment.OverrideRangeWeight = 0.40
			},
			wantError: true,
			errorMsg:  "override_range_weight must not be below range_weight",
		},
		{
			name: "zero debounce ticks",
			modifyFn: func(cfg *Config) {
				cfg.Assessment.DebounceTicks = 0
			},
			wantError: true,
			errorMsg:  "debounce_ticks must be at least 1",
		},
		{
			name: "zero min coverage",
			modifyFn: func(cfg *Config) {
				cfg.Baseline.MinCoverage = 0
			},
			wantError: true,
			errorMsg:  "min_coverage must be greater than 0",
		},
		{
			name: "min coverage above 1",
			modifyFn: func(cfg *Config) {
				cfg.Baseline.MinCoverage = 1.2
			},
			wantError: true,
			errorMsg:  "min_coverage must be greater than 0 and at most 1",
		},
		{
			name: "batch window too small",
			modifyFn: func(cfg *Config) {
				cfg.Detector.BatchWindowSize = 5
			},
			wantError: true,
			errorMsg:  "batch_window_size must be at least 10",
		},
		{
			name: "negative rate limit",
			modifyFn: func(cfg *Config) {
				cfg.Ingest.RateLimitPerMinute = -1
			},
			wantError: true,
			errorMsg:  "rate_limit_per_minute must not be negative",
		},
		{
			name: "simulator enabled without asset id",
			modifyFn: func(cfg *Config) {
				cfg.Simulator.Enabled = true
				cfg.Simulator.AssetID = ""
			},
			wantError: true,
			errorMsg:  "asset_id is required",
		},
		{
			name: "simulator interval too short",
			modifyFn: func(cfg *Config) {
				cfg.Simulator.Enabled = true
				cfg.Simulator.IntervalMS = 1
			},
			wantError: true,
			errorMsg:  "interval_ms must be at least 10",
		},
		{
			name: "simulator settings ignored when disabled",
			modifyFn: func(cfg *Config) {
				cfg.Simulator.Enabled = false
				cfg.Simulator.AssetID = ""
				cfg.Simulator.IntervalMS = 0
			},
			wantError: false,
		},
		{
			name: "invalid log level",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Level = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid log level",
		},
		{
			name: "invalid log format",
			modifyFn: func(cfg *Config) {
				cfg.Logging.Format = "invalid"
			},
			wantError: true,
			errorMsg:  "invalid log format",
		},
		{
			name: "missing journal path",
			modifyFn: func(cfg *Config) {
				cfg.Logging.JournalPath = ""
			},
			wantError: true,
			errorMsg:  "journal_path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if tt.wantError {
				assert.NotEmpty(t, errs, "expected validation errors but got none")
				found := false
				for _, err := range errs {
					if contains(err.Error(), tt.errorMsg) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
			} else {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
			}
		})
	}
}

func TestConfigManagerLoad(t *testing.T) {
	// Create temp directory for config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  allowed_origins:
    - "http://dashboard.local"

database:
  sqlite_path: "/tmp/assetpulse-test.db"

assessment:
  range_weight: 0.5
  debounce_ticks: 3
  enable_recovering: true

detector:
  seed: 7
  batch_window_size: 50

logging:
  level: "debug"
  format: "text"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Create config manager
	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	// Load config
	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	// Get config
	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://dashboard.local"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/assetpulse-test.db", cfg.Database.SQLitePath)
	assert.Equal(t, 0.5, cfg.Assessment.RangeWeight)
	assert.Equal(t, 3, cfg.Assessment.DebounceTicks)
	assert.True(t, cfg.Assessment.EnableRecovering)
	assert.Equal(t, int64(7), cfg.Detector.Seed)
	assert.Equal(t, 50, cfg.Detector.BatchWindowSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Unset keys keep their defaults
	assert.Equal(t, 0.35, cfg.Assessment.OverrideGap)
	assert.Equal(t, 600, cfg.Ingest.RateLimitPerMinute)
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	os.Setenv("ASSETPULSE_PORT", "7070")
	os.Setenv("ASSETPULSE_DB_PATH", "/tmp/env-override.db")
	os.Setenv("ASSETPULSE_SEED", "99")
	defer func() {
		os.Unsetenv("ASSETPULSE_PORT")
		os.Unsetenv("ASSETPULSE_DB_PATH")
		os.Unsetenv("ASSETPULSE_SEED")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 8090

database:
  sqlite_path: "/tmp/file-config.db"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	cfg := mgr.Get(ctx)

	// Environment variables should override config file
	assert.Equal(t, 7070, cfg.Server.Port, "port should be overridden by environment variable")
	assert.Equal(t, "/tmp/env-override.db", cfg.Database.SQLitePath, "database path should be overridden by environment variable")
	assert.Equal(t, int64(99), cfg.Detector.Seed, "seed should be overridden by environment variable")
}

func TestConfigManagerMissingFile(t *testing.T) {
	// Use non-existent config file path
	configPath := "/tmp/nonexistent-config.yaml"

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	// Should not error - should use defaults
	require.NoError(t, err)

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	// Should have default values
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 0.60, cfg.Assessment.RangeWeight)
}

func TestConfigManagerValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 99999

baseline:
  min_coverage: 2.0

logging:
  level: "loud"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	mgr, err := NewConfigManager(configPath)
	require.NoError(t, err)

	ctx := context.Background()
	err = mgr.Load(ctx)
	require.NoError(t, err)

	// Validation should fail
	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

// Helper function
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 || findSubstring(s, substr))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
