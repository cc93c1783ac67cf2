package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	// Initialize viper
	m.viper = viper.New()

	// Set config file path
	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	// Set environment variable prefix
	m.viper.SetEnvPrefix("ASSETPULSE")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	m.setDefaults()

	// Try to read config file (optional)
	if err := m.viper.ReadInConfig(); err != nil {
		// Config file not found is OK, we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// File not found via viper - OK, use defaults
		} else if os.IsNotExist(err) {
			// File not found via os - OK, use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply environment variable overrides
	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	// Database defaults
	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)

	// Assessment defaults
	m.viper.SetDefault("assessment.range_weight", defaults.Assessment.RangeWeight)
	m.viper.SetDefault("assessment.override_gap", defaults.Assessment.OverrideGap)
	m.viper.SetDefault("assessment.override_range_weight", defaults.Assessment.OverrideRangeWeight)
	m.viper.SetDefault("assessment.debounce_ticks", defaults.Assessment.DebounceTicks)
	m.viper.SetDefault("assessment.enable_recovering", defaults.Assessment.EnableRecovering)

	// Baseline defaults
	m.viper.SetDefault("baseline.min_coverage", defaults.Baseline.MinCoverage)

	// Detector defaults
	m.viper.SetDefault("detector.seed", defaults.Detector.Seed)
	m.viper.SetDefault("detector.batch_window_size", defaults.Detector.BatchWindowSize)

	// Ingest defaults
	m.viper.SetDefault("ingest.rate_limit_per_minute", defaults.Ingest.RateLimitPerMinute)

	// Simulator defaults
	m.viper.SetDefault("simulator.enabled", defaults.Simulator.Enabled)
	m.viper.SetDefault("simulator.asset_id", defaults.Simulator.AssetID)
	m.viper.SetDefault("simulator.interval_ms", defaults.Simulator.IntervalMS)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.journal_path", defaults.Logging.JournalPath)
	m.viper.SetDefault("logging.app_log_path", defaults.Logging.AppLogPath)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Server
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")

	// Database
	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")

	// Assessment
	cfg.Assessment.RangeWeight = m.viper.GetFloat64("assessment.range_weight")
	cfg.Assessment.OverrideGap = m.viper.GetFloat64("assessment.override_gap")
	cfg.Assessment.OverrideRangeWeight = m.viper.GetFloat64("assessment.override_range_weight")
	cfg.Assessment.DebounceTicks = m.viper.GetInt("assessment.debounce_ticks")
	cfg.Assessment.EnableRecovering = m.viper.GetBool("assessment.enable_recovering")

	// Baseline
	cfg.Baseline.MinCoverage = m.viper.GetFloat64("baseline.min_coverage")

	// Detector
	cfg.Detector.Seed = m.viper.GetInt64("detector.seed")
	cfg.Detector.BatchWindowSize = m.viper.GetInt("detector.batch_window_size")

	// Ingest
	cfg.Ingest.RateLimitPerMinute = m.viper.GetInt("ingest.rate_limit_per_minute")

	// Simulator
	cfg.Simulator.Enabled = m.viper.GetBool("simulator.enabled")
	cfg.Simulator.AssetID = m.viper.GetString("simulator.asset_id")
	cfg.Simulator.IntervalMS = m.viper.GetInt("simulator.interval_ms")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.JournalPath = m.viper.GetString("logging.journal_path")
	cfg.Logging.AppLogPath = m.viper.GetString("logging.app_log_path")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for settings
// commonly set per deployment.
func (m *viperConfigManager) applyEnvOverrides() {
	// Port from environment - only override if explicitly set
	if portEnv := os.Getenv("ASSETPULSE_PORT"); portEnv != "" {
		if port, err := strconv.Atoi(portEnv); err == nil {
			m.config.Server.Port = port
		}
	}

	// Database path from environment
	if path := os.Getenv("ASSETPULSE_DB_PATH"); path != "" {
		m.config.Database.SQLitePath = path
	}

	// Detector seed from environment
	if seedEnv := os.Getenv("ASSETPULSE_SEED"); seedEnv != "" {
		if seed, err := strconv.ParseInt(seedEnv, 10, 64); err == nil {
			m.config.Detector.Seed = seed
		}
	}

	// Demo stream toggle from environment
	if simEnv := os.Getenv("ASSETPULSE_SIMULATOR"); simEnv != "" {
		m.config.Simulator.Enabled = simEnv == "1" || strings.EqualFold(simEnv, "true")
	}
}
