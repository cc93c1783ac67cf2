package config

import "context"

// Package config provides configuration management for the assessment core.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading (for some settings)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (ASSETPULSE_* prefix)
//   2. YAML config files (default: /etc/assetpulse/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Server
//      - port: Listen port (default 8090)
//      - allowed_origins: Origins permitted to open WebSocket connections
//
//   2. Database
//      - sqlite_path: Path to the SQLite file
//
//   3. Assessment
//      - range_weight: Blend weight of the range-based score (default 0.6)
//      - override_gap: Model/range disagreement that triggers the override
//      - override_range_weight: Range weight applied under the override
//      - debounce_ticks: Consecutive ticks to confirm a condition transition
//      - enable_recovering: Route clears through an intermediate state
//
//   4. Baseline
//      - min_coverage: Healthy-row ratio required to calibrate (default 0.8)
//
//   5. Detector
//      - seed: Seed for detector training
//      - batch_window_size: Readings per batch feature window
//
//   6. Ingest
//      - rate_limit_per_minute: Per-client ingest budget (0 disables)
//
//   7. Simulator
//      - enabled: Run the built-in demo stream
//      - asset_id: Asset the demo stream reports as
//      - interval_ms: Milliseconds between demo readings
//
//   8. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "text"
//      - journal_path: Append-only assessment journal file
//      - app_log_path: Application log file
//
// Config struct contains all configuration fields
type Config struct {
	// Server configuration
	Server struct {
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	// Database configuration
	Database struct {
		SQLitePath string
	}

	// Assessment configuration
	Assessment struct {
		RangeWeight         float64
		OverrideGap         float64
		OverrideRangeWeight float64
		DebounceTicks       int
		EnableRecovering    bool
	}

	// Baseline configuration
	Baseline struct {
		MinCoverage float64
	}

	// Detector configuration
	Detector struct {
		Seed            int64
		BatchWindowSize int
	}

	// Ingest configuration
	Ingest struct {
		RateLimitPerMinute int
	}

	// Simulator configuration
	Simulator struct {
		Enabled    bool
		AssetID    string
		IntervalMS int
	}

	// Logging configuration
	Logging struct {
		Level       string
		Format      string
		JournalPath string
		AppLogPath  string
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources (selective settings).
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/assetpulse/config.yaml")
}
