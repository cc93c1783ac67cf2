package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Port = 8090
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

	// Database defaults
	cfg.Database.SQLitePath = "/var/lib/assetpulse/assetpulse.db"

	// Assessment defaults
	cfg.Assessment.RangeWeight = 0.60
	cfg.Assessment.OverrideGap = 0.35
	cfg.Assessment.OverrideRangeWeight = 0.85
	cfg.Assessment.DebounceTicks = 2
	cfg.Assessment.EnableRecovering = false

	// Baseline defaults
	cfg.Baseline.MinCoverage = 0.80

	// Detector defaults
	cfg.Detector.Seed = 1
	cfg.Detector.BatchWindowSize = 100

	// Ingest defaults
	cfg.Ingest.RateLimitPerMinute = 600

	// Simulator defaults
	cfg.Simulator.Enabled = false
	cfg.Simulator.AssetID = "motor-001"
	cfg.Simulator.IntervalMS = 1000

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.JournalPath = "logs/journal.log"
	cfg.Logging.AppLogPath = "logs/app.log"

	return cfg
}
