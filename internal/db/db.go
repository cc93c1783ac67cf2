package db

import (
	"context"
	"time"
)

// Store is the main persistence interface for the assessment core.
type Store interface {
	ReadingStore
	BaselineStore
	ReportStore
	EventStore

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// ─── Reading store ────────────────────────────────────────────────────────────

// ReadingRecord is the DB representation of one sensor reading.
type ReadingRecord struct {
	ID             int64     `json:"id"`
	EventID        string    `json:"event_id"`
	AssetID        string    `json:"asset_id"`
	AssetType      string    `json:"asset_type"`
	VoltageV       float64   `json:"voltage_v"`
	CurrentA       float64   `json:"current_a"`
	PowerFactor    float64   `json:"power_factor"`
	PowerKW        float64   `json:"power_kw"`
	VibrationG     float64   `json:"vibration_g"`
	OperatingState string    `json:"operating_state"`
	Source         string    `json:"source"`
	FaultInjected  bool      `json:"is_fault_injected"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReadingQuery filters reading queries.
type ReadingQuery struct {
	AssetID string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// ReadingStore persists the raw sensor stream.
type ReadingStore interface {
	// AppendReading stores one reading.
	AppendReading(ctx context.Context, rec *ReadingRecord) error

	// QueryReadings retrieves readings with optional filters, newest first.
	QueryReadings(ctx context.Context, q ReadingQuery) ([]*ReadingRecord, error)

	// LatestReadings returns the most recent n readings for an asset,
	// oldest first, ready to replay into a session.
	LatestReadings(ctx context.Context, assetID string, n int) ([]*ReadingRecord, error)

	// CountReadings returns how many readings an asset has stored.
	CountReadings(ctx context.Context, assetID string) (int, error)
}

// ─── Baseline store ───────────────────────────────────────────────────────────

// BaselineRecord is a persisted baseline profile. The per-signal and
// per-feature statistics are stored as JSON blobs.
type BaselineRecord struct {
	BaselineID      string    `json:"baseline_id"`
	AssetID         string    `json:"asset_id"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	SampleCount     int       `json:"sample_count"`
	SignalProfiles  string    `json:"signal_profiles"`  // JSON: map[signal]stats
	FeatureProfiles string    `json:"feature_profiles"` // JSON: map[feature]stats
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// BaselineStore persists calibrated baselines. Exactly one baseline per
// asset is active at a time; saving a new one deactivates the rest.
type BaselineStore interface {
	// SaveBaseline stores a baseline and marks it active for its asset.
	SaveBaseline(ctx context.Context, rec *BaselineRecord) error

	// ActiveBaseline returns the active baseline for an asset.
	// Returns nil, nil when the asset has never been calibrated.
	ActiveBaseline(ctx context.Context, assetID string) (*BaselineRecord, error)

	// ListBaselines returns all baselines for an asset, newest first.
	ListBaselines(ctx context.Context, assetID string) ([]*BaselineRecord, error)
}

// ─── Report store ─────────────────────────────────────────────────────────────

// ReportRecord is the DB representation of a health report.
type ReportRecord struct {
	ReportID              string    `json:"report_id"`
	AssetID               string    `json:"asset_id"`
	HealthScore           int       `json:"health_score"`
	AnomalyScore          float64   `json:"anomaly_score"`
	RiskLevel             string    `json:"risk_level"`
	MaintenanceWindowDays float64   `json:"maintenance_window_days"`
	TrendSlope            float64   `json:"trend_slope"`
	Explanations          string    `json:"explanations"` // JSON array
	ModelVersion          string    `json:"model_version"`
	AssessmentVersion     string    `json:"assessment_version"`
	Timestamp             time.Time `json:"timestamp"`
}

// ReportQuery filters report queries.
type ReportQuery struct {
	AssetID   string
	RiskLevel string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// HealthTrendPoint is a single point in a health trend query.
type HealthTrendPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	HealthScore  int       `json:"health_score"`
	AnomalyScore float64   `json:"anomaly_score"`
	RiskLevel    string    `json:"risk_level"`
}

// ReportStore persists health reports for history and trending.
type ReportStore interface {
	// AppendReport stores one health report.
	AppendReport(ctx context.Context, rec *ReportRecord) error

	// QueryReports retrieves reports with optional filters, newest first.
	QueryReports(ctx context.Context, q ReportQuery) ([]*ReportRecord, error)

	// LatestReport returns the most recent report for an asset.
	// Returns nil, nil when none exists.
	LatestReport(ctx context.Context, assetID string) (*ReportRecord, error)

	// HealthTrend returns lightweight trend points for charting.
	HealthTrend(ctx context.Context, assetID string, from, to time.Time) ([]*HealthTrendPoint, error)
}

// ─── Event store ──────────────────────────────────────────────────────────────

// EventRecord is a persisted condition transition event.
type EventRecord struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	AssetID   string    `json:"asset_id"`
	EventType string    `json:"event_type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventQuery filters event queries.
type EventQuery struct {
	AssetID   string
	EventType string
	Severity  string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// EventStore persists condition transition events.
type EventStore interface {
	// AppendEvent stores one condition event.
	AppendEvent(ctx context.Context, rec *EventRecord) error

	// QueryEvents retrieves events with optional filters, newest first.
	QueryEvents(ctx context.Context, q EventQuery) ([]*EventRecord, error)

	// EventSummary returns counts grouped by severity for a time window.
	EventSummary(ctx context.Context, from, to time.Time) (map[string]int, error)
}
