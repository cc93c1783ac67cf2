package types

// Package types defines public API types shared between assetpulse-core and
// its dashboard clients.
//
// These types define the REST API contracts.

import (
	"time"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Request types

// IngestRequest posts one sensor reading for an asset.
type IngestRequest struct {
	Reading models.SensorReading `json:"reading"`
}

// CalibrateRequest triggers baseline calibration for an asset.
type CalibrateRequest struct {
	// MinCoverage optionally overrides the configured healthy-coverage
	// threshold for this calibration only. Zero means use the default.
	MinCoverage float64 `json:"min_coverage,omitempty"`
}

// Response types

// IngestResponse is returned for every accepted reading.
type IngestResponse struct {
	Accepted bool                 `json:"accepted"`
	State    string               `json:"state"`
	Report   *models.HealthReport `json:"report,omitempty"`
	Event    *models.ConditionEvent `json:"event,omitempty"`
	// Calibrated is false while the asset is accumulating readings and
	// has no baseline yet. Report is nil in that case.
	Calibrated bool `json:"calibrated"`
}

// CalibrateResponse summarizes a completed calibration.
type CalibrateResponse struct {
	AssetID     string    `json:"asset_id"`
	BaselineID  string    `json:"baseline_id"`
	SampleCount int       `json:"sample_count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	DurationMS  int64     `json:"duration_ms"`
}

// AssetStatus is the current view of one asset.
type AssetStatus struct {
	AssetID      string               `json:"asset_id"`
	State        string               `json:"state"`
	Calibrated   bool                 `json:"calibrated"`
	BaselineID   string               `json:"baseline_id,omitempty"`
	ReadingCount int                  `json:"reading_count"`
	LastReport   *models.HealthReport `json:"last_report,omitempty"`
}

// AssetList enumerates known assets.
type AssetList struct {
	Assets []AssetStatus `json:"assets"`
	Count  int           `json:"count"`
}

// ReportList is a page of health reports.
type ReportList struct {
	AssetID string                 `json:"asset_id"`
	Reports []*models.HealthReport `json:"reports"`
	Count   int                    `json:"count"`
}

// TrendPoint is one point of a health trend chart.
type TrendPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	HealthScore int       `json:"health_score"`
	RiskLevel   string    `json:"risk_level"`
}

// TrendResponse is the health trend for an asset over a window.
type TrendResponse struct {
	AssetID string       `json:"asset_id"`
	Points  []TrendPoint `json:"points"`
}

// EventList is a page of condition events.
type EventList struct {
	AssetID string                   `json:"asset_id,omitempty"`
	Events  []*models.ConditionEvent `json:"events"`
	Count   int                      `json:"count"`
	Summary map[string]int           `json:"summary,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// StreamMessage is pushed over the live WebSocket feed.
type StreamMessage struct {
	Type      string      `json:"type"` // "report", "event", "heartbeat"
	AssetID   string      `json:"asset_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
