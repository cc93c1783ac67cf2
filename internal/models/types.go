package models

// Package models defines core data types used throughout assetpulse-core.
//
// These types are the contracts between the ingest surface, the feature
// extractors, the detectors, the assessor, and the condition event engine.

import (
	"time"
)

// OperatingState describes what the asset is doing when a reading is taken.
type OperatingState string

const (
	StateRunning OperatingState = "RUNNING"
	StateIdle    OperatingState = "IDLE"
	StateOff     OperatingState = "OFF"
)

// AssetType enumerates supported asset classes. V1 supports induction motors.
type AssetType string

const (
	AssetInductionMotor AssetType = "induction_motor"
)

// Signals holds the raw measurements from the asset.
//
// voltage_v is on an Indian Grid ~230V base; power_kw is derived as
// (voltage_v * current_a * power_factor) / 1000.
type Signals struct {
	VoltageV    float64 `json:"voltage_v"`
	CurrentA    float64 `json:"current_a"`
	PowerFactor float64 `json:"power_factor"`
	PowerKW     float64 `json:"power_kw"`
	VibrationG  float64 `json:"vibration_g"`
}

// SensorReading is the canonical sensor event: the normalized record of an
// asset's state at a point in time. Timestamps are UTC.
type SensorReading struct {
	EventID        string         `json:"event_id"`
	Timestamp      time.Time      `json:"timestamp"`
	AssetID        string         `json:"asset_id"`
	AssetType      AssetType      `json:"asset_type"`
	Signals        Signals        `json:"signals"`
	OperatingState OperatingState `json:"operating_state"`
	Source         string         `json:"source"`

	// FaultInjected is simulator ground truth. It gates baseline training
	// (healthy-only filtering) and is never consulted at scoring time.
	FaultInjected bool `json:"is_fault_injected"`
}

// RiskLevel classifies assessed asset risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// ConditionState is the debounced condition of an asset.
type ConditionState string

const (
	ConditionHealthy         ConditionState = "HEALTHY"
	ConditionAnomalyDetected ConditionState = "ANOMALY_DETECTED"
	ConditionRecovering      ConditionState = "RECOVERING"
)

// EventType enumerates condition event kinds.
type EventType string

const (
	EventAnomalyDetected EventType = "ANOMALY_DETECTED"
	EventAnomalyCleared  EventType = "ANOMALY_CLEARED"
	EventHeartbeat       EventType = "HEARTBEAT"
)

// Severity grades condition events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ConditionEvent is emitted on condition state transitions only.
type ConditionEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	AssetID   string    `json:"asset_id"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// Explanation is a human-readable account of one feature's contribution to
// an assessment.
type Explanation struct {
	Feature     string  `json:"feature"`
	Observed    float64 `json:"observed"`
	Expected    float64 `json:"expected"`
	ZScore      float64 `json:"z_score"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// ReportMetadata carries versioning info alongside a health report.
type ReportMetadata struct {
	// ModelVersion is "detector:<id>|baseline:<id>".
	ModelVersion      string `json:"model_version"`
	AssessmentVersion string `json:"assessment_version"`
}

// HealthReport is the output of a single health assessment.
type HealthReport struct {
	ReportID              string         `json:"report_id"`
	Timestamp             time.Time      `json:"timestamp"`
	AssetID               string         `json:"asset_id"`
	HealthScore           int            `json:"health_score"`
	AnomalyScore          float64        `json:"anomaly_score"`
	RiskLevel             RiskLevel      `json:"risk_level"`
	MaintenanceWindowDays float64        `json:"maintenance_window_days"`
	TrendSlope            float64        `json:"trend_slope"`
	Explanations          []Explanation  `json:"explanations"`
	Metadata              ReportMetadata `json:"metadata"`
}
