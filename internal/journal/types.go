package journal

import "time"

// EntryType represents the type of journal entry
type EntryType string

const (
	// Calibration entries
	EntryCalibrationStarted   EntryType = "calibration.started"
	EntryCalibrationCompleted EntryType = "calibration.completed"
	EntryCalibrationFailed    EntryType = "calibration.failed"

	// Condition entries
	EntryAnomalyDetected EntryType = "condition.anomaly_detected"
	EntryAnomalyCleared  EntryType = "condition.anomaly_cleared"

	// Assessment entries
	EntryRiskEscalated EntryType = "assessment.risk_escalated"

	// Configuration entries
	EntryConfigLoaded EntryType = "config.loaded"
	EntryConfigReload EntryType = "config.reload"

	// System entries
	EntryServerStarted  EntryType = "system.server_started"
	EntryServerShutdown EntryType = "system.server_shutdown"
)

// Result represents the outcome of a journaled operation
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPending Result = "pending"
)

// Entry represents a single journal entry
type Entry struct {
	// Core fields
	Timestamp time.Time `json:"timestamp"`
	EntryType EntryType `json:"entry_type"`
	Result    Result    `json:"result"`

	// Asset information
	AssetID    string `json:"asset_id,omitempty"`
	BaselineID string `json:"baseline_id,omitempty"`
	ReportID   string `json:"report_id,omitempty"`

	// Assessment details
	HealthScore int    `json:"health_score,omitempty"`
	RiskLevel   string `json:"risk_level,omitempty"`

	// Narrative
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// Error information
	Error string `json:"error,omitempty"`

	// Duration tracking
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewEntry creates a new journal entry with default values
func NewEntry(entryType EntryType) *Entry {
	return &Entry{
		Timestamp: time.Now().UTC(),
		EntryType: entryType,
		Result:    ResultPending,
		Metadata:  make(map[string]interface{}),
	}
}

// WithAsset sets the asset the entry concerns
func (e *Entry) WithAsset(assetID string) *Entry {
	e.AssetID = assetID
	return e
}

// WithBaseline sets the baseline profile id
func (e *Entry) WithBaseline(baselineID string) *Entry {
	e.BaselineID = baselineID
	return e
}

// WithReport sets the health report id
func (e *Entry) WithReport(reportID string) *Entry {
	e.ReportID = reportID
	return e
}

// WithHealth sets the health score and risk level
func (e *Entry) WithHealth(score int, risk string) *Entry {
	e.HealthScore = score
	e.RiskLevel = risk
	return e
}

// WithDescription sets a human-readable description
func (e *Entry) WithDescription(desc string) *Entry {
	e.Description = desc
	return e
}

// WithResult sets the result of the entry
func (e *Entry) WithResult(result Result) *Entry {
	e.Result = result
	return e
}

// WithMetadata adds a metadata key-value pair
func (e *Entry) WithMetadata(key string, value interface{}) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithError records an error on the entry and marks it failed
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

// WithDuration records how long the operation took
func (e *Entry) WithDuration(d time.Duration) *Entry {
	e.DurationMs = d.Milliseconds()
	return e
}
