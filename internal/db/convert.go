package db

import (
	"encoding/json"
	"fmt"

	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// ReadingRecordFrom flattens a sensor reading for storage.
func ReadingRecordFrom(r models.SensorReading) *ReadingRecord {
	return &ReadingRecord{
		EventID:        r.EventID,
		AssetID:        r.AssetID,
		AssetType:      string(r.AssetType),
		VoltageV:       r.Signals.VoltageV,
		CurrentA:       r.Signals.CurrentA,
		PowerFactor:    r.Signals.PowerFactor,
		PowerKW:        r.Signals.PowerKW,
		VibrationG:     r.Signals.VibrationG,
		OperatingState: string(r.OperatingState),
		Source:         r.Source,
		FaultInjected:  r.FaultInjected,
		Timestamp:      r.Timestamp,
	}
}

// Reading rebuilds the domain reading from a stored record.
func (rec *ReadingRecord) Reading() models.SensorReading {
	return models.SensorReading{
		EventID:   rec.EventID,
		Timestamp: rec.Timestamp,
		AssetID:   rec.AssetID,
		AssetType: models.AssetType(rec.AssetType),
		Signals: models.Signals{
			VoltageV:    rec.VoltageV,
			CurrentA:    rec.CurrentA,
			PowerFactor: rec.PowerFactor,
			PowerKW:     rec.PowerKW,
			VibrationG:  rec.VibrationG,
		},
		OperatingState: models.OperatingState(rec.OperatingState),
		Source:         rec.Source,
		FaultInjected:  rec.FaultInjected,
	}
}

// ReportRecordFrom flattens a health report, serializing explanations.
func ReportRecordFrom(r *models.HealthReport) (*ReportRecord, error) {
	explanations, err := json.Marshal(r.Explanations)
	if err != nil {
		return nil, fmt.Errorf("marshal explanations: %w", err)
	}
	return &ReportRecord{
		ReportID:              r.ReportID,
		AssetID:               r.AssetID,
		HealthScore:           r.HealthScore,
		AnomalyScore:          r.AnomalyScore,
		RiskLevel:             string(r.RiskLevel),
		MaintenanceWindowDays: r.MaintenanceWindowDays,
		TrendSlope:            r.TrendSlope,
		Explanations:          string(explanations),
		ModelVersion:          r.Metadata.ModelVersion,
		AssessmentVersion:     r.Metadata.AssessmentVersion,
		Timestamp:             r.Timestamp,
	}, nil
}

// Report rebuilds the domain report from a stored record.
func (rec *ReportRecord) Report() (*models.HealthReport, error) {
	var explanations []models.Explanation
	if rec.Explanations != "" {
		if err := json.Unmarshal([]byte(rec.Explanations), &explanations); err != nil {
			return nil, fmt.Errorf("unmarshal explanations: %w", err)
		}
	}
	return &models.HealthReport{
		ReportID:              rec.ReportID,
		Timestamp:             rec.Timestamp,
		AssetID:               rec.AssetID,
		HealthScore:           rec.HealthScore,
		AnomalyScore:          rec.AnomalyScore,
		RiskLevel:             models.RiskLevel(rec.RiskLevel),
		MaintenanceWindowDays: rec.MaintenanceWindowDays,
		TrendSlope:            rec.TrendSlope,
		Explanations:          explanations,
		Metadata: models.ReportMetadata{
			ModelVersion:      rec.ModelVersion,
			AssessmentVersion: rec.AssessmentVersion,
		},
	}, nil
}

// BaselineRecordFrom flattens a baseline profile, serializing the
// per-signal and per-feature statistics.
func BaselineRecordFrom(p *baseline.Profile) (*BaselineRecord, error) {
	signals, err := json.Marshal(p.SignalProfiles)
	if err != nil {
		return nil, fmt.Errorf("marshal signal profiles: %w", err)
	}
	featuresJSON, err := json.Marshal(p.FeatureProfiles)
	if err != nil {
		return nil, fmt.Errorf("marshal feature profiles: %w", err)
	}
	return &BaselineRecord{
		BaselineID:      p.BaselineID,
		AssetID:         p.AssetID,
		WindowStart:     p.Window.Start,
		WindowEnd:       p.Window.End,
		SampleCount:     p.Window.SampleCount,
		SignalProfiles:  string(signals),
		FeatureProfiles: string(featuresJSON),
		CreatedAt:       p.CreatedAt,
	}, nil
}

// Profile rebuilds the domain profile from a stored record.
func (rec *BaselineRecord) Profile() (*baseline.Profile, error) {
	p := &baseline.Profile{
		BaselineID: rec.BaselineID,
		AssetID:    rec.AssetID,
		CreatedAt:  rec.CreatedAt,
		Window: baseline.TrainingWindow{
			Start:       rec.WindowStart,
			End:         rec.WindowEnd,
			SampleCount: rec.SampleCount,
		},
	}
	if err := json.Unmarshal([]byte(rec.SignalProfiles), &p.SignalProfiles); err != nil {
		return nil, fmt.Errorf("unmarshal signal profiles: %w", err)
	}
	if err := json.Unmarshal([]byte(rec.FeatureProfiles), &p.FeatureProfiles); err != nil {
		return nil, fmt.Errorf("unmarshal feature profiles: %w", err)
	}
	return p, nil
}

// EventRecordFrom flattens a condition event for storage.
func EventRecordFrom(e *models.ConditionEvent) *EventRecord {
	return &EventRecord{
		EventID:   e.EventID,
		AssetID:   e.AssetID,
		EventType: string(e.Type),
		Severity:  string(e.Severity),
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
}

// Event rebuilds the domain event from a stored record.
func (rec *EventRecord) Event() *models.ConditionEvent {
	return &models.ConditionEvent{
		EventID:   rec.EventID,
		Timestamp: rec.Timestamp,
		AssetID:   rec.AssetID,
		Type:      models.EventType(rec.EventType),
		Severity:  models.Severity(rec.Severity),
		Message:   rec.Message,
	}
}
