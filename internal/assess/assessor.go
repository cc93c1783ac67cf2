package assess

// Package assess maps anomaly scores to health scores, risk levels, and
// maintenance-window estimates.
//
// Responsibilities:
//   - Deterministic health scoring: identical inputs always produce
//     identical health score and risk level (required for auditability)
//   - Risk classification over named, non-overlapping thresholds
//   - Blended anomaly scoring: fixed-ratio blend of the range-based
//     signal and the model score, with the range signal weighted up
//     when the two disagree sharply
//   - Monotonic maintenance-window lookup per risk level
//   - Health trend slope over recent assessments
//
// The assessor output is necessary but not sufficient to declare an
// asset anomalous: only the debounced condition state machine fires
// transitions.

import (
	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Risk thresholds on the health score. Non-overlapping:
// health < ThresholdCritical is CRITICAL, then HIGH, then MODERATE,
// everything at or above ThresholdModerate is LOW.
const (
	ThresholdCritical = 25
	ThresholdHigh     = 50
	ThresholdModerate = 75
)

// Health mapping breakpoints: low anomaly scores map onto a gentle
// "green start" slope so a barely-elevated model score does not
// immediately read as degraded.
const (
	greenKnee  = 0.15
	yellowKnee = 0.35
)

// AssessmentVersion tags report metadata.
const AssessmentVersion = "2.0"

// Maintenance-window estimates in days: the midpoint of each risk
// level's recommended service range. Monotonically decreasing as risk
// rises.
const (
	WindowCriticalDays = 0.5  // 0-1 day
	WindowHighDays     = 4.0  // 1-7 days
	WindowModerateDays = 18.5 // 7-30 days
	WindowLowDays      = 60.0 // 30-90 days
)

// Input is everything one assessment consumes. The assessor itself
// holds no per-asset state.
type Input struct {
	Reading models.SensorReading

	// ModelScore is the calibrated score of the primary (batch)
	// detector. LegacyScore is informational; it never overrides the
	// batch result.
	ModelScore   float64
	LegacyScore  float64
	LegacyScored bool

	// Explanation inputs: the legacy vector and its column names,
	// checked against the profile's feature statistics.
	FeatureNames []string
	Features     features.Vector

	Profile *baseline.Profile

	// RecentHealth holds prior health scores, oldest first, for the
	// trend slope.
	RecentHealth []int

	DetectorID string
}

// HealthAssessor turns assessment inputs into immutable health reports.
type HealthAssessor interface {
	// Assess produces a health report for one reading. Apart from the
	// fresh report id and timestamp, output is a pure function of the
	// input.
	Assess(in Input) (*models.HealthReport, error)
}

// Options carries the blend tuning. The ratios are heuristic and
// deliberately configurable; they are not load-bearing truth.
type Options struct {
	// RangeWeight is the blend weight of the range-based score; the
	// model score receives 1 - RangeWeight.
	RangeWeight float64

	// OverrideGap is the disagreement (model minus range) beyond which
	// the range signal is weighted up to OverrideRangeWeight.
	OverrideGap float64

	// OverrideRangeWeight applies when the scores disagree sharply.
	OverrideRangeWeight float64
}

// DefaultOptions returns the standard 60/40 blend.
func DefaultOptions() Options {
	return Options{
		RangeWeight:         0.60,
		OverrideGap:         0.35,
		OverrideRangeWeight: 0.85,
	}
}

// HealthScore maps a blended anomaly score in [0,1] to a health score
// in [0,100] via the piecewise green-start curve.
func HealthScore(anomaly float64) int {
	if anomaly < 0 {
		anomaly = 0
	}
	if anomaly > 1 {
		anomaly = 1
	}

	var h float64
	switch {
	case anomaly < greenKnee:
		h = 100.0 - (anomaly/greenKnee)*20.0
	case anomaly < yellowKnee:
		h = 80.0 - ((anomaly-greenKnee)/(yellowKnee-greenKnee))*30.0
	default:
		h = 50.0 - ((anomaly-yellowKnee)/(1.0-yellowKnee))*50.0
	}

	score := int(h + 0.5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ClassifyRisk maps a health score to its risk level.
func ClassifyRisk(health int) models.RiskLevel {
	switch {
	case health < ThresholdCritical:
		return models.RiskCritical
	case health < ThresholdHigh:
		return models.RiskHigh
	case health < ThresholdModerate:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// MaintenanceWindowDays returns the estimated days until recommended
// service for a risk level.
func MaintenanceWindowDays(risk models.RiskLevel) float64 {
	switch risk {
	case models.RiskCritical:
		return WindowCriticalDays
	case models.RiskHigh:
		return WindowHighDays
	case models.RiskModerate:
		return WindowModerateDays
	default:
		return WindowLowDays
	}
}

// TrendSlope is the average per-assessment change across the recent
// health scores: (last - first) / (n - 1). Fewer than two points have
// no trend.
func TrendSlope(recent []int) float64 {
	if len(recent) < 2 {
		return 0
	}
	return float64(recent[len(recent)-1]-recent[0]) / float64(len(recent)-1)
}
