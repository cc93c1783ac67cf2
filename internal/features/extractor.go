package features

// Package features turns raw sensor readings into model-ready feature
// vectors at two time resolutions.
//
// Responsibilities:
//   - Legacy extraction: six interpretable features from a rolling,
//     past-only history of readings (one vector per reading)
//   - Batch extraction: sixteen windowed statistics (mean, std,
//     peak-to-peak, RMS for each of the four signals)
//   - Undefined propagation: a feature whose supporting window is too
//     short is NaN, never zero, so cold-start output can never be
//     mistaken for a real measurement
//
// Both extractors are pure: no I/O, no shared state, safe to call
// concurrently for different assets.

import (
	"math"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Nominal grid voltage (Indian Grid standard).
const NominalVoltageV = 230.0

// Legacy extractor window parameters. The spike window must be wide
// enough for a lone outlier to clear the sigma threshold: the largest
// attainable z-score in an n-point window is (n-1)/sqrt(n).
const (
	VoltageWindowSize    = 60
	VoltageWindowMin     = 2
	SpikeWindowSize      = 20
	SpikeWindowMin       = 3
	SpikeSigmaThreshold  = 3.0
	VibrationWindowSize  = 60
	VibrationWindowMin   = 2
	PowerFactorEpsilon   = 0.01
	EfficiencyScoreFloor = 0.80
	EfficiencyScoreSpan  = 0.20
)

// LegacyFeatureNames is the fixed column order of the legacy vector.
var LegacyFeatureNames = []string{
	"voltage_rolling_mean",
	"current_spike_count",
	"power_factor_efficiency_score",
	"vibration_rms",
	"voltage_stability",
	"power_vibration_ratio",
}

// Vector is an ordered feature vector. NaN marks an undefined feature
// computed from an incomplete window.
type Vector []float64

// Defined reports whether every component has a concrete value.
func (v Vector) Defined() bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return false
		}
	}
	return len(v) > 0
}

// Undefined returns the undefined marker.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether a single feature value is undefined.
func IsUndefined(x float64) bool { return math.IsNaN(x) }

// LegacyExtractor computes the six legacy features from rolling history.
type LegacyExtractor struct {
	voltageWindow   int
	voltageMin      int
	spikeWindow     int
	spikeMin        int
	spikeSigma      float64
	vibrationWindow int
	vibrationMin    int
}

// NewLegacyExtractor creates an extractor with the default windows.
func NewLegacyExtractor() *LegacyExtractor {
	return &LegacyExtractor{
		voltageWindow:   VoltageWindowSize,
		voltageMin:      VoltageWindowMin,
		spikeWindow:     SpikeWindowSize,
		spikeMin:        SpikeWindowMin,
		spikeSigma:      SpikeSigmaThreshold,
		vibrationWindow: VibrationWindowSize,
		vibrationMin:    VibrationWindowMin,
	}
}

// Extract computes the legacy vector for the most recent reading in
// history. History must be ordered oldest-first and include the current
// reading as its last element; only readings at or before the current
// timestamp participate (past-only windows).
func (e *LegacyExtractor) Extract(history []models.SensorReading) Vector {
	if len(history) == 0 {
		return nil
	}
	current := history[len(history)-1]

	v := make(Vector, len(LegacyFeatureNames))
	v[0] = e.voltageRollingMean(history)
	v[1] = e.currentSpikeCount(history)
	v[2] = efficiencyScore(current.Signals.PowerFactor)
	v[3] = e.vibrationRMS(history)
	v[4] = math.Abs(current.Signals.VoltageV - NominalVoltageV)
	v[5] = current.Signals.VibrationG / (current.Signals.PowerFactor + PowerFactorEpsilon)
	return v
}

func (e *LegacyExtractor) voltageRollingMean(history []models.SensorReading) float64 {
	w := tail(history, e.voltageWindow)
	if len(w) < e.voltageMin {
		return Undefined()
	}
	sum := 0.0
	for _, r := range w {
		sum += r.Signals.VoltageV
	}
	return sum / float64(len(w))
}

// currentSpikeCount counts points in the local window whose deviation
// from the local mean exceeds spikeSigma standard deviations. A window
// with zero variance has, by definition, zero spikes.
func (e *LegacyExtractor) currentSpikeCount(history []models.SensorReading) float64 {
	w := tail(history, e.spikeWindow)
	if len(w) < e.spikeMin {
		return Undefined()
	}

	mean := 0.0
	for _, r := range w {
		mean += r.Signals.CurrentA
	}
	mean /= float64(len(w))

	variance := 0.0
	for _, r := range w {
		d := r.Signals.CurrentA - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(w)))
	if std == 0 {
		return 0
	}

	spikes := 0
	for _, r := range w {
		if math.Abs(r.Signals.CurrentA-mean) > e.spikeSigma*std {
			spikes++
		}
	}
	return float64(spikes)
}

func (e *LegacyExtractor) vibrationRMS(history []models.SensorReading) float64 {
	w := tail(history, e.vibrationWindow)
	if len(w) < e.vibrationMin {
		return Undefined()
	}
	sumSq := 0.0
	for _, r := range w {
		sumSq += r.Signals.VibrationG * r.Signals.VibrationG
	}
	return math.Sqrt(sumSq / float64(len(w)))
}

// efficiencyScore linearly rescales power factor onto 0-100, anchored
// at PF 0.80 (0) and PF 1.00 (100).
func efficiencyScore(pf float64) float64 {
	score := (pf - EfficiencyScoreFloor) / EfficiencyScoreSpan * 100.0
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// tail returns the last n elements of history (all of it when shorter).
func tail(history []models.SensorReading, n int) []models.SensorReading {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
