package baseline

// Package baseline builds and validates per-asset healthy profiles.
//
// Responsibilities:
//   - Filter training history to confirmed-healthy rows only
//   - Enforce a minimum healthy-coverage ratio before building anything
//   - Compute mean/std/min/max/sample-count per raw signal and per feature
//   - Validate readings against a profile (3-sigma bounds) and check
//     profile structural sanity
//
// The profile is the sole definition of "normal": nothing is anomalous
// in isolation, only relative to it. A built profile is immutable; a
// recalibration replaces it wholesale.

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// MinCoverageRatio is the default minimum fraction of usable healthy
// samples required per column before a profile may be built.
const MinCoverageRatio = 0.80

// MinHealthySamples is the minimum absolute number of healthy readings
// needed for calibration.
const MinHealthySamples = 10

// SignalProfile holds the healthy statistics of one signal or feature.
type SignalProfile struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sample_count"`
}

// TrainingWindow records what span of history a profile was built from.
type TrainingWindow struct {
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	SampleCount      int       `json:"sample_count"`
	ValidSampleRatio float64   `json:"valid_sample_ratio"`
}

// Profile is a per-asset healthy baseline over raw signals and features.
type Profile struct {
	BaselineID      string                   `json:"baseline_id"`
	AssetID         string                   `json:"asset_id"`
	CreatedAt       time.Time                `json:"created_at"`
	Window          TrainingWindow           `json:"window"`
	SignalProfiles  map[string]SignalProfile `json:"signal_profiles"`
	FeatureProfiles map[string]SignalProfile `json:"feature_profiles"`
}

// CoverageError reports a calibration refusal: a column (or the healthy
// row set itself) did not reach the required coverage ratio.
type CoverageError struct {
	Column   string
	Ratio    float64
	Required float64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("baseline coverage too low for %q: %.2f < %.2f required",
		e.Column, e.Ratio, e.Required)
}

// ErrInsufficientSamples is returned when too few healthy readings exist
// to calibrate at all.
var ErrInsufficientSamples = fmt.Errorf("baseline: fewer than %d healthy samples", MinHealthySamples)

// Builder constructs profiles from tagged history.
type Builder struct {
	minCoverage float64
}

// NewBuilder creates a Builder. Ratios outside (0,1] fall back to the
// default MinCoverageRatio.
func NewBuilder(minCoverage float64) *Builder {
	if minCoverage <= 0 || minCoverage > 1 {
		minCoverage = MinCoverageRatio
	}
	return &Builder{minCoverage: minCoverage}
}

// Build constructs a healthy profile from readings and their aligned
// legacy feature rows. featureRows[i] corresponds to readings[i]; rows
// may carry undefined (NaN) components, which are excluded per column.
// Fault-injected readings never contribute to any statistic.
func (b *Builder) Build(assetID string, readings []models.SensorReading, featureNames []string, featureRows []features.Vector) (*Profile, error) {
	if len(featureRows) != 0 && len(featureRows) != len(readings) {
		return nil, fmt.Errorf("baseline: %d feature rows for %d readings", len(featureRows), len(readings))
	}
	if len(readings) == 0 {
		return nil, ErrInsufficientSamples
	}

	healthy := make([]int, 0, len(readings))
	for i, r := range readings {
		if !r.FaultInjected {
			healthy = append(healthy, i)
		}
	}

	healthyRatio := float64(len(healthy)) / float64(len(readings))
	if healthyRatio < b.minCoverage {
		return nil, &CoverageError{Column: "healthy_rows", Ratio: healthyRatio, Required: b.minCoverage}
	}
	if len(healthy) < MinHealthySamples {
		return nil, ErrInsufficientSamples
	}

	p := &Profile{
		BaselineID: uuid.NewString(),
		AssetID:    assetID,
		CreatedAt:  time.Now().UTC(),
		Window: TrainingWindow{
			Start:            readings[0].Timestamp,
			End:              readings[len(readings)-1].Timestamp,
			SampleCount:      len(healthy),
			ValidSampleRatio: healthyRatio,
		},
		SignalProfiles:  make(map[string]SignalProfile),
		FeatureProfiles: make(map[string]SignalProfile),
	}

	for _, sig := range features.BatchSignalNames {
		values := make([]float64, 0, len(healthy))
		for _, i := range healthy {
			values = append(values, signalValue(readings[i], sig))
		}
		p.SignalProfiles[sig] = profileOf(values)
	}

	if len(featureRows) == 0 {
		featureNames = nil
	}
	for col, name := range featureNames {
		values := make([]float64, 0, len(healthy))
		defined := 0
		for _, i := range healthy {
			if featureRows[i] == nil || col >= len(featureRows[i]) {
				continue
			}
			v := featureRows[i][col]
			if features.IsUndefined(v) {
				continue
			}
			defined++
			values = append(values, v)
		}
		ratio := float64(defined) / float64(len(healthy))
		if ratio < b.minCoverage {
			return nil, &CoverageError{Column: name, Ratio: ratio, Required: b.minCoverage}
		}
		p.FeatureProfiles[name] = profileOf(values)
	}

	return p, nil
}

func signalValue(r models.SensorReading, signal string) float64 {
	switch signal {
	case "voltage_v":
		return r.Signals.VoltageV
	case "current_a":
		return r.Signals.CurrentA
	case "power_factor":
		return r.Signals.PowerFactor
	case "vibration_g":
		return r.Signals.VibrationG
	}
	return 0
}

func profileOf(values []float64) SignalProfile {
	if len(values) == 0 {
		return SignalProfile{}
	}
	mean := 0.0
	min, max := values[0], values[0]
	for _, v := range values {
		mean += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(values)))

	return SignalProfile{Mean: mean, Std: std, Min: min, Max: max, SampleCount: len(values)}
}
