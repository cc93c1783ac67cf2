package assess

import (
	"math"

	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Range scoring parameters.
const (
	// EffectiveStdFloor keeps z-scores sane for signals whose healthy
	// variance is near zero: the working std is never below this
	// fraction of the healthy mean.
	EffectiveStdFloor = 0.02

	// RangeTolerance widens the healthy min/max band before a signal
	// counts as out of range.
	RangeTolerance = 0.10

	// RangeScoreCap keeps the range score strictly below certainty.
	RangeScoreCap = 0.98
)

// RangeScore computes a direct deviation score in [0, RangeScoreCap]
// from the reading's raw signals against the profile's healthy bands.
// The worst signal dominates: the score is the max over signals of a
// piecewise z-to-score map that rises gently inside 3 sigma and
// saturates past 8.
func RangeScore(reading models.SensorReading, profile *baseline.Profile) float64 {
	if profile == nil {
		return 0
	}

	worst := 0.0
	for _, sig := range signalNames {
		sp, ok := profile.SignalProfiles[sig]
		if !ok || sp.SampleCount == 0 {
			continue
		}
		observed := rawSignal(reading, sig)
		z := deviationSigma(observed, sp)
		if s := sigmaToScore(z); s > worst {
			worst = s
		}
	}
	if worst > RangeScoreCap {
		return RangeScoreCap
	}
	return worst
}

// OutOfRange reports whether any raw signal leaves its healthy min/max
// band widened by RangeTolerance.
func OutOfRange(reading models.SensorReading, profile *baseline.Profile) bool {
	if profile == nil {
		return false
	}
	for _, sig := range signalNames {
		sp, ok := profile.SignalProfiles[sig]
		if !ok || sp.SampleCount == 0 {
			continue
		}
		span := sp.Max - sp.Min
		slack := span * RangeTolerance
		if slack == 0 {
			slack = math.Abs(sp.Mean) * EffectiveStdFloor
		}
		observed := rawSignal(reading, sig)
		if observed > sp.Max+slack || observed < sp.Min-slack {
			return true
		}
	}
	return false
}

// Blend combines the range-based and model scores. Inside the override
// gap the two blend at the configured fixed ratio; when the model score
// runs far ahead of the range signal, the range signal is weighted up
// so a saturated model output cannot swing reports between LOW and
// CRITICAL on its own.
func Blend(rangeScore, modelScore float64, opts Options) float64 {
	w := opts.RangeWeight
	if modelScore-rangeScore > opts.OverrideGap {
		w = opts.OverrideRangeWeight
	}
	blended := w*rangeScore + (1-w)*modelScore
	if blended < 0 {
		return 0
	}
	if blended > 1 {
		return 1
	}
	return blended
}

var signalNames = []string{"voltage_v", "current_a", "power_factor", "vibration_g"}

func rawSignal(r models.SensorReading, signal string) float64 {
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

// deviationSigma measures |observed - mean| in working standard
// deviations, flooring the std at EffectiveStdFloor of the mean.
func deviationSigma(observed float64, sp baseline.SignalProfile) float64 {
	std := math.Max(sp.Std, math.Abs(sp.Mean)*EffectiveStdFloor)
	if std == 0 {
		if observed == sp.Mean {
			return 0
		}
		return 10 // constant signal moved: maximal deviation
	}
	return math.Abs(observed-sp.Mean) / std
}

// sigmaToScore maps a sigma deviation onto [0,1): ~0.1 at 3 sigma,
// 0.3 at 5, 0.6 at 8, then a slow climb capped at 0.95.
func sigmaToScore(z float64) float64 {
	switch {
	case z < 3:
		return z * 0.033
	case z < 5:
		return 0.1 + (z-3)*0.1
	case z < 8:
		return 0.3 + (z-5)*0.1
	default:
		return math.Min(0.95, 0.6+(z-8)*0.05)
	}
}
