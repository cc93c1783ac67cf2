package baseline

import (
	"fmt"
	"math"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// SigmaBound is the band half-width, in standard deviations, used when
// checking a reading against a profile.
const SigmaBound = 3.0

// Violation describes one signal outside its healthy 3-sigma band.
type Violation struct {
	Signal   string  `json:"signal"`
	Observed float64 `json:"observed"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s=%.4f outside [%.4f, %.4f]", v.Signal, v.Observed, v.Lower, v.Upper)
}

// ValidationResult is the outcome of checking readings against a profile.
type ValidationResult struct {
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
	PassRate   float64     `json:"pass_rate"`
}

// Passed reports whether every checked reading stayed in band.
func (r ValidationResult) Passed() bool { return len(r.Violations) == 0 }

// ValidateReadings checks each reading's raw signals against the
// profile's 3-sigma bands. A signal with zero variance only violates
// when it moves off its constant healthy value.
func ValidateReadings(p *Profile, readings []models.SensorReading) ValidationResult {
	res := ValidationResult{Checked: len(readings)}
	failed := 0

	for _, reading := range readings {
		bad := false
		for sig, prof := range p.SignalProfiles {
			observed := signalValue(reading, sig)
			lower := prof.Mean - SigmaBound*prof.Std
			upper := prof.Mean + SigmaBound*prof.Std
			if observed < lower || observed > upper {
				res.Violations = append(res.Violations, Violation{
					Signal: sig, Observed: observed, Lower: lower, Upper: upper,
				})
				bad = true
			}
		}
		if bad {
			failed++
		}
	}

	if res.Checked > 0 {
		res.PassRate = float64(res.Checked-failed) / float64(res.Checked)
	}
	return res
}

// ValidateProfile performs structural sanity checks on a built profile.
// A profile that fails these is corrupt and must not be installed.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("baseline: nil profile")
	}
	if p.AssetID == "" {
		return fmt.Errorf("baseline: profile has no asset id")
	}
	check := func(kind, name string, sp SignalProfile) error {
		if sp.SampleCount <= 0 {
			return fmt.Errorf("baseline: %s %q has zero samples", kind, name)
		}
		if sp.Std < 0 {
			return fmt.Errorf("baseline: %s %q has negative std %.6f", kind, name, sp.Std)
		}
		if sp.Min > sp.Max {
			return fmt.Errorf("baseline: %s %q has min %.6f > max %.6f", kind, name, sp.Min, sp.Max)
		}
		if math.IsNaN(sp.Mean) || math.IsNaN(sp.Std) {
			return fmt.Errorf("baseline: %s %q has NaN statistics", kind, name)
		}
		return nil
	}
	for name, sp := range p.SignalProfiles {
		if err := check("signal", name, sp); err != nil {
			return err
		}
	}
	for name, sp := range p.FeatureProfiles {
		if err := check("feature", name, sp); err != nil {
			return err
		}
	}
	return nil
}
