package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

func testProfile() *baseline.Profile {
	return &baseline.Profile{
		AssetID: "motor-001",
		FeatureProfiles: map[string]baseline.SignalProfile{
			"voltage_rolling_mean": {Mean: 230.0, Std: 2.0, Min: 224.0, Max: 236.0, SampleCount: 100},
			"vibration_rms":        {Mean: 0.12, Std: 0.01, Min: 0.10, Max: 0.15, SampleCount: 100},
			"current_spike_count":  {Mean: 0.0, Std: 0.0, Min: 0.0, Max: 0.0, SampleCount: 100},
		},
	}
}

var testNames = []string{"voltage_rolling_mean", "vibration_rms", "current_spike_count"}

func TestGenerateLowRiskNominal(t *testing.T) {
	e := NewEngine()
	out := e.Generate(models.RiskLow, testNames, features.Vector{230, 0.12, 0}, testProfile())
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Description, "healthy baseline")
	assert.Equal(t, ConfidenceCap, out[0].Confidence)
}

func TestGenerateRanksByZScore(t *testing.T) {
	e := NewEngine()
	// Voltage 6σ out, vibration 3σ out.
	out := e.Generate(models.RiskHigh, testNames, features.Vector{242.0, 0.145, 0}, testProfile())
	require.NotEmpty(t, out)
	assert.Equal(t, "voltage_rolling_mean", out[0].Feature)
	assert.Contains(t, out[0].Description, "above")
	assert.GreaterOrEqual(t, out[0].Confidence, 0.9)
}

func TestGenerateEpsilonRule(t *testing.T) {
	p := &baseline.Profile{
		AssetID: "motor-001",
		FeatureProfiles: map[string]baseline.SignalProfile{
			// Tiny std: a 0.5%-of-mean shift has z = 10 but fails the
			// practical-significance test.
			"power_factor_efficiency_score": {Mean: 50.0, Std: 0.025, Min: 30.0, Max: 70.0, SampleCount: 100},
			"voltage_rolling_mean":          {Mean: 230.0, Std: 2.0, Min: 224.0, Max: 236.0, SampleCount: 100},
		},
	}
	names := []string{"power_factor_efficiency_score", "voltage_rolling_mean"}

	e := NewEngine()
	// Efficiency moved 0.25 (0.5% of mean, z=10); voltage 5σ out.
	out := e.Generate(models.RiskHigh, names, features.Vector{50.25, 240.0}, p)
	require.NotEmpty(t, out)
	for _, ex := range out {
		assert.NotEqual(t, "power_factor_efficiency_score", ex.Feature,
			"z=10 with deviation at 0.5%% of mean must be discarded")
	}
	assert.Equal(t, "voltage_rolling_mean", out[0].Feature)
}

func TestGenerateFallbackToLargestRawDeviation(t *testing.T) {
	p := &baseline.Profile{
		AssetID: "motor-001",
		FeatureProfiles: map[string]baseline.SignalProfile{
			// Wide bands so nothing crosses min/max or 2σ, yet risk is
			// elevated: the engine must still say something concrete.
			"voltage_rolling_mean": {Mean: 230.0, Std: 50.0, Min: 100.0, Max: 400.0, SampleCount: 100},
			"vibration_rms":        {Mean: 0.12, Std: 1.0, Min: -5.0, Max: 5.0, SampleCount: 100},
		},
	}
	names := []string{"voltage_rolling_mean", "vibration_rms"}

	e := NewEngine()
	out := e.Generate(models.RiskHigh, names, features.Vector{238.0, 0.13}, p)
	require.Len(t, out, 1, "fallback emits exactly the largest raw deviation")
	assert.Equal(t, "voltage_rolling_mean", out[0].Feature)
}

func TestGenerateTopThreeCap(t *testing.T) {
	p := &baseline.Profile{
		AssetID:         "motor-001",
		FeatureProfiles: map[string]baseline.SignalProfile{},
	}
	names := make([]string, 6)
	vec := make(features.Vector, 6)
	for i := range names {
		names[i] = string(rune('a'+i)) + "_feature"
		p.FeatureProfiles[names[i]] = baseline.SignalProfile{
			Mean: 10.0, Std: 1.0, Min: 7.0, Max: 13.0, SampleCount: 50,
		}
		vec[i] = 10.0 + float64(i+3) // all well past 2 sigma
	}

	e := NewEngine()
	out := e.Generate(models.RiskCritical, names, vec, p)
	require.Len(t, out, MaxExplanations)
	// Ranked by |z| descending: the biggest deviation first.
	assert.Equal(t, "f_feature", out[0].Feature)
}

func TestGenerateZeroStdNoDivision(t *testing.T) {
	e := NewEngine()
	// current_spike_count has std 0; observed 5 breaks the max band but
	// must report z = 0, not infinity.
	out := e.Generate(models.RiskHigh, testNames, features.Vector{230.0, 0.12, 5.0}, testProfile())
	require.NotEmpty(t, out)
	assert.Equal(t, "current_spike_count", out[0].Feature)
	assert.Equal(t, 0.0, out[0].ZScore)
}

func TestGenerateSkipsUndefined(t *testing.T) {
	e := NewEngine()
	vec := features.Vector{features.Undefined(), 0.30, 0}
	out := e.Generate(models.RiskHigh, testNames, vec, testProfile())
	require.NotEmpty(t, out)
	for _, ex := range out {
		assert.NotEqual(t, "voltage_rolling_mean", ex.Feature)
	}
	assert.Equal(t, "vibration_rms", out[0].Feature)
}

func TestGenerateDegradedWhenNoProfile(t *testing.T) {
	e := NewEngine()
	out := e.Generate(models.RiskCritical, nil, nil, nil)
	require.Len(t, out, 1)
	assert.True(t, strings.Contains(out[0].Description, "unavailable"))
}
