package baseline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

func healthyReadings(n int, voltage float64) []models.SensorReading {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SensorReading, n)
	for i := range out {
		out[i] = models.SensorReading{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			AssetID:   "motor-001",
			Signals: models.Signals{
				VoltageV:    voltage,
				CurrentA:    15.0,
				PowerFactor: 0.90,
				VibrationG:  0.12,
			},
		}
	}
	return out
}

func TestBuildHealthyOnly(t *testing.T) {
	readings := healthyReadings(100, 230.0)
	// Contaminate 10 rows with a wild voltage and tag them faulty.
	for i := 0; i < 10; i++ {
		readings[i].Signals.VoltageV = 400.0
		readings[i].FaultInjected = true
	}

	p, err := NewBuilder(MinCoverageRatio).Build("motor-001", readings, nil, nil)
	require.NoError(t, err)

	vp := p.SignalProfiles["voltage_v"]
	assert.Equal(t, 90, vp.SampleCount)
	assert.InDelta(t, 230.0, vp.Mean, 1e-9, "faulty rows must not leak into the mean")
	assert.InDelta(t, 230.0, vp.Max, 1e-9)
	assert.NotEmpty(t, p.BaselineID)
	assert.Equal(t, "motor-001", p.AssetID)
}

func TestBuildFailsBelowHealthyCoverage(t *testing.T) {
	readings := healthyReadings(100, 230.0)
	for i := 0; i < 30; i++ {
		readings[i].FaultInjected = true
	}

	_, err := NewBuilder(MinCoverageRatio).Build("motor-001", readings, nil, nil)
	require.Error(t, err)

	var ce *CoverageError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "healthy_rows", ce.Column)
	assert.InDelta(t, 0.70, ce.Ratio, 1e-9)
}

func TestBuildFailsOnSparseFeatureColumn(t *testing.T) {
	readings := healthyReadings(20, 230.0)
	rows := make([]features.Vector, len(readings))
	for i := range rows {
		// First feature mostly undefined, second always defined.
		first := math.NaN()
		if i >= 15 {
			first = 230.0
		}
		rows[i] = features.Vector{first, 1.0}
	}

	_, err := NewBuilder(MinCoverageRatio).Build("motor-001", readings, []string{"voltage_rolling_mean", "vibration_rms"}, rows)
	require.Error(t, err)

	var ce *CoverageError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "voltage_rolling_mean", ce.Column)
}

func TestBuildFeatureProfilesExcludeUndefined(t *testing.T) {
	readings := healthyReadings(20, 230.0)
	rows := make([]features.Vector, len(readings))
	for i := range rows {
		v := 10.0
		if i < 2 {
			v = math.NaN() // cold-start rows
		}
		rows[i] = features.Vector{v}
	}

	p, err := NewBuilder(MinCoverageRatio).Build("motor-001", readings, []string{"vibration_rms"}, rows)
	require.NoError(t, err)

	fp := p.FeatureProfiles["vibration_rms"]
	assert.Equal(t, 18, fp.SampleCount)
	assert.InDelta(t, 10.0, fp.Mean, 1e-9)
}

func TestBuildTooFewSamples(t *testing.T) {
	_, err := NewBuilder(MinCoverageRatio).Build("motor-001", healthyReadings(5, 230.0), nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientSamples)

	_, err = NewBuilder(MinCoverageRatio).Build("motor-001", nil, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestValidateReadingsThreeSigma(t *testing.T) {
	readings := healthyReadings(100, 230.0)
	// Give voltage some spread so the band is not degenerate.
	for i := range readings {
		readings[i].Signals.VoltageV = 230.0 + float64(i%5)-2.0
	}
	p, err := NewBuilder(MinCoverageRatio).Build("motor-001", readings, nil, nil)
	require.NoError(t, err)

	probe := healthyReadings(2, 230.0)
	probe[1].Signals.VoltageV = 280.0

	res := ValidateReadings(p, probe)
	assert.Equal(t, 2, res.Checked)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "voltage_v", res.Violations[0].Signal)
	assert.InDelta(t, 0.5, res.PassRate, 1e-9)
	assert.False(t, res.Passed())
}

func TestValidateProfileStructural(t *testing.T) {
	good := &Profile{
		AssetID: "motor-001",
		SignalProfiles: map[string]SignalProfile{
			"voltage_v": {Mean: 230, Std: 2, Min: 224, Max: 236, SampleCount: 50},
		},
	}
	assert.NoError(t, ValidateProfile(good))

	bad := &Profile{
		AssetID: "motor-001",
		SignalProfiles: map[string]SignalProfile{
			"voltage_v": {Mean: 230, Std: -1, Min: 224, Max: 236, SampleCount: 50},
		},
	}
	assert.Error(t, ValidateProfile(bad))

	inverted := &Profile{
		AssetID: "motor-001",
		FeatureProfiles: map[string]SignalProfile{
			"vibration_rms": {Mean: 0.1, Std: 0.01, Min: 0.5, Max: 0.2, SampleCount: 50},
		},
	}
	assert.Error(t, ValidateProfile(inverted))

	assert.Error(t, ValidateProfile(nil))
}
