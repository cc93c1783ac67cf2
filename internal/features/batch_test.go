package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchFeatureNamesOrder(t *testing.T) {
	require.Len(t, BatchFeatureNames, 16)
	assert.Equal(t, "voltage_v_mean", BatchFeatureNames[0])
	assert.Equal(t, "voltage_v_std", BatchFeatureNames[1])
	assert.Equal(t, "voltage_v_peak_to_peak", BatchFeatureNames[2])
	assert.Equal(t, "voltage_v_rms", BatchFeatureNames[3])
	assert.Equal(t, "vibration_g_rms", BatchFeatureNames[15])
}

func TestBatchExtractConstantWindow(t *testing.T) {
	e := NewBatchExtractor(BatchWindowSize)
	window := makeHistory(100, 230.0, 15.0, 0.90, 0.12)

	v := e.Extract(window)
	require.Len(t, v, 16)

	// voltage_v block
	assert.InDelta(t, 230.0, v[0], 1e-9)
	assert.InDelta(t, 0.0, v[1], 1e-9)
	assert.InDelta(t, 0.0, v[2], 1e-9)
	assert.InDelta(t, 230.0, v[3], 1e-9)

	// vibration_g block
	assert.InDelta(t, 0.12, v[12], 1e-9)
	assert.InDelta(t, 0.0, v[13], 1e-9)
	assert.InDelta(t, 0.0, v[14], 1e-9)
	assert.InDelta(t, 0.12, v[15], 1e-9)
}

func TestBatchExtractShortWindowUndefined(t *testing.T) {
	e := NewBatchExtractor(BatchWindowSize)
	window := makeHistory(BatchWindowMin-1, 230.0, 15.0, 0.90, 0.12)
	assert.Nil(t, e.Extract(window), "short window must be undefined, not zeros")
}

func TestBatchExtractJitterIsVisible(t *testing.T) {
	e := NewBatchExtractor(BatchWindowSize)
	window := makeHistory(100, 230.0, 15.0, 0.90, 0.15)
	// Alternate vibration around the same mean. Mean stays put while
	// std and peak-to-peak blow up.
	for i := range window {
		if i%2 == 0 {
			window[i].Signals.VibrationG = 0.15 + 0.17
		} else {
			window[i].Signals.VibrationG = 0.15 - 0.15
		}
	}

	v := e.Extract(window)
	vibMean, vibStd, vibP2P := v[12], v[13], v[14]

	assert.InDelta(t, 0.16, vibMean, 0.01, "mean stays near baseline")
	assert.Greater(t, vibStd, 0.1, "variance is abnormal")
	assert.InDelta(t, 0.32, vibP2P, 1e-9)
}

func TestBatchExtractMultiNonOverlapping(t *testing.T) {
	e := NewBatchExtractor(100)
	history := makeHistory(250, 230.0, 15.0, 0.90, 0.12)

	vectors := e.ExtractMulti(history)
	// Two full windows plus one 50-point remainder (>= minimum).
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 16)
	}
}

func TestBatchExtractMultiSkipsShortRemainder(t *testing.T) {
	e := NewBatchExtractor(100)
	history := makeHistory(105, 230.0, 15.0, 0.90, 0.12)

	vectors := e.ExtractMulti(history)
	require.Len(t, vectors, 1, "5-point remainder is below the minimum")
}

func TestMeanStdPopulation(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)
}

func TestRMS(t *testing.T) {
	assert.InDelta(t, 1.0, rms([]float64{1, -1, 1, -1}), 1e-9)
	assert.InDelta(t, 5.0, rms([]float64{5, 5, 5}), 1e-9)
	assert.InDelta(t, math.Sqrt(14.0/3.0), rms([]float64{1, 2, 3}), 1e-9)
}
