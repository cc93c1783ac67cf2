package features

import (
	"math"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Batch window parameters. A window needs at least BatchWindowMin points
// to produce defined statistics.
const (
	BatchWindowSize = 100
	BatchWindowMin  = 10
)

// BatchSignalNames is the fixed signal order of the batch vector.
var BatchSignalNames = []string{
	"voltage_v",
	"current_a",
	"power_factor",
	"vibration_g",
}

// BatchStatNames is the fixed per-signal statistic order.
var BatchStatNames = []string{
	"mean",
	"std",
	"peak_to_peak",
	"rms",
}

// BatchFeatureNames is the full 16-column order: for each signal, its
// four statistics in BatchStatNames order.
var BatchFeatureNames = batchFeatureNames()

func batchFeatureNames() []string {
	names := make([]string, 0, len(BatchSignalNames)*len(BatchStatNames))
	for _, sig := range BatchSignalNames {
		for _, stat := range BatchStatNames {
			names = append(names, sig+"_"+stat)
		}
	}
	return names
}

// BatchExtractor computes sixteen windowed statistics per batch of raw
// points. Std and peak-to-peak make "jitter" faults (normal mean,
// abnormal variance) explicit, which mean-only features cannot see.
type BatchExtractor struct {
	windowSize int
	minPoints  int
}

// NewBatchExtractor creates an extractor with the given window size.
// Size values below BatchWindowMin fall back to the defaults.
func NewBatchExtractor(windowSize int) *BatchExtractor {
	if windowSize < BatchWindowMin {
		windowSize = BatchWindowSize
	}
	return &BatchExtractor{windowSize: windowSize, minPoints: BatchWindowMin}
}

// WindowSize returns the configured window length.
func (e *BatchExtractor) WindowSize() int { return e.windowSize }

// Extract computes the 16-dimensional batch vector from one window.
// Windows shorter than the minimum yield nil (undefined), never zeros.
func (e *BatchExtractor) Extract(window []models.SensorReading) Vector {
	if len(window) < e.minPoints {
		return nil
	}

	v := make(Vector, 0, len(BatchFeatureNames))
	for _, sig := range BatchSignalNames {
		values := signalColumn(window, sig)
		mean, std := meanStd(values)
		v = append(v, mean, std, peakToPeak(values), rms(values))
	}
	return v
}

// ExtractMulti splits history into consecutive non-overlapping windows
// and extracts a vector per complete window. Used for training.
func (e *BatchExtractor) ExtractMulti(history []models.SensorReading) []Vector {
	var out []Vector
	for start := 0; start+e.minPoints <= len(history); start += e.windowSize {
		end := start + e.windowSize
		if end > len(history) {
			end = len(history)
		}
		if v := e.Extract(history[start:end]); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func signalColumn(window []models.SensorReading, signal string) []float64 {
	values := make([]float64, len(window))
	for i, r := range window {
		switch signal {
		case "voltage_v":
			values[i] = r.Signals.VoltageV
		case "current_a":
			values[i] = r.Signals.CurrentA
		case "power_factor":
			values[i] = r.Signals.PowerFactor
		case "vibration_g":
			values[i] = r.Signals.VibrationG
		}
	}
	return values
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range values {
		mean += x
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, x := range values {
		d := x - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func peakToPeak(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min, max := values[0], values[0]
	for _, x := range values[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return max - min
}

func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, x := range values {
		sumSq += x * x
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
