package ml

import "math"

// StandardScaler standardizes features with the per-column mean and
// population standard deviation of its training data.
type StandardScaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-column statistics from training rows. All rows
// must share the same width.
func FitScaler(data [][]float64) *StandardScaler {
	if len(data) == 0 {
		return &StandardScaler{}
	}
	dims := len(data[0])
	mean := make([]float64, dims)
	std := make([]float64, dims)

	for _, row := range data {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(data))
	}

	for _, row := range data {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(data)))
	}

	return &StandardScaler{mean: mean, std: std}
}

// Mean returns the per-column training means.
func (s *StandardScaler) Mean() []float64 { return s.mean }

// Std returns the per-column training standard deviations.
func (s *StandardScaler) Std() []float64 { return s.std }

// Transform standardizes one row. A zero-variance column is constant in
// the healthy data and contributes zero deviation, never a division by
// zero.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j >= len(s.mean) {
			break
		}
		if s.std[j] == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

// TransformBatch standardizes multiple rows.
func (s *StandardScaler) TransformBatch(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.Transform(r)
	}
	return out
}
