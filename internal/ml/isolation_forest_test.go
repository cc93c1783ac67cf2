package ml

import (
	"math"
	"testing"
)

func TestIsolationForest_Basic(t *testing.T) {
	// Training data with normal points
	normalData := [][]float64{
		{1.0, 2.0},
		{1.1, 2.1},
		{0.9, 1.9},
		{1.2, 2.2},
		{0.8, 1.8},
		{1.0, 2.0},
		{1.1, 2.0},
		{0.9, 2.1},
	}

	forest := NewIsolationForest(10, 5, 10, 42)
	if err := forest.Fit(normalData); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	normalScore := forest.Score([]float64{1.0, 2.0})
	anomalousScore := forest.Score([]float64{10.0, 20.0})

	if anomalousScore <= normalScore {
		t.Errorf("Anomaly score (%f) should be higher than normal score (%f)",
			anomalousScore, normalScore)
	}
}

func TestIsolationForest_SingleDimension(t *testing.T) {
	data := [][]float64{
		{1.0},
		{2.0},
		{1.5},
		{2.5},
		{1.8},
	}

	forest := NewIsolationForest(10, 3, 5, 42)
	if err := forest.Fit(data); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	normalScore := forest.Score([]float64{2.0})
	outlierScore := forest.Score([]float64{100.0})

	if outlierScore <= normalScore {
		t.Errorf("Outlier score (%f) should be higher than normal score (%f)",
			outlierScore, normalScore)
	}
}

func TestIsolationForest_ScoreBatch(t *testing.T) {
	data := [][]float64{
		{1.0, 1.0},
		{1.1, 1.1},
		{0.9, 0.9},
		{1.0, 1.0},
	}

	forest := NewIsolationForest(10, 3, 5, 42)
	forest.Fit(data)

	testPoints := [][]float64{
		{1.0, 1.0},   // Normal
		{10.0, 10.0}, // Anomaly
		{1.05, 1.05}, // Normal
	}

	scores := forest.ScoreBatch(testPoints)

	if len(scores) != len(testPoints) {
		t.Errorf("Expected %d scores, got %d", len(testPoints), len(scores))
	}

	if scores[1] <= scores[0] || scores[1] <= scores[2] {
		t.Errorf("Anomaly should have highest score: %v", scores)
	}
}

func TestIsolationForest_Deterministic(t *testing.T) {
	data := [][]float64{
		{1.0, 1.0},
		{1.1, 1.2},
		{0.9, 0.8},
		{1.2, 1.1},
		{0.8, 0.9},
	}
	point := []float64{3.0, 3.0}

	a := NewIsolationForest(20, 4, 8, 7)
	a.Fit(data)
	b := NewIsolationForest(20, 4, 8, 7)
	b.Fit(data)

	if a.Score(point) != b.Score(point) {
		t.Errorf("Same seed and data should give identical scores: %f vs %f",
			a.Score(point), b.Score(point))
	}

	c := NewIsolationForest(20, 4, 8, 8)
	c.Fit(data)
	// Repeated scoring of the same trained forest must be stable too.
	if c.Score(point) != c.Score(point) {
		t.Error("Scoring must not mutate the forest")
	}
}

func TestIsolationForest_EmptyData(t *testing.T) {
	forest := NewIsolationForest(10, 5, 10, 42)

	if err := forest.Fit([][]float64{}); err != nil {
		t.Errorf("Fit with empty data should not error: %v", err)
	}
	if forest.Trained() {
		t.Error("Forest should not be trained after empty fit")
	}

	score := forest.Score([]float64{1.0})
	if score != 0.5 {
		t.Errorf("Untrained forest should score at the indifference point, got %f", score)
	}
}

func TestIsolationForest_IdenticalPoints(t *testing.T) {
	data := [][]float64{
		{1.0, 1.0},
		{1.0, 1.0},
		{1.0, 1.0},
	}

	forest := NewIsolationForest(10, 3, 5, 42)
	forest.Fit(data)

	sameScore := forest.Score([]float64{1.0, 1.0})
	differentScore := forest.Score([]float64{5.0, 5.0})

	if differentScore < sameScore {
		t.Errorf("Different point should not score lower than the training constant")
	}
}

func TestIsolationForest_AveragePathLength(t *testing.T) {
	forest := NewIsolationForest(10, 5, 10, 42)

	tests := []struct {
		n        int
		expected float64
	}{
		{1, 0},
		{2, 1},
		{10, 3.02}, // Approximate
	}

	for _, tt := range tests {
		result := forest.averagePathLength(tt.n)
		if math.Abs(result-tt.expected) > 0.1 && tt.n > 2 {
			t.Logf("averagePathLength(%d) = %f (expected ~%f)", tt.n, result, tt.expected)
		}
	}
}

func BenchmarkIsolationForest_Fit(b *testing.B) {
	data := make([][]float64, 1000)
	for i := range data {
		data[i] = []float64{
			float64(i % 100),
			float64((i * 2) % 100),
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		forest := NewIsolationForest(10, 256, 10, 42)
		forest.Fit(data)
	}
}

func BenchmarkIsolationForest_Score(b *testing.B) {
	data := make([][]float64, 1000)
	for i := range data {
		data[i] = []float64{
			float64(i % 100),
			float64((i * 2) % 100),
		}
	}

	forest := NewIsolationForest(10, 256, 10, 42)
	forest.Fit(data)

	testPoint := []float64{50.0, 50.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		forest.Score(testPoint)
	}
}
