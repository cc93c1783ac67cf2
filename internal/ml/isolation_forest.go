package ml

import (
	"math"
	"math/rand"
)

// IsolationTree represents a single tree in the Isolation Forest
type IsolationTree struct {
	splitFeature int
	splitValue   float64
	left         *IsolationTree
	right        *IsolationTree
	size         int
	isLeaf       bool
}

// IsolationForest implements the Isolation Forest algorithm for anomaly
// detection. The forest is seeded explicitly: the same seed and training
// data always produce the same trees and therefore the same scores.
type IsolationForest struct {
	trees         []*IsolationTree
	numTrees      int
	subSampleSize int
	maxDepth      int
	rng           *rand.Rand
}

// NewIsolationForest creates a new Isolation Forest with specified parameters
func NewIsolationForest(numTrees, subSampleSize, maxDepth int, seed int64) *IsolationForest {
	return &IsolationForest{
		trees:         make([]*IsolationTree, 0, numTrees),
		numTrees:      numTrees,
		subSampleSize: subSampleSize,
		maxDepth:      maxDepth,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Trained reports whether Fit has built any trees.
func (f *IsolationForest) Trained() bool { return len(f.trees) > 0 }

// Fit trains the Isolation Forest on the given feature rows.
func (f *IsolationForest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return nil
	}

	f.trees = f.trees[:0]
	for i := 0; i < f.numTrees; i++ {
		sample := f.sampleData(data)
		tree := f.buildTree(sample, 0)
		f.trees = append(f.trees, tree)
	}

	return nil
}

// Score calculates the raw anomaly score for a single point:
// score = 2^(-avgPathLength / c(n)), where c(n) is the average path
// length of unsuccessful search in a BST. Higher = more anomalous.
// An untrained forest scores everything at the 0.5 indifference point.
func (f *IsolationForest) Score(point []float64) float64 {
	if len(f.trees) == 0 {
		return 0.5
	}

	totalPathLength := 0.0
	for _, tree := range f.trees {
		totalPathLength += f.pathLength(tree, point, 0)
	}
	avgPathLength := totalPathLength / float64(len(f.trees))

	c := f.averagePathLength(f.subSampleSize)
	return math.Pow(2, -avgPathLength/c)
}

// ScoreBatch scores multiple points.
func (f *IsolationForest) ScoreBatch(points [][]float64) []float64 {
	scores := make([]float64, len(points))
	for i, p := range points {
		scores[i] = f.Score(p)
	}
	return scores
}

// sampleData randomly samples a subset of data
func (f *IsolationForest) sampleData(data [][]float64) [][]float64 {
	sampleSize := f.subSampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}

	// Fisher-Yates shuffle and take first sampleSize elements
	shuffled := make([][]float64, len(data))
	copy(shuffled, data)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:sampleSize]
}

// buildTree recursively builds an isolation tree
func (f *IsolationForest) buildTree(data [][]float64, depth int) *IsolationTree {
	if len(data) <= 1 || depth >= f.maxDepth {
		return &IsolationTree{size: len(data), isLeaf: true}
	}

	if f.allIdentical(data) {
		return &IsolationTree{size: len(data), isLeaf: true}
	}

	// Randomly select a feature and split value
	numFeatures := len(data[0])
	splitFeature := f.rng.Intn(numFeatures)

	minVal, maxVal := f.getFeatureRange(data, splitFeature)
	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	left, right := f.splitData(data, splitFeature, splitValue)

	// If split didn't partition the data, make it a leaf
	if len(left) == 0 || len(right) == 0 {
		return &IsolationTree{size: len(data), isLeaf: true}
	}

	return &IsolationTree{
		splitFeature: splitFeature,
		splitValue:   splitValue,
		left:         f.buildTree(left, depth+1),
		right:        f.buildTree(right, depth+1),
		size:         len(data),
		isLeaf:       false,
	}
}

// pathLength calculates the path length for a data point in a tree
func (f *IsolationForest) pathLength(tree *IsolationTree, point []float64, currentDepth int) float64 {
	if tree.isLeaf {
		// Add average path length for remaining points in leaf
		return float64(currentDepth) + f.averagePathLength(tree.size)
	}

	if point[tree.splitFeature] < tree.splitValue {
		return f.pathLength(tree.left, point, currentDepth+1)
	}
	return f.pathLength(tree.right, point, currentDepth+1)
}

// averagePathLength calculates the average path length of unsuccessful
// search in a BST: c(n) = 2H(n-1) - (2(n-1)/n).
func (f *IsolationForest) averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}

	harmonicNumber := f.harmonicNumber(n - 1)
	return 2*harmonicNumber - (2 * float64(n-1) / float64(n))
}

// harmonicNumber calculates the nth harmonic number
func (f *IsolationForest) harmonicNumber(n int) float64 {
	// H(n) ≈ ln(n) + 0.5772156649 (Euler-Mascheroni constant)
	return math.Log(float64(n)) + 0.5772156649
}

// allIdentical checks if all data points are identical
func (f *IsolationForest) allIdentical(data [][]float64) bool {
	if len(data) <= 1 {
		return true
	}

	first := data[0]
	for i := 1; i < len(data); i++ {
		for j := range first {
			if math.Abs(data[i][j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

// getFeatureRange gets min and max values for a feature
func (f *IsolationForest) getFeatureRange(data [][]float64, feature int) (float64, float64) {
	minVal := data[0][feature]
	maxVal := data[0][feature]

	for _, point := range data {
		val := point[feature]
		if val < minVal {
			minVal = val
		}
		if val > maxVal {
			maxVal = val
		}
	}

	return minVal, maxVal
}

// splitData splits data based on feature and split value
func (f *IsolationForest) splitData(data [][]float64, feature int, splitValue float64) ([][]float64, [][]float64) {
	left := make([][]float64, 0)
	right := make([][]float64, 0)

	for _, point := range data {
		if point[feature] < splitValue {
			left = append(left, point)
		} else {
			right = append(right, point)
		}
	}

	return left, right
}
