package ml

// Package ml implements the anomaly models: a seeded Isolation Forest,
// feature standardization, and percentile-calibrated detectors.
//
// Two detector variants exist as a tagged ModelKind over one type: the
// legacy 6-feature detector kept for cross-validation, and the batch
// 16-feature detector, which is primary at inference time. A detector
// is bound one-to-one with the baseline it was calibrated against and
// is replaced wholesale on recalibration, never mutated in place.

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/assetpulse/assetpulse-core/internal/features"
)

// ModelKind tags the detector variant.
type ModelKind string

const (
	ModelLegacy ModelKind = "legacy"
	ModelBatch  ModelKind = "batch"
)

// Training and calibration parameters.
const (
	LegacyNumTrees = 100
	BatchNumTrees  = 150
	SubSampleSize  = 64
	MaxTreeDepth   = 12

	// CalibrationPercentile is where the decision threshold sits in the
	// healthy training score distribution.
	CalibrationPercentile = 0.99

	// CalibrationHeadroom stretches the calibrated scale so scores at
	// the threshold land below 1.0, leaving room for graduated severity
	// past the boundary.
	CalibrationHeadroom = 1.5

	// MinTrainingRows is the least number of defined feature rows a
	// detector will calibrate on.
	MinTrainingRows = 10

	// ExplainZScoreMin is the smallest |z| a feature needs to appear in
	// a model-side deviation report.
	ExplainZScoreMin = 1.5

	// ExplainMaxDeviations caps the model-side deviation report.
	ExplainMaxDeviations = 5
)

// ErrNotCalibrated is returned when scoring is requested before Fit.
var ErrNotCalibrated = errors.New("ml: detector not calibrated")

// ErrUndefinedFeature is returned when a scoring vector carries an
// undefined component.
var ErrUndefinedFeature = errors.New("ml: feature vector has undefined components")

// FeatureDeviation is one feature's z-scored departure from healthy.
type FeatureDeviation struct {
	Feature     string
	Observed    float64
	HealthyMean float64
	HealthyStd  float64
	ZScore      float64
}

// Detector maps a feature vector to a bounded anomaly score in [0,1],
// 0 = normal. It owns its scaler and calibration; both are derived from
// healthy training rows only.
type Detector struct {
	kind         ModelKind
	featureNames []string
	forest       *IsolationForest
	scaler       *StandardScaler

	// Calibration anchors: the median and high-percentile raw scores of
	// the healthy training set.
	scoreCenter float64
	scoreSpread float64

	modelID string
	trained bool
}

// NewLegacyDetector creates the 6-feature detector.
func NewLegacyDetector(seed int64) *Detector {
	return &Detector{
		kind:         ModelLegacy,
		featureNames: features.LegacyFeatureNames,
		forest:       NewIsolationForest(LegacyNumTrees, SubSampleSize, MaxTreeDepth, seed),
	}
}

// NewBatchDetector creates the 16-feature detector (primary).
func NewBatchDetector(seed int64) *Detector {
	return &Detector{
		kind:         ModelBatch,
		featureNames: features.BatchFeatureNames,
		forest:       NewIsolationForest(BatchNumTrees, SubSampleSize, MaxTreeDepth, seed),
	}
}

// Kind returns the model variant tag.
func (d *Detector) Kind() ModelKind { return d.kind }

// ModelID identifies this calibration; a new id is assigned on every
// successful Fit.
func (d *Detector) ModelID() string { return d.modelID }

// Trained reports whether the detector has been calibrated.
func (d *Detector) Trained() bool { return d.trained }

// FeatureNames returns the expected column order.
func (d *Detector) FeatureNames() []string { return d.featureNames }

// Fit calibrates the detector on healthy feature rows. Rows with any
// undefined component are dropped before training; at least
// MinTrainingRows defined rows must remain.
func (d *Detector) Fit(rows []features.Vector) error {
	defined := make([][]float64, 0, len(rows))
	for _, r := range rows {
		if len(r) != len(d.featureNames) || !r.Defined() {
			continue
		}
		defined = append(defined, []float64(r))
	}
	if len(defined) < MinTrainingRows {
		return fmt.Errorf("ml: %s detector needs at least %d defined rows, got %d",
			d.kind, MinTrainingRows, len(defined))
	}

	scaler := FitScaler(defined)
	scaled := scaler.TransformBatch(defined)

	if err := d.forest.Fit(scaled); err != nil {
		return fmt.Errorf("ml: fitting %s forest: %w", d.kind, err)
	}

	scores := d.forest.ScoreBatch(scaled)
	center := percentile(scores, 0.50)
	spread := percentile(scores, CalibrationPercentile) - center
	if spread < 1e-6 {
		spread = 1e-6
	}

	d.scaler = scaler
	d.scoreCenter = center
	d.scoreSpread = spread
	d.modelID = uuid.NewString()
	d.trained = true
	return nil
}

// Score maps one feature vector to a calibrated anomaly score in [0,1].
// Scoring before calibration or with undefined components is an error,
// never a silent default.
func (d *Detector) Score(v features.Vector) (float64, error) {
	if !d.trained {
		return 0, ErrNotCalibrated
	}
	if len(v) != len(d.featureNames) {
		return 0, fmt.Errorf("ml: %s detector expects %d features, got %d",
			d.kind, len(d.featureNames), len(v))
	}
	if !v.Defined() {
		return 0, ErrUndefinedFeature
	}

	raw := d.forest.Score(d.scaler.Transform(v))
	return d.calibrate(raw), nil
}

// calibrate rescales a raw forest score against the healthy training
// distribution: 0 at the healthy median, reaching 1 at
// CalibrationHeadroom times the calibration-percentile spread.
func (d *Detector) calibrate(raw float64) float64 {
	s := (raw - d.scoreCenter) / (d.scoreSpread * CalibrationHeadroom)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ExplainDeviations ranks the vector's features by |z| against the
// healthy training statistics. Features under ExplainZScoreMin are
// skipped; at most ExplainMaxDeviations survive. Zero-variance features
// report z = 0 and never rank.
func (d *Detector) ExplainDeviations(v features.Vector) []FeatureDeviation {
	if !d.trained || len(v) != len(d.featureNames) {
		return nil
	}

	mean, std := d.scaler.Mean(), d.scaler.Std()
	devs := make([]FeatureDeviation, 0, len(v))
	for j, observed := range v {
		if features.IsUndefined(observed) {
			continue
		}
		z := 0.0
		if std[j] > 0 {
			z = (observed - mean[j]) / math.Max(std[j], 1e-9)
		}
		if math.Abs(z) < ExplainZScoreMin {
			continue
		}
		devs = append(devs, FeatureDeviation{
			Feature:     d.featureNames[j],
			Observed:    observed,
			HealthyMean: mean[j],
			HealthyStd:  std[j],
			ZScore:      z,
		})
	}

	sort.Slice(devs, func(i, j int) bool {
		return math.Abs(devs[i].ZScore) > math.Abs(devs[j].ZScore)
	})
	if len(devs) > ExplainMaxDeviations {
		devs = devs[:ExplainMaxDeviations]
	}
	return devs
}

// percentile returns the pth quantile (0..1) by nearest-rank on a
// sorted copy.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
