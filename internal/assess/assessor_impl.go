package assess

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/assetpulse/assetpulse-core/internal/explain"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// assessorImpl is the concrete HealthAssessor.
type assessorImpl struct {
	opts      Options
	explainer *explain.Engine
}

// NewHealthAssessor creates an assessor with the given blend options.
func NewHealthAssessor(opts Options, explainer *explain.Engine) HealthAssessor {
	if explainer == nil {
		explainer = explain.NewEngine()
	}
	if opts.RangeWeight <= 0 || opts.RangeWeight > 1 {
		opts = DefaultOptions()
	}
	return &assessorImpl{opts: opts, explainer: explainer}
}

// Assess produces a health report for one reading.
func (a *assessorImpl) Assess(in Input) (*models.HealthReport, error) {
	if in.Profile == nil {
		return nil, fmt.Errorf("assess: no baseline profile for asset %q", in.Reading.AssetID)
	}

	rangeScore := RangeScore(in.Reading, in.Profile)
	anomaly := Blend(rangeScore, in.ModelScore, a.opts)

	health := HealthScore(anomaly)
	risk := ClassifyRisk(health)

	explanations := a.explainer.Generate(risk, in.FeatureNames, in.Features, in.Profile)

	report := &models.HealthReport{
		ReportID:              uuid.NewString(),
		Timestamp:             time.Now().UTC(),
		AssetID:               in.Reading.AssetID,
		HealthScore:           health,
		AnomalyScore:          anomaly,
		RiskLevel:             risk,
		MaintenanceWindowDays: MaintenanceWindowDays(risk),
		TrendSlope:            TrendSlope(in.RecentHealth),
		Explanations:          explanations,
		Metadata: models.ReportMetadata{
			ModelVersion:      fmt.Sprintf("detector:%s|baseline:%s", in.DetectorID, in.Profile.BaselineID),
			AssessmentVersion: AssessmentVersion,
		},
	}
	return report, nil
}
