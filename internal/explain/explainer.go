package explain

// Package explain generates operator-facing explanations for health
// assessments.
//
// Responsibilities:
//   - Rank features by z-scored deviation from the healthy baseline
//   - Apply the epsilon rule: statistical significance without practical
//     significance (deviation under 1% of the healthy mean) is not
//     explainable to an operator and is discarded
//   - Emit at most MaxExplanations ranked explanations with templated
//     reason strings and z-derived confidence
//   - Guarantee every elevated-risk report carries at least one
//     explanation: when nothing survives the epsilon rule, fall back to
//     the single largest raw deviation rather than an empty alert
//
// An anomaly that cannot be explained must not be surfaced as
// high-confidence; the fallback keeps the report honest about what it
// knows.

import (
	"fmt"
	"math"
	"sort"

	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

const (
	// EpsilonRelative is the minimum absolute deviation, as a fraction
	// of the healthy mean, for a feature to be practically significant.
	EpsilonRelative = 0.01

	// MaxExplanations caps the ranked list.
	MaxExplanations = 3

	// ZScoreThreshold is the minimum |z| for the HIGH/LOW templates.
	ZScoreThreshold = 2.0

	// ConfidenceCap bounds explanation confidence.
	ConfidenceCap = 0.99
)

// Engine turns feature vectors and baselines into ranked explanations.
type Engine struct{}

// NewEngine creates an explanation engine.
func NewEngine() *Engine { return &Engine{} }

// contribution is one candidate feature with its deviation statistics.
type contribution struct {
	feature  string
	observed float64
	mean     float64
	std      float64
	min      float64
	max      float64
	z        float64
	absDev   float64
}

// Generate produces ranked explanations for an assessed reading.
// LOW risk yields the single nominal explanation; elevated risk yields
// the top surviving contributions, or the largest raw deviation when
// the epsilon rule filters everything out.
func (e *Engine) Generate(risk models.RiskLevel, names []string, vector features.Vector, profile *baseline.Profile) []models.Explanation {
	if risk == models.RiskLow {
		return []models.Explanation{nominal()}
	}
	if profile == nil || len(names) == 0 || len(vector) == 0 {
		return []models.Explanation{degraded()}
	}

	candidates := e.contributions(names, vector, profile)

	survivors := make([]contribution, 0, len(candidates))
	for _, c := range candidates {
		if !e.practical(c) {
			continue
		}
		if c.observed > c.max || c.observed < c.min || math.Abs(c.z) > ZScoreThreshold {
			survivors = append(survivors, c)
		}
	}

	if len(survivors) == 0 {
		// Epsilon rule removed everything; fall back to the single
		// largest raw deviation so the alert is never unexplained.
		if c, ok := largestRawDeviation(candidates); ok {
			return []models.Explanation{describe(c)}
		}
		return []models.Explanation{degraded()}
	}

	sort.Slice(survivors, func(i, j int) bool {
		return math.Abs(survivors[i].z) > math.Abs(survivors[j].z)
	})
	if len(survivors) > MaxExplanations {
		survivors = survivors[:MaxExplanations]
	}

	out := make([]models.Explanation, len(survivors))
	for i, c := range survivors {
		out[i] = describe(c)
	}
	return out
}

// contributions computes per-feature deviation stats, skipping
// undefined values and features absent from the profile.
func (e *Engine) contributions(names []string, vector features.Vector, profile *baseline.Profile) []contribution {
	out := make([]contribution, 0, len(names))
	for i, name := range names {
		if i >= len(vector) || features.IsUndefined(vector[i]) {
			continue
		}
		sp, ok := profile.FeatureProfiles[name]
		if !ok {
			continue
		}
		observed := vector[i]
		z := 0.0
		if sp.Std > 0 {
			z = (observed - sp.Mean) / sp.Std
		}
		out = append(out, contribution{
			feature:  name,
			observed: observed,
			mean:     sp.Mean,
			std:      sp.Std,
			min:      sp.Min,
			max:      sp.Max,
			z:        z,
			absDev:   math.Abs(observed - sp.Mean),
		})
	}
	return out
}

// practical applies the epsilon rule.
func (e *Engine) practical(c contribution) bool {
	epsilon := EpsilonRelative * math.Abs(c.mean)
	if epsilon == 0 {
		// Zero-mean feature: any deviation is practically significant.
		return c.absDev > 0
	}
	return c.absDev >= epsilon
}

func largestRawDeviation(candidates []contribution) (contribution, bool) {
	if len(candidates) == 0 {
		return contribution{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.absDev > best.absDev {
			best = c
		}
	}
	return best, true
}

// describe selects the reason template for a contribution. Band breaks
// outrank z-score templates.
func describe(c contribution) models.Explanation {
	var reason string
	switch {
	case c.observed > c.max:
		reason = fmt.Sprintf("%s is %.4g, above the highest healthy value %.4g", c.feature, c.observed, c.max)
	case c.observed < c.min:
		reason = fmt.Sprintf("%s is %.4g, below the lowest healthy value %.4g", c.feature, c.observed, c.min)
	case c.z > ZScoreThreshold:
		reason = fmt.Sprintf("%s is %.1f standard deviations above normal", c.feature, c.z)
	case c.z < -ZScoreThreshold:
		reason = fmt.Sprintf("%s is %.1f standard deviations below normal", c.feature, math.Abs(c.z))
	default:
		reason = fmt.Sprintf("%s deviates from its healthy mean by %.4g", c.feature, c.absDev)
	}

	return models.Explanation{
		Feature:     c.feature,
		Observed:    c.observed,
		Expected:    c.mean,
		ZScore:      c.z,
		Confidence:  confidence(c.z),
		Description: reason,
	}
}

// confidence grows with |z| and saturates at the cap.
func confidence(z float64) float64 {
	return math.Min(ConfidenceCap, 0.5+0.1*math.Abs(z))
}

func nominal() models.Explanation {
	return models.Explanation{
		Feature:     "all",
		Confidence:  ConfidenceCap,
		Description: "All monitored systems are operating within their healthy baseline",
	}
}

// degraded is the honest fallback when no contribution can be computed.
func degraded() models.Explanation {
	return models.Explanation{
		Feature:     "unknown",
		Confidence:  0.5,
		Description: "Contribution unavailable: deviation detected but no feature-level attribution could be computed",
	}
}
