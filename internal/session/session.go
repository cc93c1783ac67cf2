package session

// Package session composes the per-asset analysis pipeline: history
// buffers, feature extraction, the baseline profile, both anomaly
// detectors, health assessment, and the condition state machine.
//
// Responsibilities:
//   - Own all mutable per-asset state behind one lock
//   - Ingest: reading in, health report and optional condition event out
//   - Calibrate: build a baseline and train detectors from a snapshot of
//     the accumulated history, then swap the trained set in wholesale
//   - Keep ingest available while a recalibration trains on its snapshot

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/assetpulse/assetpulse-core/internal/assess"
	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/condition"
	"github.com/assetpulse/assetpulse-core/internal/explain"
	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/ml"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

const (
	// MaxHistory bounds the in-memory reading buffer per asset.
	MaxHistory = 2000

	// RecentHealthLen is how many health scores feed the trend slope.
	RecentHealthLen = 20

	// anomalousHealthMax: ticks at or below this health score count as
	// anomalous for the condition machine (HIGH and CRITICAL risk).
	anomalousHealthMax = 49
)

// ErrNotCalibrated is returned by Ingest before a baseline exists.
var ErrNotCalibrated = errors.New("session: asset has no baseline profile")

// Config tunes every session created by a registry.
type Config struct {
	// Seed drives detector training; each asset derives its own seed
	// from it so two assets never share a random stream.
	Seed int64

	// BatchWindowSize overrides the batch extractor window. Zero keeps
	// the extractor default.
	BatchWindowSize int

	DebounceTicks    int
	EnableRecovering bool

	Assess assess.Options

	// MinCoverage is the healthy-row ratio required to calibrate.
	// Zero keeps the baseline default.
	MinCoverage float64
}

// DefaultConfig returns the standard session tuning.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		DebounceTicks: condition.DefaultDebounceTicks,
		Assess:        assess.DefaultOptions(),
	}
}

// Result is one ingest outcome. Report is nil before calibration; Event
// is nil unless this tick confirmed a condition transition.
type Result struct {
	Report *models.HealthReport
	Event  *models.ConditionEvent
	State  models.ConditionState
}

// calibration is the swap unit: everything Recalibrate replaces at once
// so a report never mixes an old profile with a new detector.
type calibration struct {
	profile   *baseline.Profile
	legacyDet *ml.Detector
	batchDet  *ml.Detector
}

// AssetSession holds the full pipeline for one asset.
type AssetSession struct {
	assetID string
	cfg     Config

	legacyExt *features.LegacyExtractor
	batchExt  *features.BatchExtractor
	assessor  assess.HealthAssessor
	machine   *condition.Machine

	mu           sync.RWMutex
	history      []models.SensorReading
	calib        *calibration
	recentHealth []int
	lastReport   *models.HealthReport
}

// NewAssetSession creates an uncalibrated session.
func NewAssetSession(assetID string, cfg Config) *AssetSession {
	if cfg.DebounceTicks < 1 {
		cfg.DebounceTicks = condition.DefaultDebounceTicks
	}
	return &AssetSession{
		assetID:   assetID,
		cfg:       cfg,
		legacyExt: features.NewLegacyExtractor(),
		batchExt:  features.NewBatchExtractor(cfg.BatchWindowSize),
		assessor:  assess.NewHealthAssessor(cfg.Assess, explain.NewEngine()),
		machine: condition.NewMachine(assetID, condition.Config{
			DebounceTicks:    cfg.DebounceTicks,
			EnableRecovering: cfg.EnableRecovering,
		}),
	}
}

// AssetID returns the asset this session tracks.
func (s *AssetSession) AssetID() string { return s.assetID }

// Calibrated reports whether a baseline profile is in place.
func (s *AssetSession) Calibrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calib != nil
}

// BaselineID returns the active profile's id, or "" before calibration.
func (s *AssetSession) BaselineID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.calib == nil {
		return ""
	}
	return s.calib.profile.BaselineID
}

// Profile returns the active baseline profile, or nil.
func (s *AssetSession) Profile() *baseline.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.calib == nil {
		return nil
	}
	return s.calib.profile
}

// LastReport returns the most recent health report, or nil.
func (s *AssetSession) LastReport() *models.HealthReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// State returns the debounced condition.
func (s *AssetSession) State() models.ConditionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machine.State()
}

// ReadingCount returns how many readings the buffer holds.
func (s *AssetSession) ReadingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Ingest appends one reading and, when calibrated, runs the full
// pipeline on it. Before calibration it only accumulates history and
// returns ErrNotCalibrated alongside an empty Result.
func (s *AssetSession) Ingest(reading models.SensorReading) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, reading)
	if len(s.history) > MaxHistory {
		s.history = s.history[len(s.history)-MaxHistory:]
	}

	if s.calib == nil {
		return Result{State: s.machine.State()}, ErrNotCalibrated
	}

	legacyVec := s.legacyExt.Extract(s.history)
	batchVec := s.batchExt.Extract(tail(s.history, s.batchExt.WindowSize()))

	modelScore, legacyScore, legacyScored, detectorID := s.score(legacyVec, batchVec)

	report, err := s.assessor.Assess(assess.Input{
		Reading:      reading,
		ModelScore:   modelScore,
		LegacyScore:  legacyScore,
		LegacyScored: legacyScored,
		FeatureNames: features.LegacyFeatureNames,
		Features:     legacyVec,
		Profile:      s.calib.profile,
		RecentHealth: append([]int(nil), s.recentHealth...),
		DetectorID:   detectorID,
	})
	if err != nil {
		return Result{State: s.machine.State()}, fmt.Errorf("session %s: %w", s.assetID, err)
	}

	s.recentHealth = append(s.recentHealth, report.HealthScore)
	if len(s.recentHealth) > RecentHealthLen {
		s.recentHealth = s.recentHealth[len(s.recentHealth)-RecentHealthLen:]
	}
	s.lastReport = report

	event := s.machine.Advance(condition.Tick{
		Timestamp: reading.Timestamp,
		Anomalous: report.HealthScore <= anomalousHealthMax,
		Risk:      report.RiskLevel,
		Message:   condition.Narrate(reading, batchVec),
	})

	return Result{Report: report, Event: event, State: s.machine.State()}, nil
}

// score runs whichever detectors are trained and applicable. The batch
// detector is primary; the legacy score fills in while the batch window
// warms up and is otherwise informational.
func (s *AssetSession) score(legacyVec, batchVec features.Vector) (model, legacy float64, legacyScored bool, detectorID string) {
	c := s.calib

	if c.legacyDet.Trained() && legacyVec.Defined() {
		if v, err := c.legacyDet.Score(legacyVec); err == nil {
			legacy, legacyScored = v, true
		}
	}

	if c.batchDet.Trained() && batchVec.Defined() {
		if v, err := c.batchDet.Score(batchVec); err == nil {
			return v, legacy, legacyScored, c.batchDet.ModelID()
		}
	}
	if legacyScored {
		return legacy, legacy, true, c.legacyDet.ModelID()
	}
	return 0, 0, false, "uncovered"
}

// Calibrate builds a baseline profile and trains both detectors from a
// snapshot of the current history, then swaps the whole set in. The
// session stays available for ingest while training runs; readings that
// arrive mid-training are excluded from the new baseline.
func (s *AssetSession) Calibrate() (*baseline.Profile, error) {
	s.mu.RLock()
	snapshot := append([]models.SensorReading(nil), s.history...)
	s.mu.RUnlock()

	calib, err := s.train(snapshot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calib = calib
	s.recentHealth = nil
	s.mu.Unlock()
	return calib.profile, nil
}

// train is the heavy part of Calibrate. It holds no session lock.
func (s *AssetSession) train(snapshot []models.SensorReading) (*calibration, error) {
	legacyRows := make([]features.Vector, len(snapshot))
	for i := range snapshot {
		legacyRows[i] = s.legacyExt.Extract(snapshot[:i+1])
	}

	builder := baseline.NewBuilder(s.cfg.MinCoverage)
	profile, err := builder.Build(s.assetID, snapshot, features.LegacyFeatureNames, legacyRows)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.assetID, err)
	}

	healthy := make([]models.SensorReading, 0, len(snapshot))
	healthyLegacy := make([]features.Vector, 0, len(snapshot))
	for i, r := range snapshot {
		if r.FaultInjected {
			continue
		}
		healthy = append(healthy, r)
		healthyLegacy = append(healthyLegacy, legacyRows[i])
	}

	legacyDet := ml.NewLegacyDetector(s.seed(1))
	if err := legacyDet.Fit(healthyLegacy); err != nil {
		return nil, fmt.Errorf("session %s: legacy detector: %w", s.assetID, err)
	}

	// The batch detector trains only when the healthy history yields
	// enough non-overlapping windows; the legacy detector covers the
	// gap until it does.
	batchDet := ml.NewBatchDetector(s.seed(2))
	batchRows := s.batchExt.ExtractMulti(healthy)
	if len(batchRows) >= ml.MinTrainingRows {
		if err := batchDet.Fit(batchRows); err != nil {
			return nil, fmt.Errorf("session %s: batch detector: %w", s.assetID, err)
		}
	}

	return &calibration{profile: profile, legacyDet: legacyDet, batchDet: batchDet}, nil
}

// seed derives a per-asset, per-detector seed so sessions sharing a
// registry never share a random stream.
func (s *AssetSession) seed(salt int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(s.assetID))
	return s.cfg.Seed + int64(h.Sum64()&0x7fffffff) + salt<<32
}

func tail(readings []models.SensorReading, n int) []models.SensorReading {
	if len(readings) <= n {
		return readings
	}
	return readings[len(readings)-n:]
}
