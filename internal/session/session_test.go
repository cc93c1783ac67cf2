package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetpulse/assetpulse-core/internal/baseline"
	"github.com/assetpulse/assetpulse-core/internal/models"
	"github.com/assetpulse/assetpulse-core/internal/simulator"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.BatchWindowSize = 20
	return cfg
}

func newGenerator(assetID string) *simulator.Generator {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return simulator.New(assetID, 42, simulator.WithStart(start, time.Second))
}

// warmUp ingests n healthy readings and calibrates the session.
func warmUp(t *testing.T, s *AssetSession, g *simulator.Generator, n int) {
	t.Helper()
	for _, r := range g.Generate(n) {
		_, err := s.Ingest(r)
		require.ErrorIs(t, err, ErrNotCalibrated)
	}
	_, err := s.Calibrate()
	require.NoError(t, err)
}

func TestIngestBeforeCalibrationAccumulates(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")

	res, err := s.Ingest(g.Next())
	assert.ErrorIs(t, err, ErrNotCalibrated)
	assert.Nil(t, res.Report)
	assert.Nil(t, res.Event)
	assert.Equal(t, 1, s.ReadingCount())
	assert.False(t, s.Calibrated())
}

func TestCalibrateRequiresEnoughHealthySamples(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	for _, r := range g.Generate(5) {
		s.Ingest(r)
	}
	_, err := s.Calibrate()
	assert.Error(t, err)
	assert.False(t, s.Calibrated())
}

func TestHealthyStreamStaysHealthy(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	warmUp(t, s, g, 300)

	require.True(t, s.Calibrated())
	assert.NotEmpty(t, s.BaselineID())

	var events int
	for _, r := range g.Generate(100) {
		res, err := s.Ingest(r)
		require.NoError(t, err)
		require.NotNil(t, res.Report)
		assert.GreaterOrEqual(t, res.Report.HealthScore, 50,
			"healthy stream must not look HIGH or CRITICAL")
		if res.Event != nil {
			events++
		}
	}
	assert.Zero(t, events, "no transitions on a healthy stream")
	assert.Equal(t, models.ConditionHealthy, s.State())

	last := s.LastReport()
	require.NotNil(t, last)
	assert.Equal(t, "motor-1", last.AssetID)
}

func TestSevereFaultRaisesSingleAnomalyEvent(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	warmUp(t, s, g, 300)

	g.SetMode(simulator.ModeInnerRaceFault, 1.0)

	var detected []*models.ConditionEvent
	for _, r := range g.Generate(20) {
		res, err := s.Ingest(r)
		require.NoError(t, err)
		if res.Event != nil {
			detected = append(detected, res.Event)
		}
	}

	require.Len(t, detected, 1, "sustained fault confirms exactly one transition")
	ev := detected[0]
	assert.Equal(t, models.EventAnomalyDetected, ev.Type)
	assert.Equal(t, "motor-1", ev.AssetID)
	assert.NotEmpty(t, ev.Message)
	assert.Equal(t, models.ConditionAnomalyDetected, s.State())

	last := s.LastReport()
	require.NotNil(t, last)
	assert.LessOrEqual(t, last.HealthScore, 49)
	require.NotEmpty(t, last.Explanations)
}

func TestRecoveryClearsAnomaly(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	warmUp(t, s, g, 300)

	g.SetMode(simulator.ModeInnerRaceFault, 1.0)
	for _, r := range g.Generate(20) {
		s.Ingest(r)
	}
	require.Equal(t, models.ConditionAnomalyDetected, s.State())

	g.SetMode(simulator.ModeHealthy, 0)
	var cleared *models.ConditionEvent
	for _, r := range g.Generate(30) {
		res, err := s.Ingest(r)
		require.NoError(t, err)
		if res.Event != nil {
			cleared = res.Event
		}
	}
	require.NotNil(t, cleared)
	assert.Equal(t, models.EventAnomalyCleared, cleared.Type)
	assert.Equal(t, models.SeverityInfo, cleared.Severity)
	assert.Equal(t, models.ConditionHealthy, s.State())
}

func TestRecalibrationSwapsBaselineWholesale(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	warmUp(t, s, g, 200)

	first := s.BaselineID()
	firstProfile := s.Profile()
	require.NotNil(t, firstProfile)
	assert.Equal(t, 200, firstProfile.Window.SampleCount)

	for _, r := range g.Generate(100) {
		_, err := s.Ingest(r)
		require.NoError(t, err)
	}

	_, err := s.Calibrate()
	require.NoError(t, err)

	second := s.BaselineID()
	assert.NotEqual(t, first, second, "recalibration must mint a new baseline")
	assert.Equal(t, 300, s.Profile().Window.SampleCount)

	// Reports after the swap carry the new baseline id.
	res, err := s.Ingest(g.Next())
	require.NoError(t, err)
	assert.Contains(t, res.Report.Metadata.ModelVersion, second)
}

func TestCalibrateExcludesInjectedFaults(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	for _, r := range g.Generate(280) {
		s.Ingest(r)
	}
	g.SetMode(simulator.ModeNormalWear, 0.5)
	for _, r := range g.Generate(40) {
		s.Ingest(r)
	}

	_, err := s.Calibrate()
	require.NoError(t, err)

	p := s.Profile()
	assert.Equal(t, 280, p.Window.SampleCount,
		"tagged fault readings must not enter the baseline")
	assert.InDelta(t, 0.15, p.SignalProfiles["vibration_g"].Mean, 0.05)
}

func TestCalibrateFailsOnContaminatedHistory(t *testing.T) {
	s := NewAssetSession("motor-1", testConfig())
	g := newGenerator("motor-1")
	g.SetMode(simulator.ModeInnerRaceFault, 1.0)
	for _, r := range g.Generate(100) {
		s.Ingest(r)
	}
	g.SetMode(simulator.ModeHealthy, 0)
	for _, r := range g.Generate(100) {
		s.Ingest(r)
	}

	// Only half the window is healthy; below the coverage floor.
	_, err := s.Calibrate()
	require.Error(t, err)

	var covErr *baseline.CoverageError
	assert.True(t, errors.As(err, &covErr))
	assert.False(t, s.Calibrated())
}

func TestRegistryCreatesOnFirstUse(t *testing.T) {
	r := NewRegistry(testConfig())
	assert.Zero(t, r.Len())

	s1 := r.Session("motor-1")
	s2 := r.Session("motor-1")
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get("motor-2")
	assert.False(t, ok)
	r.Session("motor-2")
	assert.Equal(t, []string{"motor-1", "motor-2"}, r.Assets())
}

func TestRegistryRoutesByAssetID(t *testing.T) {
	r := NewRegistry(testConfig())
	g1 := newGenerator("motor-1")
	g2 := newGenerator("motor-2")

	for i := 0; i < 10; i++ {
		r.Ingest(g1.Next())
		r.Ingest(g2.Next())
	}
	s1, ok := r.Get("motor-1")
	require.True(t, ok)
	s2, ok := r.Get("motor-2")
	require.True(t, ok)
	assert.Equal(t, 10, s1.ReadingCount())
	assert.Equal(t, 10, s2.ReadingCount())
}

func TestSessionsAreIndependent(t *testing.T) {
	r := NewRegistry(testConfig())
	g1 := newGenerator("motor-1")
	g2 := newGenerator("motor-2")

	for _, reading := range g1.Generate(300) {
		r.Ingest(reading)
	}
	s1 := r.Session("motor-1")
	_, err := s1.Calibrate()
	require.NoError(t, err)

	g2.SetMode(simulator.ModeInnerRaceFault, 1.0)
	for _, reading := range g2.Generate(50) {
		r.Ingest(reading)
	}

	// motor-2's fault stream never touches motor-1's condition.
	assert.Equal(t, models.ConditionHealthy, s1.State())
	assert.False(t, r.Session("motor-2").Calibrated())
}
