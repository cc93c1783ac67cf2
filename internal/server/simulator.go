package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/assetpulse/assetpulse-core/internal/db"
	"github.com/assetpulse/assetpulse-core/internal/metrics"
	"github.com/assetpulse/assetpulse-core/internal/simulator"
)

// simulatorWarmup is how many readings the demo stream accumulates
// before its first calibration attempt.
const simulatorWarmup = 300

// runSimulator feeds a synthetic motor into the pipeline so a fresh
// deployment has live data without wiring real collectors. It calibrates
// automatically once enough healthy history has accumulated.
func (s *Server) runSimulator() {
	assetID := s.config.Simulator.AssetID
	interval := time.Duration(s.config.Simulator.IntervalMS) * time.Millisecond

	gen := simulator.New(assetID, s.config.Detector.Seed)
	sess := s.registry.Session(assetID)

	s.logger.Info("demo stream started",
		zap.String("asset_id", assetID),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("demo stream stopped", zap.String("asset_id", assetID))
			return

		case <-ticker.C:
			reading := gen.Next()

			if err := s.store.AppendReading(s.ctx, db.ReadingRecordFrom(reading)); err != nil {
				s.logger.Error("demo stream persist failed", zap.Error(err))
			}
			metrics.ReadingsIngested.WithLabelValues(assetID, reading.Source).Inc()

			result, err := sess.Ingest(reading)
			if err != nil {
				if !sess.Calibrated() && sess.ReadingCount() >= simulatorWarmup {
					s.calibrateSimulated(sess.AssetID())
				}
				continue
			}

			if result.Report != nil {
				s.recordReport(s.ctx, result.Report)
			}
			if result.Event != nil {
				s.recordEvent(s.ctx, result.Event)
			}
		}
	}
}

// calibrateSimulated runs the same calibration path the HTTP handler
// uses, minus the request plumbing.
func (s *Server) calibrateSimulated(assetID string) {
	sess, ok := s.registry.Get(assetID)
	if !ok {
		return
	}

	ctx := context.Background()
	s.journal.RecordCalibrationStarted(ctx, assetID)

	start := time.Now()
	profile, err := sess.Calibrate()
	elapsed := time.Since(start)

	if err != nil {
		metrics.Calibrations.WithLabelValues(assetID, "failure").Inc()
		s.journal.RecordCalibrationFailed(ctx, assetID, err)
		s.logger.Warn("demo stream calibration failed", zap.String("asset_id", assetID), zap.Error(err))
		return
	}

	metrics.Calibrations.WithLabelValues(assetID, "success").Inc()
	metrics.CalibrationDuration.WithLabelValues(assetID).Observe(elapsed.Seconds())
	metrics.BaselineSamples.WithLabelValues(assetID).Set(float64(profile.Window.SampleCount))
	s.journal.RecordCalibrationCompleted(ctx, assetID, profile.BaselineID, profile.Window.SampleCount, elapsed)

	if rec, err := db.BaselineRecordFrom(profile); err == nil {
		if err := s.store.SaveBaseline(ctx, rec); err != nil {
			s.logger.Error("persist demo baseline failed", zap.Error(err))
		}
	}

	s.logger.Info("demo stream calibrated",
		zap.String("asset_id", assetID),
		zap.String("baseline_id", profile.BaselineID),
		zap.Int("samples", profile.Window.SampleCount),
	)
}
