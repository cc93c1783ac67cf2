package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/assetpulse/assetpulse-core/internal/db"
	"github.com/assetpulse/assetpulse-core/internal/metrics"
	"github.com/assetpulse/assetpulse-core/internal/models"
	"github.com/assetpulse/assetpulse-core/internal/session"
	"github.com/assetpulse/assetpulse-core/pkg/types"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.running
	s.mu.RUnlock()

	if ready {
		if err := s.store.Ping(r.Context()); err != nil {
			ready = false
		}
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIngest accepts one sensor reading, scores it, and persists the
// reading plus any resulting report and condition event.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IngestRejected.WithLabelValues("invalid_payload").Inc()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	reading := req.Reading
	if reading.AssetID == "" {
		metrics.IngestRejected.WithLabelValues("invalid_payload").Inc()
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	ctx := r.Context()
	if err := s.store.AppendReading(ctx, db.ReadingRecordFrom(reading)); err != nil {
		s.logger.Error("persist reading failed",
			zap.String("asset_id", reading.AssetID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist reading")
		return
	}

	metrics.ReadingsIngested.WithLabelValues(reading.AssetID, reading.Source).Inc()

	start := time.Now()
	result, err := s.registry.Ingest(reading)
	if err != nil {
		if errors.Is(err, session.ErrNotCalibrated) {
			writeJSON(w, http.StatusAccepted, types.IngestResponse{
				Accepted:   true,
				State:      string(result.State),
				Calibrated: false,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.AssessmentDuration.WithLabelValues(reading.AssetID).Observe(time.Since(start).Seconds())

	if result.Report != nil {
		s.recordReport(ctx, result.Report)
	}
	if result.Event != nil {
		s.recordEvent(ctx, result.Event)
	}

	writeJSON(w, http.StatusOK, types.IngestResponse{
		Accepted:   true,
		State:      string(result.State),
		Report:     result.Report,
		Event:      result.Event,
		Calibrated: true,
	})
}

// recordReport persists a report, updates gauges, and pushes it to live
// stream subscribers.
func (s *Server) recordReport(ctx context.Context, report *models.HealthReport) {
	metrics.HealthScore.WithLabelValues(report.AssetID).Set(float64(report.HealthScore))
	metrics.AnomalyScore.WithLabelValues(report.AssetID).Set(report.AnomalyScore)
	metrics.RiskAssessments.WithLabelValues(report.AssetID, string(report.RiskLevel)).Inc()

	rec, err := db.ReportRecordFrom(report)
	if err != nil {
		s.logger.Error("encode report failed", zap.String("asset_id", report.AssetID), zap.Error(err))
	} else if err := s.store.AppendReport(ctx, rec); err != nil {
		s.logger.Error("persist report failed", zap.String("asset_id", report.AssetID), zap.Error(err))
	}

	if report.RiskLevel == models.RiskCritical {
		s.journal.RecordRiskEscalation(ctx, report)
	}

	s.hub.Broadcast(types.StreamMessage{
		Type:      "report",
		AssetID:   report.AssetID,
		Payload:   report,
		Timestamp: time.Now().UTC(),
	})
}

// recordEvent persists a condition transition and pushes it to subscribers.
func (s *Server) recordEvent(ctx context.Context, event *models.ConditionEvent) {
	metrics.ConditionTransitions.WithLabelValues(event.AssetID, string(event.Type)).Inc()

	if err := s.store.AppendEvent(ctx, db.EventRecordFrom(event)); err != nil {
		s.logger.Error("persist event failed", zap.String("asset_id", event.AssetID), zap.Error(err))
	}
	s.journal.RecordConditionEvent(ctx, event)

	s.hub.Broadcast(types.StreamMessage{
		Type:      "event",
		AssetID:   event.AssetID,
		Payload:   event,
		Timestamp: time.Now().UTC(),
	})
}

// handleAssetList lists all assets with their current status.
func (s *Server) handleAssetList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids := s.registry.Assets()
	list := types.AssetList{Assets: make([]types.AssetStatus, 0, len(ids)), Count: len(ids)}
	for _, id := range ids {
		sess, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		list.Assets = append(list.Assets, assetStatus(sess))
	}

	writeJSON(w, http.StatusOK, list)
}

// handleAsset dispatches per-asset routes.
// URL pattern: /api/v1/assets/{id}/{action}
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/assets/")
	rest = strings.TrimSuffix(rest, "/")
	parts := strings.SplitN(rest, "/", 2)

	assetID := parts[0]
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "asset id required")
		return
	}

	action := "status"
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "calibrate":
		s.handleCalibrate(w, r, assetID)
	case "status":
		s.handleAssetStatus(w, r, assetID)
	case "reports":
		s.handleAssetReports(w, r, assetID)
	case "trend":
		s.handleAssetTrend(w, r, assetID)
	case "events":
		s.handleAssetEvents(w, r, assetID)
	case "baseline":
		s.handleAssetBaseline(w, r, assetID)
	default:
		writeError(w, http.StatusNotFound, "unknown asset route: "+action)
	}
}

// handleCalibrate builds a fresh baseline for an asset from its
// accumulated history.
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := s.registry.Get(assetID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown asset: "+assetID)
		return
	}

	ctx := r.Context()
	s.journal.RecordCalibrationStarted(ctx, assetID)

	start := time.Now()
	profile, err := sess.Calibrate()
	elapsed := time.Since(start)

	if err != nil {
		metrics.Calibrations.WithLabelValues(assetID, "failure").Inc()
		s.journal.RecordCalibrationFailed(ctx, assetID, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	metrics.Calibrations.WithLabelValues(assetID, "success").Inc()
	metrics.CalibrationDuration.WithLabelValues(assetID).Observe(elapsed.Seconds())
	metrics.BaselineSamples.WithLabelValues(assetID).Set(float64(profile.Window.SampleCount))
	s.journal.RecordCalibrationCompleted(ctx, assetID, profile.BaselineID, profile.Window.SampleCount, elapsed)

	rec, err := db.BaselineRecordFrom(profile)
	if err != nil {
		s.logger.Error("encode baseline failed", zap.String("asset_id", assetID), zap.Error(err))
	} else if err := s.store.SaveBaseline(ctx, rec); err != nil {
		s.logger.Error("persist baseline failed", zap.String("asset_id", assetID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, types.CalibrateResponse{
		AssetID:     assetID,
		BaselineID:  profile.BaselineID,
		SampleCount: profile.Window.SampleCount,
		WindowStart: profile.Window.Start,
		WindowEnd:   profile.Window.End,
		DurationMS:  elapsed.Milliseconds(),
	})
}

// handleAssetStatus returns the live status of one asset.
func (s *Server) handleAssetStatus(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := s.registry.Get(assetID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown asset: "+assetID)
		return
	}

	writeJSON(w, http.StatusOK, assetStatus(sess))
}

// handleAssetReports returns the health report history for one asset.
func (s *Server) handleAssetReports(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := db.ReportQuery{
		AssetID:   assetID,
		RiskLevel: r.URL.Query().Get("risk"),
		From:      parseTimeParam(r, "from"),
		To:        parseTimeParam(r, "to"),
		Limit:     parseIntParam(r, "limit", 100),
		Offset:    parseIntParam(r, "offset", 0),
	}

	recs, err := s.store.QueryReports(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reports := make([]*models.HealthReport, 0, len(recs))
	for _, rec := range recs {
		report, err := rec.Report()
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	writeJSON(w, http.StatusOK, types.ReportList{
		AssetID: assetID,
		Reports: reports,
		Count:   len(reports),
	})
}

// handleAssetTrend returns health trend points for charting. The window
// defaults to the last 24 hours.
func (s *Server) handleAssetTrend(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from := parseTimeParam(r, "from")
	to := parseTimeParam(r, "to")
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}

	points, err := s.store.HealthTrend(r.Context(), assetID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := types.TrendResponse{AssetID: assetID, Points: make([]types.TrendPoint, 0, len(points))}
	for _, p := range points {
		resp.Points = append(resp.Points, types.TrendPoint{
			Timestamp:   p.Timestamp,
			HealthScore: p.HealthScore,
			RiskLevel:   p.RiskLevel,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleAssetEvents returns condition events for one asset.
func (s *Server) handleAssetEvents(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := db.EventQuery{
		AssetID:   assetID,
		EventType: r.URL.Query().Get("type"),
		Severity:  r.URL.Query().Get("severity"),
		From:      parseTimeParam(r, "from"),
		To:        parseTimeParam(r, "to"),
		Limit:     parseIntParam(r, "limit", 100),
		Offset:    parseIntParam(r, "offset", 0),
	}

	recs, err := s.store.QueryEvents(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	events := make([]*models.ConditionEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, rec.Event())
	}

	writeJSON(w, http.StatusOK, types.EventList{
		AssetID: assetID,
		Events:  events,
		Count:   len(events),
	})
}

// handleAssetBaseline returns the active baseline profile for one asset.
func (s *Server) handleAssetBaseline(w http.ResponseWriter, r *http.Request, assetID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := s.store.ActiveBaseline(r.Context(), assetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no active baseline for asset: "+assetID)
		return
	}

	profile, err := rec.Profile()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// handleEvents returns fleet-wide condition events plus a severity summary.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from := parseTimeParam(r, "from")
	to := parseTimeParam(r, "to")

	q := db.EventQuery{
		EventType: r.URL.Query().Get("type"),
		Severity:  r.URL.Query().Get("severity"),
		From:      from,
		To:        to,
		Limit:     parseIntParam(r, "limit", 100),
		Offset:    parseIntParam(r, "offset", 0),
	}

	recs, err := s.store.QueryEvents(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary, err := s.store.EventSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	events := make([]*models.ConditionEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, rec.Event())
	}

	writeJSON(w, http.StatusOK, types.EventList{
		Events:  events,
		Count:   len(events),
		Summary: summary,
	})
}

func assetStatus(sess *session.AssetSession) types.AssetStatus {
	return types.AssetStatus{
		AssetID:      sess.AssetID(),
		State:        string(sess.State()),
		Calibrated:   sess.Calibrated(),
		BaselineID:   sess.BaselineID(),
		ReadingCount: sess.ReadingCount(),
		LastReport:   sess.LastReport(),
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a uniform JSON error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func parseTimeParam(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
