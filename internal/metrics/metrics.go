package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assessment core metrics for production monitoring
var (
	// Ingest metrics
	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_readings_ingested_total",
			Help: "Total number of sensor readings ingested",
		},
		[]string{"asset_id", "source"},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_ingest_rejected_total",
			Help: "Total number of readings rejected at ingest",
		},
		[]string{"reason"}, // reason: invalid_payload/rate_limited/uncalibrated
	)

	// Assessment metrics
	AssessmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpulse_assessment_duration_seconds",
			Help:    "Per-reading assessment duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~400ms
		},
		[]string{"asset_id"},
	)

	HealthScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpulse_health_score",
			Help: "Latest health score per asset (0-100)",
		},
		[]string{"asset_id"},
	)

	AnomalyScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpulse_anomaly_score",
			Help: "Latest blended anomaly score per asset (0-1)",
		},
		[]string{"asset_id"},
	)

	RiskAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_risk_assessments_total",
			Help: "Total assessments grouped by resulting risk level",
		},
		[]string{"asset_id", "risk_level"},
	)

	// Condition metrics
	ConditionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_condition_transitions_total",
			Help: "Total confirmed condition transitions",
		},
		[]string{"asset_id", "event_type"},
	)

	// Calibration metrics
	Calibrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_calibrations_total",
			Help: "Total baseline calibration attempts",
		},
		[]string{"asset_id", "status"}, // status: success/failure
	)

	CalibrationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetpulse_calibration_duration_seconds",
			Help:    "Baseline calibration duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"asset_id"},
	)

	BaselineSamples = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetpulse_baseline_healthy_samples",
			Help: "Healthy sample count of the active baseline per asset",
		},
		[]string{"asset_id"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetpulse_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetpulse_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: inbound/outbound
	)
)
