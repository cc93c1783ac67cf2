package journal

// Package journal writes an append-only record of calibrations,
// condition transitions, and risk escalations, alongside a rotating
// application log. Entries are buffered and flushed in batches.

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

const (
	flushThreshold = 100
	flushInterval  = 1 * time.Second
)

// Journal defines the interface for the assessment journal
type Journal interface {
	// Record appends one entry
	Record(ctx context.Context, entry *Entry) error

	// Calibration lifecycle
	RecordCalibrationStarted(ctx context.Context, assetID string) error
	RecordCalibrationCompleted(ctx context.Context, assetID, baselineID string, samples int, duration time.Duration) error
	RecordCalibrationFailed(ctx context.Context, assetID string, err error) error

	// Condition transitions
	RecordConditionEvent(ctx context.Context, event *models.ConditionEvent) error

	// Assessments that crossed into HIGH or CRITICAL
	RecordRiskEscalation(ctx context.Context, report *models.HealthReport) error

	// System lifecycle
	RecordServerStarted(ctx context.Context, addr string) error
	RecordServerShutdown(ctx context.Context) error

	// AppLogger exposes the shared application logger
	AppLogger() *zap.Logger

	// Sync flushes buffered entries
	Sync() error

	// Close flushes and shuts the journal down
	Close() error
}

// Config represents journal configuration
type Config struct {
	// JournalPath is the path to the append-only journal file
	JournalPath string

	// AppLogPath is the path to the application log file
	AppLogPath string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files
	MaxAge int

	// Compress determines if rotated files should be compressed
	Compress bool

	// LogLevel is the minimum application log level (debug, info, warn, error)
	LogLevel string
}

// DefaultConfig returns default journal configuration
func DefaultConfig() *Config {
	return &Config{
		JournalPath: "logs/journal.log",
		AppLogPath:  "logs/app.log",
		MaxSize:     100, // megabytes
		MaxBackups:  10,
		MaxAge:      30, // days
		Compress:    true,
		LogLevel:    "info",
	}
}

// fileJournal implements the Journal interface
type fileJournal struct {
	appLogger     *zap.Logger
	journalLogger *zap.Logger
	config        *Config
	mu            sync.Mutex
	buffer        []*Entry
	flushTicker   *time.Ticker
	stopCh        chan struct{}
}

// NewJournal creates a new file-backed journal
func NewJournal(config *Config) (Journal, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.LogLevel, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	appRotator := &lumberjack.Logger{
		Filename:   config.AppLogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	appCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(appRotator),
		level,
	)

	appLogger := zap.New(appCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	// Journal entries are append-only and always recorded at INFO.
	journalRotator := &lumberjack.Logger{
		Filename:   config.JournalPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	journalCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(journalRotator),
		zapcore.InfoLevel,
	)

	j := &fileJournal{
		appLogger:     appLogger,
		journalLogger: zap.New(journalCore),
		config:        config,
		buffer:        make([]*Entry, 0, flushThreshold),
		flushTicker:   time.NewTicker(flushInterval),
		stopCh:        make(chan struct{}),
	}

	go j.autoFlush()

	return j, nil
}

// Record appends one entry, flushing when the buffer fills
func (j *fileJournal) Record(ctx context.Context, entry *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.buffer = append(j.buffer, entry)

	if len(j.buffer) >= flushThreshold {
		return j.flushLocked()
	}

	return nil
}

// flushLocked flushes the buffer (caller must hold lock)
func (j *fileJournal) flushLocked() error {
	if len(j.buffer) == 0 {
		return nil
	}

	for _, entry := range j.buffer {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			j.appLogger.Error("failed to marshal journal entry",
				zap.Error(err),
				zap.String("entry_type", string(entry.EntryType)),
			)
			continue
		}

		j.journalLogger.Info(string(entryJSON),
			zap.String("asset_id", entry.AssetID),
			zap.String("entry_type", string(entry.EntryType)),
			zap.String("result", string(entry.Result)),
		)
	}

	j.buffer = j.buffer[:0]

	return nil
}

// autoFlush periodically flushes the buffer
func (j *fileJournal) autoFlush() {
	for {
		select {
		case <-j.flushTicker.C:
			j.mu.Lock()
			_ = j.flushLocked()
			j.mu.Unlock()
		case <-j.stopCh:
			return
		}
	}
}

// RecordCalibrationStarted records the start of a baseline calibration
func (j *fileJournal) RecordCalibrationStarted(ctx context.Context, assetID string) error {
	entry := NewEntry(EntryCalibrationStarted).
		WithAsset(assetID).
		WithDescription(fmt.Sprintf("Calibration started for %s", assetID))

	return j.Record(ctx, entry)
}

// RecordCalibrationCompleted records a successful calibration
func (j *fileJournal) RecordCalibrationCompleted(ctx context.Context, assetID, baselineID string, samples int, duration time.Duration) error {
	entry := NewEntry(EntryCalibrationCompleted).
		WithAsset(assetID).
		WithBaseline(baselineID).
		WithResult(ResultSuccess).
		WithDuration(duration).
		WithMetadata("healthy_samples", samples).
		WithDescription(fmt.Sprintf("Baseline %s calibrated for %s from %d healthy samples", baselineID, assetID, samples))

	return j.Record(ctx, entry)
}

// RecordCalibrationFailed records a calibration failure
func (j *fileJournal) RecordCalibrationFailed(ctx context.Context, assetID string, err error) error {
	entry := NewEntry(EntryCalibrationFailed).
		WithAsset(assetID).
		WithError(err).
		WithDescription(fmt.Sprintf("Calibration failed for %s", assetID))

	return j.Record(ctx, entry)
}

// RecordConditionEvent records a confirmed condition transition
func (j *fileJournal) RecordConditionEvent(ctx context.Context, event *models.ConditionEvent) error {
	entryType := EntryAnomalyDetected
	if event.Type == models.EventAnomalyCleared {
		entryType = EntryAnomalyCleared
	}

	entry := NewEntry(entryType).
		WithAsset(event.AssetID).
		WithResult(ResultSuccess).
		WithMetadata("event_id", event.EventID).
		WithMetadata("severity", string(event.Severity)).
		WithDescription(event.Message)

	return j.Record(ctx, entry)
}

// RecordRiskEscalation records an assessment that reached HIGH or CRITICAL
func (j *fileJournal) RecordRiskEscalation(ctx context.Context, report *models.HealthReport) error {
	entry := NewEntry(EntryRiskEscalated).
		WithAsset(report.AssetID).
		WithReport(report.ReportID).
		WithResult(ResultSuccess).
		WithHealth(report.HealthScore, string(report.RiskLevel)).
		WithDescription(fmt.Sprintf("Asset %s escalated to %s (health %d)", report.AssetID, report.RiskLevel, report.HealthScore))

	return j.Record(ctx, entry)
}

// RecordServerStarted records server startup
func (j *fileJournal) RecordServerStarted(ctx context.Context, addr string) error {
	entry := NewEntry(EntryServerStarted).
		WithResult(ResultSuccess).
		WithMetadata("addr", addr).
		WithDescription(fmt.Sprintf("Server started on %s", addr))

	return j.Record(ctx, entry)
}

// RecordServerShutdown records server shutdown
func (j *fileJournal) RecordServerShutdown(ctx context.Context) error {
	entry := NewEntry(EntryServerShutdown).
		WithResult(ResultSuccess).
		WithDescription("Server shutting down")

	return j.Record(ctx, entry)
}

// AppLogger exposes the shared application logger
func (j *fileJournal) AppLogger() *zap.Logger {
	return j.appLogger
}

// Sync flushes buffered entries
func (j *fileJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.flushLocked(); err != nil {
		return err
	}

	if err := j.journalLogger.Sync(); err != nil {
		return err
	}

	return j.appLogger.Sync()
}

// Close closes the journal
func (j *fileJournal) Close() error {
	close(j.stopCh)
	j.flushTicker.Stop()

	return j.Sync()
}
