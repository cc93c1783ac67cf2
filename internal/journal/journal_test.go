package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

func testJournal(t *testing.T) (Journal, *Config) {
	t.Helper()
	tmpDir := t.TempDir()

	config := &Config{
		JournalPath: filepath.Join(tmpDir, "journal.log"),
		AppLogPath:  filepath.Join(tmpDir, "app.log"),
		MaxSize:     10,
		MaxBackups:  3,
		MaxAge:      7,
		Compress:    false,
		LogLevel:    "info",
	}

	j, err := NewJournal(config)
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, config
}

func TestNewJournalWithInvalidLevel(t *testing.T) {
	tmpDir := t.TempDir()

	config := &Config{
		JournalPath: filepath.Join(tmpDir, "journal.log"),
		AppLogPath:  filepath.Join(tmpDir, "app.log"),
		LogLevel:    "invalid",
	}

	_, err := NewJournal(config)
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("Expected 'invalid log level' error, got: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.JournalPath != "logs/journal.log" {
		t.Errorf("Expected journal path 'logs/journal.log', got %s", config.JournalPath)
	}
	if config.AppLogPath != "logs/app.log" {
		t.Errorf("Expected app log path 'logs/app.log', got %s", config.AppLogPath)
	}
	if config.MaxSize != 100 {
		t.Errorf("Expected max size 100, got %d", config.MaxSize)
	}
	if config.LogLevel != "info" {
		t.Errorf("Expected log level 'info', got %s", config.LogLevel)
	}
}

func TestRecordEntry(t *testing.T) {
	j, config := testJournal(t)

	ctx := context.Background()
	entry := NewEntry(EntryCalibrationCompleted).
		WithAsset("motor-1").
		WithBaseline("bl-123").
		WithResult(ResultSuccess)

	if err := j.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	content, err := os.ReadFile(config.JournalPath)
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}
	if !strings.Contains(string(content), "calibration.completed") {
		t.Error("Journal file missing the recorded entry type")
	}
	if !strings.Contains(string(content), "motor-1") {
		t.Error("Journal file missing the asset id")
	}
}

func TestRecordedEntryIsValidJSON(t *testing.T) {
	j, config := testJournal(t)

	ctx := context.Background()
	report := &models.HealthReport{
		ReportID:    "rep-1",
		Timestamp:   time.Now().UTC(),
		AssetID:     "motor-1",
		HealthScore: 30,
		RiskLevel:   models.RiskHigh,
	}
	if err := j.RecordRiskEscalation(ctx, report); err != nil {
		t.Fatalf("RecordRiskEscalation failed: %v", err)
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	content, err := os.ReadFile(config.JournalPath)
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) == 0 {
		t.Fatal("Expected at least one journal line")
	}

	var wrapper map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &wrapper); err != nil {
		t.Fatalf("Journal line is not valid JSON: %v", err)
	}
	if wrapper["asset_id"] != "motor-1" {
		t.Errorf("Expected asset_id 'motor-1', got %v", wrapper["asset_id"])
	}
}

func TestRecordConditionEvent(t *testing.T) {
	j, config := testJournal(t)

	ctx := context.Background()
	event := &models.ConditionEvent{
		EventID:   "ev-1",
		Timestamp: time.Now().UTC(),
		AssetID:   "motor-1",
		Type:      models.EventAnomalyCleared,
		Severity:  models.SeverityInfo,
		Message:   "Asset returned to healthy operation",
	}
	if err := j.RecordConditionEvent(ctx, event); err != nil {
		t.Fatalf("RecordConditionEvent failed: %v", err)
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	content, err := os.ReadFile(config.JournalPath)
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}
	if !strings.Contains(string(content), "condition.anomaly_cleared") {
		t.Error("Journal file missing the cleared entry")
	}
}

func TestRecordCalibrationFailedMarksFailure(t *testing.T) {
	j, config := testJournal(t)

	ctx := context.Background()
	if err := j.RecordCalibrationFailed(ctx, "motor-1", errors.New("coverage too low")); err != nil {
		t.Fatalf("RecordCalibrationFailed failed: %v", err)
	}
	if err := j.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	content, err := os.ReadFile(config.JournalPath)
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}
	if !strings.Contains(string(content), "coverage too low") {
		t.Error("Journal file missing the failure reason")
	}
	if !strings.Contains(string(content), string(ResultFailure)) {
		t.Error("Journal file missing the failure result")
	}
}

func TestAutoFlush(t *testing.T) {
	j, config := testJournal(t)

	ctx := context.Background()
	if err := j.RecordServerStarted(ctx, ":8090"); err != nil {
		t.Fatalf("RecordServerStarted failed: %v", err)
	}

	// The ticker flushes within a second; allow some slack.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		content, _ := os.ReadFile(config.JournalPath)
		if strings.Contains(string(content), "system.server_started") {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("Entry was not auto-flushed in time")
}

func TestEntryBuilder(t *testing.T) {
	entry := NewEntry(EntryAnomalyDetected).
		WithAsset("motor-1").
		WithHealth(20, "CRITICAL").
		WithMetadata("severity", "critical").
		WithError(errors.New("boom"))

	if entry.AssetID != "motor-1" {
		t.Errorf("Expected asset 'motor-1', got %s", entry.AssetID)
	}
	if entry.HealthScore != 20 || entry.RiskLevel != "CRITICAL" {
		t.Errorf("Unexpected health fields: %d %s", entry.HealthScore, entry.RiskLevel)
	}
	if entry.Result != ResultFailure {
		t.Error("WithError must mark the entry failed")
	}
	if entry.Metadata["severity"] != "critical" {
		t.Error("Metadata not recorded")
	}
	if entry.Timestamp.IsZero() {
		t.Error("Timestamp must be set")
	}
}
