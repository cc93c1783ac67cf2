package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// schema defines the tables for the assessment persistence layer.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS readings (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id          TEXT NOT NULL UNIQUE,
    asset_id          TEXT NOT NULL,
    asset_type        TEXT NOT NULL DEFAULT 'INDUCTION_MOTOR',
    voltage_v         REAL NOT NULL,
    current_a         REAL NOT NULL,
    power_factor      REAL NOT NULL,
    power_kw          REAL NOT NULL,
    vibration_g       REAL NOT NULL,
    operating_state   TEXT NOT NULL DEFAULT 'RUNNING',
    source            TEXT NOT NULL DEFAULT '',
    is_fault_injected INTEGER NOT NULL DEFAULT 0,
    timestamp         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_asset_time ON readings(asset_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS baselines (
    baseline_id      TEXT PRIMARY KEY,
    asset_id         TEXT NOT NULL,
    window_start     DATETIME NOT NULL,
    window_end       DATETIME NOT NULL,
    sample_count     INTEGER NOT NULL DEFAULT 0,
    signal_profiles  TEXT NOT NULL DEFAULT '{}',
    feature_profiles TEXT NOT NULL DEFAULT '{}',
    active           INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_baselines_asset ON baselines(asset_id, created_at DESC);
`,
	},
	// Migration 2: reports + events tables
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS reports (
    report_id               TEXT PRIMARY KEY,
    asset_id                TEXT NOT NULL,
    health_score            INTEGER NOT NULL,
    anomaly_score           REAL NOT NULL,
    risk_level              TEXT NOT NULL,
    maintenance_window_days REAL NOT NULL DEFAULT 0.0,
    trend_slope             REAL NOT NULL DEFAULT 0.0,
    explanations            TEXT NOT NULL DEFAULT '[]',
    model_version           TEXT NOT NULL DEFAULT '',
    assessment_version      TEXT NOT NULL DEFAULT '',
    timestamp               DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_asset_time ON reports(asset_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_reports_risk       ON reports(risk_level);

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id   TEXT NOT NULL UNIQUE,
    asset_id   TEXT NOT NULL,
    event_type TEXT NOT NULL,
    severity   TEXT NOT NULL DEFAULT 'INFO',
    message    TEXT NOT NULL DEFAULT '',
    timestamp  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_asset_time ON events(asset_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_events_severity   ON events(severity);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enable foreign-key constraints.
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	// Ensure schema_versions table exists before reading from it.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Readings ─────────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendReading(ctx context.Context, rec *ReadingRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO readings(event_id, asset_id, asset_type, voltage_v, current_a, power_factor, power_kw, vibration_g, operating_state, source, is_fault_injected, timestamp)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
    `,
		rec.EventID, rec.AssetID, rec.AssetType, rec.VoltageV, rec.CurrentA,
		rec.PowerFactor, rec.PowerKW, rec.VibrationG, rec.OperatingState,
		rec.Source, rec.FaultInjected, rec.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *sqliteStore) QueryReadings(ctx context.Context, q ReadingQuery) ([]*ReadingRecord, error) {
	query := `SELECT id,event_id,asset_id,asset_type,voltage_v,current_a,power_factor,power_kw,vibration_g,operating_state,source,is_fault_injected,timestamp FROM readings WHERE 1=1`
	args := []any{}

	if q.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, q.AssetID)
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReadingRecord
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) LatestReadings(ctx context.Context, assetID string, n int) ([]*ReadingRecord, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id,event_id,asset_id,asset_type,voltage_v,current_a,power_factor,power_kw,vibration_g,operating_state,source,is_fault_injected,timestamp
        FROM readings WHERE asset_id=? ORDER BY timestamp DESC LIMIT ?`, assetID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReadingRecord
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for replay.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (s *sqliteStore) CountReadings(ctx context.Context, assetID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE asset_id=?`, assetID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*ReadingRecord, error) {
	rec := &ReadingRecord{}
	var ts string
	err := row.Scan(&rec.ID, &rec.EventID, &rec.AssetID, &rec.AssetType,
		&rec.VoltageV, &rec.CurrentA, &rec.PowerFactor, &rec.PowerKW, &rec.VibrationG,
		&rec.OperatingState, &rec.Source, &rec.FaultInjected, &ts)
	if err != nil {
		return nil, err
	}
	rec.Timestamp, _ = parseTime(ts)
	return rec, nil
}

// ─── Baselines ────────────────────────────────────────────────────────────────

func (s *sqliteStore) SaveBaseline(ctx context.Context, rec *BaselineRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE baselines SET active=0 WHERE asset_id=?`, rec.AssetID); err != nil {
		return fmt.Errorf("deactivate baselines: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO baselines(baseline_id, asset_id, window_start, window_end, sample_count, signal_profiles, feature_profiles, active, created_at)
        VALUES(?,?,?,?,?,?,?,1,?)
    `,
		rec.BaselineID, rec.AssetID, rec.WindowStart.UTC(), rec.WindowEnd.UTC(),
		rec.SampleCount, rec.SignalProfiles, rec.FeatureProfiles, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert baseline: %w", err)
	}

	return tx.Commit()
}

func (s *sqliteStore) ActiveBaseline(ctx context.Context, assetID string) (*BaselineRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT baseline_id,asset_id,window_start,window_end,sample_count,signal_profiles,feature_profiles,active,created_at
        FROM baselines WHERE asset_id=? AND active=1`, assetID)
	rec, err := scanBaseline(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *sqliteStore) ListBaselines(ctx context.Context, assetID string) ([]*BaselineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT baseline_id,asset_id,window_start,window_end,sample_count,signal_profiles,feature_profiles,active,created_at
        FROM baselines WHERE asset_id=? ORDER BY created_at DESC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*BaselineRecord
	for rows.Next() {
		rec, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanBaseline(row rowScanner) (*BaselineRecord, error) {
	rec := &BaselineRecord{}
	var ws, we, ca string
	err := row.Scan(&rec.BaselineID, &rec.AssetID, &ws, &we, &rec.SampleCount,
		&rec.SignalProfiles, &rec.FeatureProfiles, &rec.Active, &ca)
	if err != nil {
		return nil, err
	}
	rec.WindowStart, _ = parseTime(ws)
	rec.WindowEnd, _ = parseTime(we)
	rec.CreatedAt, _ = parseTime(ca)
	return rec, nil
}

// ─── Reports ──────────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendReport(ctx context.Context, rec *ReportRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO reports(report_id, asset_id, health_score, anomaly_score, risk_level, maintenance_window_days, trend_slope, explanations, model_version, assessment_version, timestamp)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
    `,
		rec.ReportID, rec.AssetID, rec.HealthScore, rec.AnomalyScore, rec.RiskLevel,
		rec.MaintenanceWindowDays, rec.TrendSlope, rec.Explanations,
		rec.ModelVersion, rec.AssessmentVersion, rec.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *sqliteStore) QueryReports(ctx context.Context, q ReportQuery) ([]*ReportRecord, error) {
	query := `SELECT report_id,asset_id,health_score,anomaly_score,risk_level,maintenance_window_days,trend_slope,explanations,model_version,assessment_version,timestamp FROM reports WHERE 1=1`
	args := []any{}

	if q.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, q.AssetID)
	}
	if q.RiskLevel != "" {
		query += ` AND risk_level = ?`
		args = append(args, q.RiskLevel)
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) LatestReport(ctx context.Context, assetID string) (*ReportRecord, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT report_id,asset_id,health_score,anomaly_score,risk_level,maintenance_window_days,trend_slope,explanations,model_version,assessment_version,timestamp
        FROM reports WHERE asset_id=? ORDER BY timestamp DESC LIMIT 1`, assetID)
	rec, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *sqliteStore) HealthTrend(ctx context.Context, assetID string, from, to time.Time) ([]*HealthTrendPoint, error) {
	query := `SELECT timestamp,health_score,anomaly_score,risk_level FROM reports WHERE asset_id=?`
	args := []any{assetID}

	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*HealthTrendPoint
	for rows.Next() {
		p := &HealthTrendPoint{}
		var ts string
		if err := rows.Scan(&ts, &p.HealthScore, &p.AnomalyScore, &p.RiskLevel); err != nil {
			return nil, err
		}
		p.Timestamp, _ = parseTime(ts)
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanReport(row rowScanner) (*ReportRecord, error) {
	rec := &ReportRecord{}
	var ts string
	err := row.Scan(&rec.ReportID, &rec.AssetID, &rec.HealthScore, &rec.AnomalyScore,
		&rec.RiskLevel, &rec.MaintenanceWindowDays, &rec.TrendSlope, &rec.Explanations,
		&rec.ModelVersion, &rec.AssessmentVersion, &ts)
	if err != nil {
		return nil, err
	}
	rec.Timestamp, _ = parseTime(ts)
	return rec, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendEvent(ctx context.Context, rec *EventRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO events(event_id, asset_id, event_type, severity, message, timestamp)
        VALUES(?,?,?,?,?,?)
    `,
		rec.EventID, rec.AssetID, rec.EventType, rec.Severity, rec.Message, rec.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *sqliteStore) QueryEvents(ctx context.Context, q EventQuery) ([]*EventRecord, error) {
	query := `SELECT id,event_id,asset_id,event_type,severity,message,timestamp FROM events WHERE 1=1`
	args := []any{}

	if q.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, q.AssetID)
	}
	if q.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, q.EventType)
	}
	if q.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, q.Severity)
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*EventRecord
	for rows.Next() {
		rec := &EventRecord{}
		var ts string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.AssetID, &rec.EventType,
			&rec.Severity, &rec.Message, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = parseTime(ts)
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) EventSummary(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `SELECT severity, COUNT(*) FROM events WHERE 1=1`
	args := []any{}

	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.UTC())
	}
	query += ` GROUP BY severity`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		summary[severity] = count
	}
	return summary, rows.Err()
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
