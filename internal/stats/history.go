package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    started_at TEXT NOT NULL,
    duration_seconds REAL NOT NULL,
    imported INTEGER NOT NULL,
    succeeded INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    repaired INTEGER NOT NULL,
    degraded INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// RunRecord is one row of run history.
type RunRecord struct {
	RunID           string
	StartedAt       time.Time
	DurationSeconds float64
	Imported        int
	Succeeded       int
	Failed          int
	Repaired        int
	Degraded        bool
}

// History stores run outcomes in a local SQLite database so past runs remain
// inspectable after the per-run report file is overwritten.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the run history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("stats: open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("stats: init history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordRun appends one run outcome.
func (h *History) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, duration_seconds, imported, succeeded, failed, repaired, degraded)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.DurationSeconds,
		rec.Imported,
		rec.Succeeded,
		rec.Failed,
		rec.Repaired,
		boolToInt(rec.Degraded),
	)
	if err != nil {
		return fmt.Errorf("stats: record run: %w", err)
	}
	return nil
}

// RecordReport appends the run described by a report.
func (h *History) RecordReport(ctx context.Context, report *Report) error {
	return h.RecordRun(ctx, RunRecord{
		RunID:           report.RunID,
		StartedAt:       report.StartedAt,
		DurationSeconds: report.DurationSeconds,
		Imported:        report.Imported,
		Succeeded:       report.SucceededItems(),
		Failed:          report.FailedItems(),
		Repaired:        report.Repaired,
		Degraded:        report.Degraded,
	})
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, started_at, duration_seconds, imported, succeeded, failed, repaired, degraded
         FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("stats: query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started string
		var degraded int
		if err := rows.Scan(&rec.RunID, &started, &rec.DurationSeconds, &rec.Imported, &rec.Succeeded, &rec.Failed, &rec.Repaired, &degraded); err != nil {
			return nil, fmt.Errorf("stats: scan run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			rec.StartedAt = ts
		}
		rec.Degraded = degraded != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: iterate runs: %w", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
