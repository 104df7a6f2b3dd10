package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("storage: create db dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS scan_runs (
  id           INTEGER PRIMARY KEY,
  started_at   TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finished_at  TEXT,
  loot_limit   INTEGER NOT NULL,
  status       TEXT NOT NULL CHECK (status IN ('running','success','failed')),
  row_count    INTEGER NOT NULL DEFAULT 0,
  page_count   INTEGER NOT NULL DEFAULT 0,
  stop_reason  TEXT,
  error        TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// StartRun records a new run in the running state and returns its ID.
func (d *DB) StartRun(ctx context.Context, lootLimit int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO scan_runs(loot_limit, status, started_at) VALUES(?, ?, CURRENT_TIMESTAMP)`, lootLimit, RunRunning)
	if err != nil {
		return 0, fmt.Errorf("storage: start run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun closes a run. A non-nil outcome error marks it failed.
func (d *DB) FinishRun(ctx context.Context, id int64, out RunOutcome) error {
	status := RunSuccess
	var errText interface{}
	if out.Err != nil {
		status = RunFailed
		errText = out.Err.Error()
	}

	res, err := d.sql.ExecContext(ctx, `UPDATE scan_runs SET finished_at = CURRENT_TIMESTAMP, status = ?, row_count = ?, page_count = ?, stop_reason = ?, error = ? WHERE id = ?`,
		status, out.Rows, out.Pages, nullIfEmpty(out.StopReason), errText, id)
	if err != nil {
		return fmt.Errorf("storage: finish run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: finish run %d: no such run", id)
	}
	return nil
}

// ListRecentRuns returns the most recent runs, newest first.
func (d *DB) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, started_at, finished_at, loot_limit, status, row_count, page_count, stop_reason, error FROM scan_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                    Run
			startedAt            string
			finishedAt, stop, ee sql.NullString
		)
		if err := rows.Scan(&r.ID, &startedAt, &finishedAt, &r.LootLimit, &r.Status, &r.Rows, &r.Pages, &stop, &ee); err != nil {
			return nil, err
		}
		r.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			r.FinishedAt = parseTimestamp(finishedAt.String)
		}
		r.StopReason = stop.String
		r.Error = ee.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// parseTimestamp reads SQLite's CURRENT_TIMESTAMP format, falling back to RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
