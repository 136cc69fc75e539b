// Package history keeps a queryable record of past runs in SQLite, next to
// the JSON reports. Reports stay the source of truth for undo; the database
// answers "what happened lately" without opening every report.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jordanlambrecht/sports-media-organizer/internal/log"
)

// ErrSchemaMismatch is returned when the database was written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE runs (
	id TEXT PRIMARY KEY,
	sport TEXT NOT NULL,
	mode TEXT NOT NULL,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	processed INTEGER NOT NULL DEFAULT 0,
	relocated INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	quarantined INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	report_path TEXT
);

CREATE INDEX idx_runs_started ON runs(started_at);

CREATE TABLE entries (
	id TEXT NOT NULL,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	recorded_at TEXT,
	source TEXT NOT NULL,
	destination TEXT,
	confidence INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL,
	operation TEXT,
	reason TEXT,
	error TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX idx_entries_source ON entries(source);
`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one stored run.
type Run struct {
	ID          string
	Sport       string
	Mode        log.Mode
	Source      string
	Destination string
	Started     time.Time
	Finished    time.Time
	Summary     log.Summary
	ReportPath  string
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// RecordRun stores a finished run with its entries. Recording the same run
// id again replaces the earlier copy.
func (s *Store) RecordRun(ctx context.Context, meta log.Metadata, entries []log.Entry, reportPath string) error {
	if meta.RunID == "" {
		return errors.New("record run: missing run id")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordRun(ctx, meta, entries, reportPath)
	})
}

func (s *Store) recordRun(ctx context.Context, meta log.Metadata, entries []log.Entry, reportPath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE run_id = ?", meta.RunID); err != nil {
		return fmt.Errorf("clear run entries: %w", err)
	}
	sum := meta.Summary
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs (
		id, sport, mode, source, destination, started_at, finished_at,
		processed, relocated, skipped, quarantined, failed, report_path
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.RunID, meta.Sport, string(meta.Mode), meta.Source, meta.Destination,
		formatTime(meta.Started), nullableTime(meta.Finished),
		sum.Processed, sum.Relocated, sum.Skipped, sum.Quarantined, sum.Failed,
		nullableString(reportPath),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (
		id, run_id, seq, recorded_at, source, destination, confidence,
		outcome, operation, reason, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.ID, meta.RunID, i, nullableTime(e.Timestamp), e.Source,
			nullableString(e.Destination), e.Confidence, string(e.Outcome),
			nullableString(string(e.Operation)), nullableString(e.Reason), nullableString(e.Error),
		)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, sport, mode, source, destination, started_at, finished_at,
	processed, relocated, skipped, quarantined, failed, report_path`

// RecentRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run, or nil when the id is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunEntries returns the entries of a run in the order they were recorded.
// Slot details live only in the JSON report.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]log.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, recorded_at, source, destination, confidence,
		outcome, operation, reason, error FROM entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SourceHistory returns every recorded entry for a source file, newest first.
func (s *Store) SourceHistory(ctx context.Context, source string) ([]log.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.id, e.recorded_at, e.source, e.destination, e.confidence,
		e.outcome, e.operation, e.reason, e.error
		FROM entries e JOIN runs r ON r.id = e.run_id
		WHERE e.source = ? ORDER BY r.started_at DESC, e.seq`, source)
	if err != nil {
		return nil, fmt.Errorf("list source history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stamp := formatTime(cutoff)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM entries WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", stamp)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return int(removed), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run              Run
		mode, started    string
		finished, report sql.NullString
	)
	err := row.Scan(&run.ID, &run.Sport, &mode, &run.Source, &run.Destination, &started, &finished,
		&run.Summary.Processed, &run.Summary.Relocated, &run.Summary.Skipped,
		&run.Summary.Quarantined, &run.Summary.Failed, &report)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Mode = log.Mode(mode)
	run.Started = parseTimeString(started)
	if finished.Valid {
		run.Finished = parseTimeString(finished.String)
	}
	run.ReportPath = report.String
	return run, nil
}

func scanEntries(rows *sql.Rows) ([]log.Entry, error) {
	var entries []log.Entry
	for rows.Next() {
		var (
			e                                   log.Entry
			outcome                             string
			recorded, dest, op, reason, errText sql.NullString
		)
		if err := rows.Scan(&e.ID, &recorded, &e.Source, &dest, &e.Confidence, &outcome, &op, &reason, &errText); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if recorded.Valid {
			e.Timestamp = parseTimeString(recorded.String)
		}
		e.Destination = dest.String
		e.Outcome = log.Outcome(outcome)
		e.Operation = log.Operation(op.String)
		e.Reason = reason.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTimeString(value string) time.Time {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
