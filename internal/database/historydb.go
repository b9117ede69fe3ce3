package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/carledger/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "carledger.db"

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("crawl run not found")

	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run ID prefix matches several runs")
)

// HistoryDB stores crawl runs and their skipped items.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists false a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		start_page INTEGER NOT NULL,
		last_page INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		written INTEGER NOT NULL,
		flushes INTEGER NOT NULL,
		wrapped INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	CREATE TABLE IF NOT EXISTS skips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		reason TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_skips_run ON skips(run_id);
	CREATE INDEX IF NOT EXISTS idx_skips_url ON skips(url);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored crawl run without its skip list.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	StartPage  int
	LastPage   int
	Pages      int
	Accepted   int
	Written    int
	Flushes    int
	Wrapped    bool
	Error      string

	// Skipped and Failed count the run's skips; Failed only those that are
	// failures.
	Skipped int
	Failed  int
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores a finished run and its skips in one transaction.
// Saving the same run ID again replaces it.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.RunSummary) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // returning the original error
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM skips WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace skips of run %s: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (id, started_at, finished_at, start_page, last_page, pages, accepted, written, flushes, wrapped, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		start_page = excluded.start_page,
		last_page = excluded.last_page,
		pages = excluded.pages,
		accepted = excluded.accepted,
		written = excluded.written,
		flushes = excluded.flushes,
		wrapped = excluded.wrapped,
		error = excluded.error
	`,
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.StartPage,
		run.LastPage,
		run.Pages,
		run.Accepted,
		run.Written,
		run.Flushes,
		run.Wrapped,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	if len(run.Skips) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx, `INSERT INTO skips (run_id, url, reason, detail) VALUES (?, ?, ?, ?)`)
		if prepErr != nil {
			err = prepErr
			return fmt.Errorf("failed to prepare skip insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck // closed with the transaction

		for _, s := range run.Skips {
			if _, err = stmt.ExecContext(ctx, run.ID, s.URL, string(s.Reason), s.Detail); err != nil {
				return fmt.Errorf("failed to save skip %s: %w", s.URL, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `
	r.id, r.started_at, r.finished_at, r.start_page, r.last_page, r.pages,
	r.accepted, r.written, r.flushes, r.wrapped, r.error,
	(SELECT COUNT(*) FROM skips s WHERE s.run_id = r.id),
	(SELECT COUNT(*) FROM skips s WHERE s.run_id = r.id AND s.reason IN (%s))
`

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := fmt.Sprintf(`SELECT `+runColumns+` FROM crawl_runs r ORDER BY r.started_at DESC`, failureReasons())
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun returns the run whose ID equals or starts with idPrefix.
func (h *HistoryDB) FindRun(ctx context.Context, idPrefix string) (*RunRecord, error) {
	if idPrefix == "" {
		return nil, fmt.Errorf("%w: empty ID", ErrRunNotFound)
	}
	query := fmt.Sprintf(`SELECT `+runColumns+` FROM crawl_runs r WHERE substr(r.id, 1, length(?)) = ? ORDER BY r.started_at DESC LIMIT 2`, failureReasons())

	rows, err := h.db.QueryContext(ctx, query, idPrefix, idPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var found []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, idPrefix)
	}
}

// ListSkips returns the skips of a run in insertion order. A non-empty
// reason filters by reason.
func (h *HistoryDB) ListSkips(ctx context.Context, runID string, reason model.SkipReason) ([]model.Skip, error) {
	query := `SELECT url, reason, detail FROM skips WHERE run_id = ?`
	args := []any{runID}
	if reason != "" {
		query += " AND reason = ?"
		args = append(args, string(reason))
	}
	query += " ORDER BY id"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skips: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var skips []model.Skip
	for rows.Next() {
		var s model.Skip
		var r string
		if err := rows.Scan(&s.URL, &r, &s.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan skip: %w", err)
		}
		s.Reason = model.SkipReason(r)
		skips = append(skips, s)
	}
	return skips, rows.Err()
}

// SkipCountsByReason returns the number of skips per reason for a run.
func (h *HistoryDB) SkipCountsByReason(ctx context.Context, runID string) (map[model.SkipReason]int, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM skips WHERE run_id = ? GROUP BY reason`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count skips: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	counts := make(map[model.SkipReason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan skip count: %w", err)
		}
		counts[model.SkipReason(reason)] = n
	}
	return counts, rows.Err()
}

// RecurringFailures maps URLs that failed in at least minRuns distinct runs
// to the number of those runs.
func (h *HistoryDB) RecurringFailures(ctx context.Context, minRuns int) (map[string]int, error) {
	query := fmt.Sprintf(`
	SELECT url, COUNT(DISTINCT run_id) AS runs FROM skips
	WHERE reason IN (%s)
	GROUP BY url
	HAVING runs >= ?
	`, failureReasons())

	rows, err := h.db.QueryContext(ctx, query, minRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring failures: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	result := make(map[string]int)
	for rows.Next() {
		var url string
		var n int
		if err := rows.Scan(&url, &n); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		result[url] = n
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(rs rowScanner) (RunRecord, error) {
	var run RunRecord
	var started, finished string
	if err := rs.Scan(
		&run.ID,
		&started,
		&finished,
		&run.StartPage,
		&run.LastPage,
		&run.Pages,
		&run.Accepted,
		&run.Written,
		&run.Flushes,
		&run.Wrapped,
		&run.Error,
		&run.Skipped,
		&run.Failed,
	); err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	return run, nil
}

// failureReasons returns the failure reasons as a quoted SQL list.
func failureReasons() string {
	reasons := model.FailureReasons()
	quoted := make([]string, len(reasons))
	for i, r := range reasons {
		quoted[i] = "'" + string(r) + "'"
	}
	return strings.Join(quoted, ", ")
}

// timestampLayout sorts lexically in chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are the layouts accepted when reading timestamps.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses s with the known layouts, or returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
