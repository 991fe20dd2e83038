package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/brewcrawl/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "brewcrawl.db"

// HistoryDB stores crawl runs.
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
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
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

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		brewery_name TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]',
		beer_links INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_brewery ON runs(brewery_name);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Beer links in discovery order
	CREATE TABLE IF NOT EXISTS beer_links (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	-- Extracted records; formatted is 1 for records after the union pass
	CREATE TABLE IF NOT EXISTS beer_records (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		is_alias INTEGER NOT NULL DEFAULT 0,
		record_json TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_records_url ON beer_records(url);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL
	);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run with its links, raw records and failures in one
// transaction. Saving a run ID again replaces the earlier copy.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	steps, err := json.Marshal(run.PerformedSteps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	records := 0
	if run.Dataset != nil {
		records = run.Dataset.Len()
	}
	errMsg := run.ErrorMessage
	if errMsg == "" && run.Err != nil {
		errMsg = run.Err.Error()
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, seed_url, brewery_name, started_at, finished_at, status, error, steps, beer_links, records, failures)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.SeedURL,
		run.BreweryName,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Status(),
		errMsg,
		string(steps),
		len(run.BeerURLs),
		records,
		len(run.Failures),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, u := range run.BeerURLs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO beer_links (run_id, position, url) VALUES (?, ?, ?)`,
			run.ID, i, u,
		); err != nil {
			return fmt.Errorf("failed to insert beer link: %w", err)
		}
	}

	if run.Dataset != nil {
		i := 0
		for u, r := range run.Dataset.All() {
			data, mErr := json.Marshal(r)
			if mErr != nil {
				err = mErr
				return fmt.Errorf("failed to serialize record %s: %w", u, err)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO beer_records (run_id, position, url, is_alias, record_json) VALUES (?, ?, ?, ?, ?)`,
				run.ID, i, u, r.IsAlias(), string(data),
			); err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
			i++
		}
	}

	for _, f := range run.Failures {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, url, kind, message) VALUES (?, ?, ?, ?)`,
			run.ID, f.URL, string(f.Kind), f.Message,
		); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is the stored metadata of a run, without its records.
type RunSummary struct {
	ID          string
	SeedURL     string
	BreweryName string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	BeerLinks   int
	Records     int
	Failures    int
}

// ListRuns returns the most recent runs first. An empty brewery lists all
// breweries; a limit of 0 or less returns every run.
func (h *HistoryDB) ListRuns(ctx context.Context, brewery string, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, seed_url, brewery_name, started_at, finished_at, status, beer_links, records, failures
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if brewery != "" {
		query += " AND brewery_name = ?"
		args = append(args, brewery)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished string
		if err := rows.Scan(
			&s.ID,
			&s.SeedURL,
			&s.BreweryName,
			&started,
			&finished,
			&s.Status,
			&s.BeerLinks,
			&s.Records,
			&s.Failures,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		results = append(results, s)
	}
	return results, rows.Err()
}

// GetRun restores a run with its links, raw dataset and failures.
// It returns nil, nil when no run has the given ID.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run := &model.Run{ID: id}
	var started, finished, steps string

	err := h.db.QueryRowContext(ctx, `
	SELECT seed_url, brewery_name, started_at, finished_at, error, steps
	FROM runs WHERE id = ?
	`, id).Scan(&run.SeedURL, &run.BreweryName, &started, &finished, &run.ErrorMessage, &steps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(steps), &run.PerformedSteps); err != nil {
		return nil, fmt.Errorf("failed to parse steps: %w", err)
	}

	if run.BeerURLs, err = h.links(ctx, id); err != nil {
		return nil, err
	}
	if run.Dataset, err = h.dataset(ctx, id); err != nil {
		return nil, err
	}
	if run.Failures, err = h.failures(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (h *HistoryDB) links(ctx context.Context, runID string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT url FROM beer_links WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query beer links: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan beer link: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (h *HistoryDB) dataset(ctx context.Context, runID string) (*model.Dataset, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT url, record_json FROM beer_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	ds := model.NewDataset()
	for rows.Next() {
		var u, data string
		if err := rows.Scan(&u, &data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r := model.NewRecord()
		if err := r.UnmarshalJSON([]byte(data)); err != nil {
			return nil, fmt.Errorf("failed to parse record %s: %w", u, err)
		}
		ds.Put(u, r)
	}
	return ds, rows.Err()
}

func (h *HistoryDB) failures(ctx context.Context, runID string) ([]model.Failure, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT url, kind, message FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		var kind string
		if err := rows.Scan(&f.URL, &kind, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Kind = model.FailureKind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

// LatestRecord returns the most recently stored record for a beer URL
// across all runs, or nil when the URL was never extracted.
func (h *HistoryDB) LatestRecord(ctx context.Context, beerURL string) (*model.Record, error) {
	var data string
	err := h.db.QueryRowContext(ctx, `
	SELECT r.record_json FROM beer_records r
	JOIN runs ON runs.id = r.run_id
	WHERE r.url = ?
	ORDER BY runs.started_at DESC
	LIMIT 1
	`, beerURL).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	r := model.NewRecord()
	if err := r.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return r, nil
}

// DeleteRun removes a run and everything stored with it. It reports
// whether the run existed.
func (h *HistoryDB) DeleteRun(ctx context.Context, id string) (bool, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	return n > 0, nil
}

// formatTime stores times as RFC 3339 in UTC so that text ordering matches
// time ordering. The zero time is stored as "".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a stored timestamp and returns the zero time for
// "" or an unknown format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
