package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	repository  TEXT NOT NULL,
	watermark   INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	destination TEXT NOT NULL,
	resources   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_repository_started ON runs (repository, started_at);
`

// SQLiteStore keeps runs in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't handle multiple writers well

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// unixNano maps the zero time to 0 so it round-trips
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	if run.Repository == "" {
		return fmt.Errorf("run has no repository")
	}
	resources, err := json.Marshal(run.Resources)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, repository, watermark, started_at, finished_at, succeeded, destination, resources)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Repository, unixNano(run.Watermark), unixNano(run.StartedAt), unixNano(run.FinishedAt),
		run.Succeeded, run.DestinationRoot, string(resources),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

const selectRuns = `SELECT id, repository, watermark, started_at, finished_at, succeeded, destination, resources FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                          Run
		watermark, started, finished int64
		resources                    string
	)
	if err := row.Scan(&run.ID, &run.Repository, &watermark, &started, &finished,
		&run.Succeeded, &run.DestinationRoot, &resources); err != nil {
		return Run{}, err
	}
	run.Watermark = fromUnixNano(watermark)
	run.StartedAt = fromUnixNano(started)
	run.FinishedAt = fromUnixNano(finished)
	if err := json.Unmarshal([]byte(resources), &run.Resources); err != nil {
		return Run{}, fmt.Errorf("decoding resources of run %s: %w", run.ID, err)
	}
	return run, nil
}

func (s *SQLiteStore) LastSuccessful(ctx context.Context, repository string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		selectRuns+` WHERE repository = ? AND succeeded = 1 ORDER BY started_at DESC LIMIT 1`, repository)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, repository)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) List(ctx context.Context, repository string, limit int) ([]Run, error) {
	query := selectRuns
	var args []any
	if repository != "" {
		query += ` WHERE repository = ?`
		args = append(args, repository)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
