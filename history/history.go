// Package history records benchmark comparisons in a SQLite database so runs
// against different extension builds can be compared later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/weiihann/hooktarget/bench"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	recorded_at       INTEGER NOT NULL,
	workload          TEXT NOT NULL,
	extension         TEXT NOT NULL,
	iterations        INTEGER NOT NULL,
	clean_elapsed_ns  INTEGER NOT NULL,
	hooked_elapsed_ns INTEGER NOT NULL,
	clean_alloc       INTEGER NOT NULL,
	hooked_alloc      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs(recorded_at);
`

// Run is a recorded comparison.
type Run struct {
	ID         string           `json:"id"`
	RecordedAt time.Time        `json:"recorded_at"`
	Comparison bench.Comparison `json:"comparison"`
}

// Store is a SQLite-backed run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores c and returns the generated run id.
func (s *Store) Record(ctx context.Context, c bench.Comparison) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, recorded_at, workload, extension, iterations,
			clean_elapsed_ns, hooked_elapsed_ns, clean_alloc, hooked_alloc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		s.now().UnixNano(),
		c.Workload,
		c.Extension,
		int64(c.Clean.Iterations),
		int64(c.Clean.Elapsed),
		int64(c.Hooked.Elapsed),
		int64(c.Clean.AllocBytes),
		int64(c.Hooked.AllocBytes),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	return id, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, recorded_at, workload, extension, iterations,
			clean_elapsed_ns, hooked_elapsed_ns, clean_alloc, hooked_alloc
		FROM runs
		ORDER BY recorded_at DESC, id`

	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			run                     Run
			recordedAt, iterations  int64
			cleanNs, hookedNs       int64
			cleanAlloc, hookedAlloc int64
		)

		if err := rows.Scan(
			&run.ID, &recordedAt,
			&run.Comparison.Workload, &run.Comparison.Extension,
			&iterations, &cleanNs, &hookedNs, &cleanAlloc, &hookedAlloc,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.RecordedAt = time.Unix(0, recordedAt)
		run.Comparison.Clean = bench.Result{
			Phase:      bench.Clean,
			Iterations: uint64(iterations),
			Elapsed:    time.Duration(cleanNs),
			AllocBytes: uint64(cleanAlloc),
		}
		run.Comparison.Hooked = bench.Result{
			Phase:      bench.Hooked,
			Iterations: uint64(iterations),
			Elapsed:    time.Duration(hookedNs),
			AllocBytes: uint64(hookedAlloc),
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}
