// Package sqlite provides the SQLite-backed record store holding raw
// fetched articles and run summaries.
package sqlite

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

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
	"github.com/marrow-labs/biblio-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RecordStore = (*Store)(nil)

// schema creates the tables on first open. Records are immutable, so the
// only write paths are INSERT OR IGNORE and the append-only runs table.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	xml        BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	counts      TEXT NOT NULL
);
`

// Store is the SQLite record store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the record database at the given path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty path: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create data directory: %w", err)
	}

	// WAL mode so the processing pipeline can read while a fetch writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Put stores a fetched record. Re-storing an existing ID is a no-op.
func (s *Store) Put(ctx context.Context, rec domain.SourceRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("sqlite: empty record ID: %w", domain.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO records (id, xml, fetched_at) VALUES (?, ?, ?)`,
		rec.ID, rec.XML, rec.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, xml, fetched_at FROM records WHERE id = ?`, id)

	var (
		rec     domain.SourceRecord
		fetched int64
	)
	if err := row.Scan(&rec.ID, &rec.XML, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("sqlite: get record %s: %w", id, err)
	}
	rec.FetchedAt = time.Unix(fetched, 0)
	return &rec, nil
}

// Walk calls fn for every stored record in ID order.
func (s *Store) Walk(ctx context.Context, fn func(domain.SourceRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, xml, fetched_at FROM records ORDER BY id`)
	if err != nil {
		return fmt.Errorf("sqlite: list records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     domain.SourceRecord
			fetched int64
		)
		if err := rows.Scan(&rec.ID, &rec.XML, &fetched); err != nil {
			return fmt.Errorf("sqlite: scan record: %w", err)
		}
		rec.FetchedAt = time.Unix(fetched, 0)

		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count records: %w", err)
	}
	return n, nil
}

// SaveRun appends a run summary.
func (s *Store) SaveRun(ctx context.Context, run domain.RunSummary) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("sqlite: encode run counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (kind, started_at, finished_at, counts) VALUES (?, ?, ?, ?)`,
		run.Kind, run.StartedAt.Unix(), run.FinishedAt.Unix(), string(counts),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}
	return nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, started_at, finished_at, counts FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var (
			run               domain.RunSummary
			started, finished int64
			counts            string
		)
		if err := rows.Scan(&run.Kind, &started, &finished, &counts); err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0)
		run.FinishedAt = time.Unix(finished, 0)
		if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
			return nil, fmt.Errorf("sqlite: decode run counts: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
