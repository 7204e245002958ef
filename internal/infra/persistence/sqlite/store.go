// Package sqlite provides an embedded SQLite-backed element memory store.
// Records are stored one row per memory id with the full record serialized as
// a JSON payload.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"virag/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.MemoryStore = (*Store)(nil)

// Store persists element memory records to a single SQLite table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the database at path and ensures the
// element memory table exists. An empty path defaults to ./virag.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "virag.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS element_memory (
		memory_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create element_memory table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_element_memory_project ON element_memory(project_id)`); err != nil {
		return nil, fmt.Errorf("create project index: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Get returns the record for memoryID when present.
func (s *Store) Get(ctx context.Context, memoryID string) (domain.ElementMemoryRecord, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM element_memory WHERE memory_id = ?`, memoryID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ElementMemoryRecord{}, false, nil
	}
	if err != nil {
		return domain.ElementMemoryRecord{}, false, fmt.Errorf("select record: %w", err)
	}
	var rec domain.ElementMemoryRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.ElementMemoryRecord{}, false, fmt.Errorf("decode record: %w", err)
	}
	return rec, true, nil
}

// Put inserts or replaces the record keyed by its MemoryID.
func (s *Store) Put(ctx context.Context, record domain.ElementMemoryRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO element_memory(memory_id,project_id,payload) VALUES(?,?,?)
		 ON CONFLICT(memory_id) DO UPDATE SET project_id=excluded.project_id, payload=excluded.payload`,
		record.MemoryID, record.ProjectID, payload); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// QueryByProject returns all records for projectID ordered by memory id.
func (s *Store) QueryByProject(ctx context.Context, projectID string) ([]domain.ElementMemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM element_memory WHERE project_id = ? ORDER BY memory_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select project records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ElementMemoryRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec domain.ElementMemoryRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Delete removes the record for memoryID, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, memoryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM element_memory WHERE memory_id = ?`, memoryID)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
