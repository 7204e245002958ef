// Package postgres provides a Postgres-backed element memory store with the
// same row-per-record layout as the sqlite backend, using JSONB payloads.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"virag/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.MemoryStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenMemoryStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/virag?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists element memory records to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN) and ensures the element memory table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS element_memory (
		memory_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure element_memory table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_element_memory_project ON element_memory(project_id)`); err != nil {
		return fmt.Errorf("ensure project index: %w", err)
	}
	return nil
}

// Get returns the record for memoryID when present.
func (s *Store) Get(ctx context.Context, memoryID string) (domain.ElementMemoryRecord, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM element_memory WHERE memory_id = $1`, memoryID).Scan(&payload)
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
		`INSERT INTO element_memory(memory_id,project_id,payload) VALUES($1,$2,$3)
		 ON CONFLICT(memory_id) DO UPDATE SET project_id=EXCLUDED.project_id, payload=EXCLUDED.payload`,
		record.MemoryID, record.ProjectID, payload); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// QueryByProject returns all records for projectID ordered by memory id.
func (s *Store) QueryByProject(ctx context.Context, projectID string) ([]domain.ElementMemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM element_memory WHERE project_id = $1 ORDER BY memory_id`, projectID)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM element_memory WHERE memory_id = $1`, memoryID)
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
