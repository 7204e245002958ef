// Package memory provides a mutex-guarded in-memory element memory store,
// suitable for tests and ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"virag/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.MemoryStore = (*Store)(nil)

// Store keeps element memory records in process memory. A secondary index by
// project identifier keeps project-scoped queries cheap.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ElementMemoryRecord
	byProj  map[string]map[string]struct{}
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.ElementMemoryRecord),
		byProj:  make(map[string]map[string]struct{}),
	}
}

// Get returns the record for memoryID when present.
func (s *Store) Get(_ context.Context, memoryID string) (domain.ElementMemoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[memoryID]
	return rec, ok, nil
}

// Put inserts or replaces the record keyed by its MemoryID.
func (s *Store) Put(_ context.Context, record domain.ElementMemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[record.MemoryID]; ok && prev.ProjectID != record.ProjectID {
		delete(s.byProj[prev.ProjectID], record.MemoryID)
	}
	s.records[record.MemoryID] = record
	idx, ok := s.byProj[record.ProjectID]
	if !ok {
		idx = make(map[string]struct{})
		s.byProj[record.ProjectID] = idx
	}
	idx[record.MemoryID] = struct{}{}
	return nil
}

// QueryByProject returns all records for projectID ordered by memory id.
func (s *Store) QueryByProject(_ context.Context, projectID string) ([]domain.ElementMemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byProj[projectID]
	out := make([]domain.ElementMemoryRecord, 0, len(idx))
	for id := range idx {
		out = append(out, s.records[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemoryID < out[j].MemoryID })
	return out, nil
}

// Delete removes the record for memoryID, reporting whether it existed.
func (s *Store) Delete(_ context.Context, memoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memoryID]
	if !ok {
		return false, nil
	}
	delete(s.records, memoryID)
	if idx, ok := s.byProj[rec.ProjectID]; ok {
		delete(idx, memoryID)
		if len(idx) == 0 {
			delete(s.byProj, rec.ProjectID)
		}
	}
	return true, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
