package domain

import "context"

// MemoryStore is a minimal abstraction over durable key-value backends for
// element memory records. Keys follow MemoryID; a secondary index by project
// backs QueryByProject.
type MemoryStore interface {
	// Get returns the record for memoryID. The boolean reports existence;
	// the error reports backend failure only.
	Get(ctx context.Context, memoryID string) (ElementMemoryRecord, bool, error)
	// Put creates or replaces a record keyed by its MemoryID.
	Put(ctx context.Context, record ElementMemoryRecord) error
	// QueryByProject returns every record of a project, ordered by element type.
	QueryByProject(ctx context.Context, projectID string) ([]ElementMemoryRecord, error)
	// Delete removes a record. Returns (false, nil) if not found.
	Delete(ctx context.Context, memoryID string) (bool, error)
}
