package core

import (
	"fmt"
	"os"

	"virag/internal/infra/persistence/memory"
	"virag/internal/infra/persistence/postgres"
	"virag/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenMemoryStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	VIRAG_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	VIRAG_SQLITE_PATH: path to sqlite file (default ./virag.db)
//	VIRAG_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenMemoryStore() (MemoryStore, error) {
	driver := os.Getenv("VIRAG_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		path := os.Getenv("VIRAG_SQLITE_PATH")
		return sqlite.NewStore(path)
	case StoragePostgres:
		dsn := os.Getenv("VIRAG_POSTGRES_DSN")
		return postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
