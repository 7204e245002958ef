package core

import (
	"path/filepath"
	"strings"
	"testing"

	"virag/internal/infra/persistence/memory"
	"virag/internal/infra/persistence/sqlite"
)

func TestOpenMemoryStoreMemoryDriver(t *testing.T) {
	t.Setenv("VIRAG_STORAGE_DRIVER", "memory")

	store, err := OpenMemoryStore()
	if err != nil {
		t.Fatalf("OpenMemoryStore: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenMemoryStoreSQLiteDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elements.db")
	t.Setenv("VIRAG_STORAGE_DRIVER", "sqlite")
	t.Setenv("VIRAG_SQLITE_PATH", path)

	store, err := OpenMemoryStore()
	if err != nil {
		t.Fatalf("OpenMemoryStore: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	defer sqliteStore.Close()
	if sqliteStore.Path() != path {
		t.Fatalf("expected path %s, got %s", path, sqliteStore.Path())
	}
}

func TestOpenMemoryStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv("VIRAG_STORAGE_DRIVER", "")
	t.Setenv("VIRAG_SQLITE_PATH", filepath.Join(t.TempDir(), "default.db"))

	store, err := OpenMemoryStore()
	if err != nil {
		t.Fatalf("OpenMemoryStore: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	sqliteStore.Close()
}

func TestOpenMemoryStoreUnknownDriver(t *testing.T) {
	t.Setenv("VIRAG_STORAGE_DRIVER", "cassandra")

	_, err := OpenMemoryStore()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "cassandra") {
		t.Fatalf("error should name the driver: %v", err)
	}
}
