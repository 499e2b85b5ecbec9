// Package testing provides database helpers for tests.
package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/aristath/fundoverlap/internal/database"
	_ "github.com/mattn/go-sqlite3"
)

// NewTestDB creates a file-backed database under t.TempDir() with its schema
// applied. It is closed automatically when the test ends.
//
// Supported names: database.NameCatalog, database.NameClientData.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}

// NewMemoryDB opens an in-memory SQLite connection with the named schema applied.
// The pool is pinned to one connection so every query sees the same database.
func NewMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	schema, err := database.Schema(name)
	if err != nil {
		t.Fatalf("Failed to load schema %s: %v", name, err)
	}
	if err := database.ApplySchema(conn, schema); err != nil {
		t.Fatalf("Failed to apply schema %s: %v", name, err)
	}

	return conn
}
