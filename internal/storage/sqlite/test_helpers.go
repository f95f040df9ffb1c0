package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a temporary database with the snapshot schema applied
// from the migrations directory, so tests cannot drift from the real schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaPath := filepath.Join("..", "..", "..", "migrations", "000001_create_bg_snapshots.up.sql")
	schemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}
