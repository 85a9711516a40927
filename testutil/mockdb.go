package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite database file and closes it when the test ends
func OpenSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open database %s: %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// QueryCount returns the single integer produced by query
func QueryCount(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to run %q: %v", query, err)
	}
	return n
}
