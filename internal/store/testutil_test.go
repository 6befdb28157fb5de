// Package store_test contains integration tests for the record store.
//
// All test setup uses db.GetSchemaSQL() so tests run against the authoritative
// schema. Do not hardcode CREATE TABLE statements in test files.
package store_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/crew/internal/db"
	"github.com/example/crew/internal/store"
)

// setupTestStore creates a store over an in-memory database with the
// authoritative schema.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return store.New(testDB)
}

// saveTestRecord is a helper that saves a record and fails the test on error.
func saveTestRecord(t *testing.T, s *store.Store, namespace, title, summary string) *store.Record {
	t.Helper()

	rec := &store.Record{
		Namespace: namespace,
		Title:     title,
		Summary:   summary,
	}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return rec
}
