package testutil

import (
	"testing"

	"caltrack/internal/database"
	"caltrack/internal/database/migrations"
	"caltrack/internal/tracker"
)

// NewTestStore creates an in-memory SQLite store with the full schema
// applied, using a fixed clock and sequential IDs. The store is closed
// automatically when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	return NewTestStoreWith(t, FixedClock(), NewStubIDGenerator())
}

// NewTestStoreWith creates an in-memory store with the given clock and ID
// generator.
func NewTestStoreWith(t *testing.T, clock tracker.Clock, idgen tracker.IDGenerator) *database.SQLiteStore {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB, clock, idgen)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
