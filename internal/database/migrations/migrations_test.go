package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"records", "settings", "app_state", "profiles", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}

	// Both record indexes must exist
	indexes := []string{"idx_records_date", "idx_records_owner_date"}
	for _, index := range indexes {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s was not created: %v", index, err)
		}
	}
}

func TestCheckStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Fresh database should need migration
	err := CheckStatus(db)
	if err == nil {
		t.Error("CheckStatus() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	err := CheckStatus(db)
	if err != nil {
		t.Errorf("CheckStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after double migration returned error: %v", err)
	}
}

func TestMigrateTo_SingleUserFixture(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Bring the database to the single-user layout and populate it the way
	// a pre-profile installation would look.
	if err := MigrateTo(db, 1); err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO records (id, date, name, calories, protein, carbs, fat, meal_type, created_at)
		VALUES ('r-1', '2024-01-01', 'toast', 200, 5, 30, 4, 'breakfast', '2024-01-01T08:00:00Z')`)
	if err != nil {
		t.Fatalf("Failed to insert v1 record: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO settings (owner_id, calories, protein, carbs, fat, updated_at)
		VALUES ('', 1800, 120, 200, 60, '2024-01-01T08:00:00Z')`)
	if err != nil {
		t.Fatalf("Failed to insert v1 settings: %v", err)
	}

	// Migrate to the multi-profile layout.
	if err := MigrateTo(db, 2); err != nil {
		t.Fatalf("MigrateTo(2) failed: %v", err)
	}

	// The existing record survives with a NULL owner.
	var owner sql.NullString
	var calories int
	err = db.QueryRow("SELECT owner_id, calories FROM records WHERE id = 'r-1'").Scan(&owner, &calories)
	if err != nil {
		t.Fatalf("Failed to read migrated record: %v", err)
	}
	if owner.Valid {
		t.Errorf("owner_id = %q, want NULL", owner.String)
	}
	if calories != 200 {
		t.Errorf("calories = %d, want 200", calories)
	}

	// The legacy goal row is untouched.
	var goalCalories int
	err = db.QueryRow("SELECT calories FROM settings WHERE owner_id = ''").Scan(&goalCalories)
	if err != nil {
		t.Fatalf("Failed to read legacy settings: %v", err)
	}
	if goalCalories != 1800 {
		t.Errorf("legacy goal calories = %d, want 1800", goalCalories)
	}

	// And the profiles table is now available.
	_, err = db.Exec(`
		INSERT INTO profiles (id, name, pin, created_at)
		VALUES ('p-1', 'Alex', '1234', '2024-01-02T08:00:00Z')`)
	if err != nil {
		t.Errorf("Failed to insert profile after migration: %v", err)
	}
}

func TestSchema_MealTypeConstraint(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO records (id, date, name, calories, meal_type, created_at)
		VALUES ('r-1', '2024-01-01', 'mystery', 100, 'brunch', '2024-01-01T08:00:00Z')`)
	if err == nil {
		t.Error("Expected CHECK constraint violation for unknown meal_type, but insert succeeded")
	}
}

func TestSchema_NegativeCaloriesRejected(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO records (id, date, name, calories, meal_type, created_at)
		VALUES ('r-1', '2024-01-01', 'antifood', -50, 'snack', '2024-01-01T08:00:00Z')`)
	if err == nil {
		t.Error("Expected CHECK constraint violation for negative calories, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	return db
}
