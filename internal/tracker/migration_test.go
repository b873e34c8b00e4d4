package tracker_test

import (
	"encoding/json"
	"errors"
	"testing"

	"caltrack/internal/testutil"
	"caltrack/internal/tracker"
)

var legacyGoals = tracker.GoalSettings{Calories: 1800, Protein: 120, Carbs: 200, Fat: 60}

// seedLegacyStore populates a store the way a pre-profile installation
// looks: unowned records and saved global goals.
func seedLegacyStore(t *testing.T, store tracker.Store) {
	t.Helper()

	records := []tracker.LogRecord{
		{Date: "2024-01-01", Name: "pasta", Calories: 500, MealType: tracker.MealDinner},
		{Date: "2024-01-01", Name: "yogurt", Calories: 300, MealType: tracker.MealSnack},
	}
	for _, r := range records {
		if _, err := store.CreateRecord(r); err != nil {
			t.Fatalf("CreateRecord() error = %v", err)
		}
	}
	if err := store.SaveGoals(nil, legacyGoals); err != nil {
		t.Fatalf("SaveGoals(nil) error = %v", err)
	}
}

func newCoordinator(store tracker.Store) *tracker.MigrationCoordinator {
	transfer := tracker.NewBulkTransfer(store, testutil.FixedClock(), tracker.NewNopLogger())
	return tracker.NewMigrationCoordinator(store, store, store, transfer, tracker.NewNopLogger())
}

func TestMigrationCoordinator_NeedsMigration(t *testing.T) {
	t.Run("true with legacy goals and no profiles", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedLegacyStore(t, store)

		needed, err := newCoordinator(store).NeedsMigration()
		if err != nil {
			t.Fatalf("NeedsMigration() error = %v", err)
		}
		if !needed {
			t.Error("NeedsMigration() = false, want true")
		}
	})

	t.Run("false on a fresh store", func(t *testing.T) {
		store := testutil.NewTestStore(t)

		needed, err := newCoordinator(store).NeedsMigration()
		if err != nil {
			t.Fatalf("NeedsMigration() error = %v", err)
		}
		if needed {
			t.Error("NeedsMigration() = true, want false")
		}
	})

	t.Run("false once a profile exists", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedLegacyStore(t, store)

		if _, err := store.CreateProfile("Alex", "1234"); err != nil {
			t.Fatalf("CreateProfile() error = %v", err)
		}

		needed, err := newCoordinator(store).NeedsMigration()
		if err != nil {
			t.Fatalf("NeedsMigration() error = %v", err)
		}
		if needed {
			t.Error("NeedsMigration() = true, want false")
		}
	})

	t.Run("false forever once the complete flag is set", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedLegacyStore(t, store)

		if err := store.SetMigrationComplete(); err != nil {
			t.Fatalf("SetMigrationComplete() error = %v", err)
		}

		needed, err := newCoordinator(store).NeedsMigration()
		if err != nil {
			t.Fatalf("NeedsMigration() error = %v", err)
		}
		if needed {
			t.Error("NeedsMigration() = true after completion, want false")
		}
	})
}

func TestMigrationCoordinator_Run(t *testing.T) {
	t.Run("migrates records, goals, backup and flag", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedLegacyStore(t, store)

		profile, err := store.CreateProfile("Alex", "1234")
		if err != nil {
			t.Fatalf("CreateProfile() error = %v", err)
		}

		if err := newCoordinator(store).Run(profile.ID); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		// Every record now belongs to the new profile.
		all, err := store.AllRecords()
		if err != nil {
			t.Fatalf("AllRecords() error = %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("AllRecords() = %d records, want 2", len(all))
		}
		for _, r := range all {
			if r.OwnerID == nil || *r.OwnerID != profile.ID {
				t.Errorf("record %s OwnerID = %v, want %s", r.ID, r.OwnerID, profile.ID)
			}
		}

		// The profile inherited the legacy goals; the legacy slot is intact.
		goals, err := store.Goals(&profile.ID)
		if err != nil {
			t.Fatalf("Goals() error = %v", err)
		}
		if goals != legacyGoals {
			t.Errorf("Goals() = %+v, want %+v", goals, legacyGoals)
		}
		hasLegacy, err := store.HasLegacyGoals()
		if err != nil {
			t.Fatalf("HasLegacyGoals() error = %v", err)
		}
		if !hasLegacy {
			t.Error("HasLegacyGoals() = false after migration, want true")
		}

		// The backup captures the pre-migration state: unowned records.
		backup, err := store.MigrationBackup()
		if err != nil {
			t.Fatalf("MigrationBackup() error = %v", err)
		}
		var doc tracker.ExportDocument
		if err := json.Unmarshal(backup, &doc); err != nil {
			t.Fatalf("backup is not a valid export document: %v", err)
		}
		if len(doc.Records) != 2 {
			t.Fatalf("backup has %d records, want 2", len(doc.Records))
		}
		for _, r := range doc.Records {
			if r.OwnerID != nil {
				t.Errorf("backup record %s OwnerID = %v, want nil", r.ID, *r.OwnerID)
			}
		}

		done, err := store.MigrationComplete()
		if err != nil {
			t.Fatalf("MigrationComplete() error = %v", err)
		}
		if !done {
			t.Error("MigrationComplete() = false after Run, want true")
		}
	})

	t.Run("failure keeps the flag unset and the backup intact", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		seedLegacyStore(t, store)

		profile, err := store.CreateProfile("Alex", "1234")
		if err != nil {
			t.Fatalf("CreateProfile() error = %v", err)
		}

		failing := &failingRegistry{ProfileRegistry: store}
		transfer := tracker.NewBulkTransfer(store, testutil.FixedClock(), tracker.NewNopLogger())
		coordinator := tracker.NewMigrationCoordinator(store, failing, store, transfer, tracker.NewNopLogger())

		err = coordinator.Run(profile.ID)
		if err == nil {
			t.Fatal("Run() error = nil, want copy-goals failure")
		}
		var migErr *tracker.MigrationError
		if !errors.As(err, &migErr) {
			t.Fatalf("Run() error = %v, want MigrationError", err)
		}
		if migErr.Step != "copy-goals" {
			t.Errorf("MigrationError.Step = %q, want copy-goals", migErr.Step)
		}

		// The flag stays unset, so the migration can be retried.
		done, err := store.MigrationComplete()
		if err != nil {
			t.Fatalf("MigrationComplete() error = %v", err)
		}
		if done {
			t.Error("MigrationComplete() = true after failed run, want false")
		}

		// The backup from the failed run is preserved.
		backup, err := store.MigrationBackup()
		if err != nil {
			t.Fatalf("MigrationBackup() error = %v", err)
		}
		if backup == nil {
			t.Error("MigrationBackup() = nil after failed run, want preserved backup")
		}

		// A retry against the real registry completes; reassignment is
		// idempotent so the already-moved records are not double counted.
		if err := newCoordinator(store).Run(profile.ID); err != nil {
			t.Fatalf("retry Run() error = %v", err)
		}
		goals, err := store.Goals(&profile.ID)
		if err != nil {
			t.Fatalf("Goals() error = %v", err)
		}
		if goals != legacyGoals {
			t.Errorf("Goals() after retry = %+v, want %+v", goals, legacyGoals)
		}
	})
}

// failingRegistry fails the goal copy step.
type failingRegistry struct {
	tracker.ProfileRegistry
}

func (f *failingRegistry) SaveGoals(ownerID *string, goals tracker.GoalSettings) error {
	return errors.New("disk full")
}
