package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caltrack/internal/config"
	"caltrack/internal/tracker"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		BaseDir:    base,
		LogDir:     filepath.Join(base, "log"),
		Database:   config.DatabaseConfig{Type: "memory"},
		Vault:      config.VaultConfig{Type: "memory", Name: "test"},
		Encryption: config.EncryptionConfig{Type: "test"},
	}

	a, err := NewApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func TestApp_ExportImportFile(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.Service().LogMeal(tracker.LogMealInput{Name: "oatmeal", Calories: 350, MealType: tracker.MealBreakfast}); err != nil {
		t.Fatalf("LogMeal() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "export.json")
	if err := a.Export(out, false); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !strings.Contains(string(data), "oatmeal") {
		t.Errorf("export missing record: %q", data)
	}

	// Import into a second app with its own empty store.
	b := newTestApp(t)
	applied, err := b.Import(out, "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("Import() applied = %d, want 1", applied)
	}
}

func TestApp_EncryptedExportImport(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.Service().LogMeal(tracker.LogMealInput{Name: "salad", Calories: 300, MealType: tracker.MealLunch}); err != nil {
		t.Fatalf("LogMeal() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "export.json.age")
	if err := a.Export(out, true); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// The test encryptor prepends a binary header, so the file is no
	// longer a bare JSON document.
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if strings.HasPrefix(string(data), "{") {
		t.Error("encrypted export still starts like plain JSON")
	}

	b := newTestApp(t)
	applied, err := b.Import(out, "passphrase")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("Import() applied = %d, want 1", applied)
	}
}

func TestApp_BackupRestore(t *testing.T) {
	a := newTestApp(t)

	record, err := a.Service().LogMeal(tracker.LogMealInput{Name: "eggs", Calories: 150, MealType: tracker.MealBreakfast})
	if err != nil {
		t.Fatalf("LogMeal() error = %v", err)
	}

	name, err := a.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if !strings.HasPrefix(name, "caltrack-") || !strings.HasSuffix(name, ".json") {
		t.Errorf("backup name = %q, want caltrack-<ts>.json", name)
	}

	names, err := a.Backups()
	if err != nil {
		t.Fatalf("Backups() error = %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("Backups() = %v, want [%s]", names, name)
	}

	// Wipe the entry, then restore it from the vault.
	if err := a.Service().RemoveMeal(record.ID); err != nil {
		t.Fatalf("RemoveMeal() error = %v", err)
	}

	applied, err := a.Restore(name)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("Restore() applied = %d, want 1", applied)
	}

	restored, err := a.Store().RecordByID(record.ID)
	if err != nil {
		t.Fatalf("RecordByID() error = %v", err)
	}
	if restored.Name != "eggs" {
		t.Errorf("restored record = %+v, want eggs", restored)
	}
}

func TestApp_NeedsMigration(t *testing.T) {
	a := newTestApp(t)

	needed, err := a.NeedsMigration()
	if err != nil {
		t.Fatalf("NeedsMigration() error = %v", err)
	}
	if needed {
		t.Error("NeedsMigration() = true on fresh app, want false")
	}

	if err := a.Service().SaveActiveGoals(tracker.GoalSettings{Calories: 1800, Protein: 120, Carbs: 200, Fat: 60}); err != nil {
		t.Fatalf("SaveActiveGoals() error = %v", err)
	}

	needed, err = a.NeedsMigration()
	if err != nil {
		t.Fatalf("NeedsMigration() error = %v", err)
	}
	if !needed {
		t.Error("NeedsMigration() = false with legacy goals and no profiles, want true")
	}
}
