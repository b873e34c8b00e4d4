package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caltrack/internal/database/migrations"
	"caltrack/internal/tracker"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// State keys in the app_state table.
const (
	activeProfileKey     = "active_profile"
	migrationCompleteKey = "migration_complete"
	migrationBackupKey   = "migration_backup"
)

// legacyOwnerKey is the reserved settings row for goals saved before
// multi-profile support existed.
const legacyOwnerKey = ""

// timeLayout is how timestamps are stored; nanosecond precision so that
// records survive an export/import round trip unchanged.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements tracker.Store on an embedded SQLite database.
// The date and (owner_id, date) lookups are served by native indexes, so
// index and primary data can never disagree from a caller's point of view.
type SQLiteStore struct {
	db    *sql.DB
	clock tracker.Clock
	idgen tracker.IDGenerator
	path  string
}

// NewSQLiteStore opens a store at path (":memory:" for an in-memory
// database). clock and idgen may be nil, in which case the real clock and
// the timestamp id generator are used.
func NewSQLiteStore(path string, clock tracker.Clock, idgen tracker.IDGenerator) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	s := NewSQLiteStoreFromDB(db, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, clock tracker.Clock, idgen tracker.IDGenerator) *SQLiteStore {
	if clock == nil {
		clock = tracker.RealClock{}
	}
	if idgen == nil {
		idgen = tracker.NewTimestampIDGenerator(clock)
	}
	return &SQLiteStore{db: db, clock: clock, idgen: idgen}
}

// OpenConnection opens and configures a SQLite connection. The connection
// pool is capped at one connection: the store has a single logical writer,
// and an in-memory database exists per connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate brings the database schema to the latest version. Run once at
// open, before any other operation.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func storageErr(op string, err error) error {
	return &tracker.StorageError{Op: op, Err: err}
}

// Record operations

func (s *SQLiteStore) CreateRecord(record tracker.LogRecord) (tracker.LogRecord, error) {
	if err := record.Validate(); err != nil {
		return tracker.LogRecord{}, err
	}

	record.ID = s.idgen.New()
	record.CreatedAt = s.clock.Now()

	_, err := s.db.Exec(`
INSERT INTO records(id, owner_id, date, name, calories, protein, carbs, fat, meal_type, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, ownerArg(record.OwnerID), record.Date, record.Name,
		record.Calories, record.Protein, record.Carbs, record.Fat,
		string(record.MealType), record.CreatedAt.Format(timeLayout))
	if err != nil {
		return tracker.LogRecord{}, storageErr("insert record", err)
	}
	return record, nil
}

func (s *SQLiteStore) UpdateRecord(record tracker.LogRecord) error {
	if record.ID == "" {
		return &tracker.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := record.Validate(); err != nil {
		return err
	}

	res, err := s.db.Exec(`
UPDATE records
SET owner_id = ?, date = ?, name = ?, calories = ?, protein = ?, carbs = ?, fat = ?, meal_type = ?, created_at = ?
WHERE id = ?`,
		ownerArg(record.OwnerID), record.Date, record.Name,
		record.Calories, record.Protein, record.Carbs, record.Fat,
		string(record.MealType), record.CreatedAt.Format(timeLayout), record.ID)
	if err != nil {
		return storageErr("update record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("update record", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", record.ID, tracker.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteRecord(id string) error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return storageErr("delete record", err)
	}
	return nil
}

const recordColumns = `id, owner_id, date, name, calories, protein, carbs, fat, meal_type, created_at`

func (s *SQLiteStore) RecordByID(id string) (tracker.LogRecord, error) {
	records, err := s.queryRecords(`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	if err != nil {
		return tracker.LogRecord{}, err
	}
	if len(records) == 0 {
		return tracker.LogRecord{}, fmt.Errorf("record %s: %w", id, tracker.ErrNotFound)
	}
	return records[0], nil
}

func (s *SQLiteStore) RecordsByDate(date string) ([]tracker.LogRecord, error) {
	return s.queryRecords(`
SELECT `+recordColumns+` FROM records
WHERE date = ? AND owner_id IS NULL
ORDER BY rowid`, date)
}

func (s *SQLiteStore) RecordsByOwnerAndDate(ownerID *string, date string) ([]tracker.LogRecord, error) {
	if ownerID == nil {
		return s.RecordsByDate(date)
	}
	return s.queryRecords(`
SELECT `+recordColumns+` FROM records
WHERE owner_id = ? AND date = ?
ORDER BY rowid`, *ownerID, date)
}

func (s *SQLiteStore) AllRecords() ([]tracker.LogRecord, error) {
	return s.queryRecords(`SELECT ` + recordColumns + ` FROM records ORDER BY rowid`)
}

func (s *SQLiteStore) UpsertRecord(record tracker.LogRecord) error {
	if record.ID == "" {
		return &tracker.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := record.Validate(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
INSERT INTO records(id, owner_id, date, name, calories, protein, carbs, fat, meal_type, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  owner_id = excluded.owner_id,
  date = excluded.date,
  name = excluded.name,
  calories = excluded.calories,
  protein = excluded.protein,
  carbs = excluded.carbs,
  fat = excluded.fat,
  meal_type = excluded.meal_type,
  created_at = excluded.created_at`,
		record.ID, ownerArg(record.OwnerID), record.Date, record.Name,
		record.Calories, record.Protein, record.Carbs, record.Fat,
		string(record.MealType), record.CreatedAt.Format(timeLayout))
	if err != nil {
		return storageErr("upsert record", err)
	}
	return nil
}

func (s *SQLiteStore) ReassignUnowned(ownerID string) (int, error) {
	res, err := s.db.Exec(`UPDATE records SET owner_id = ? WHERE owner_id IS NULL`, ownerID)
	if err != nil {
		return 0, storageErr("reassign unowned records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("reassign unowned records", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) DeleteRecordsForOwner(ownerID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, storageErr("delete records for owner", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete records for owner", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) queryRecords(query string, args ...any) ([]tracker.LogRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query records", err)
	}
	defer rows.Close()

	records := make([]tracker.LogRecord, 0)
	for rows.Next() {
		var r tracker.LogRecord
		var owner sql.NullString
		var mealType, createdAt string
		if err := rows.Scan(&r.ID, &owner, &r.Date, &r.Name, &r.Calories, &r.Protein, &r.Carbs, &r.Fat, &mealType, &createdAt); err != nil {
			return nil, storageErr("scan record", err)
		}
		if owner.Valid {
			v := owner.String
			r.OwnerID = &v
		}
		r.MealType = tracker.MealType(mealType)
		created, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, storageErr("parse record timestamp", err)
		}
		r.CreatedAt = created
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate records", err)
	}
	return records, nil
}

func ownerArg(ownerID *string) any {
	if ownerID == nil {
		return nil
	}
	return *ownerID
}

// Profile operations

func (s *SQLiteStore) Profiles() ([]tracker.Profile, error) {
	rows, err := s.db.Query(`SELECT id, name, pin, created_at FROM profiles ORDER BY rowid`)
	if err != nil {
		return nil, storageErr("query profiles", err)
	}
	defer rows.Close()

	profiles := make([]tracker.Profile, 0)
	for rows.Next() {
		var p tracker.Profile
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.PIN, &createdAt); err != nil {
			return nil, storageErr("scan profile", err)
		}
		created, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, storageErr("parse profile timestamp", err)
		}
		p.CreatedAt = created
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate profiles", err)
	}
	return profiles, nil
}

func (s *SQLiteStore) CreateProfile(name, pin string) (tracker.Profile, error) {
	if err := tracker.ValidateProfileInput(name, pin); err != nil {
		return tracker.Profile{}, err
	}

	profile := tracker.Profile{
		ID:        s.idgen.New(),
		Name:      name,
		PIN:       pin,
		CreatedAt: s.clock.Now(),
	}
	_, err := s.db.Exec(`INSERT INTO profiles(id, name, pin, created_at) VALUES(?, ?, ?, ?)`,
		profile.ID, profile.Name, profile.PIN, profile.CreatedAt.Format(timeLayout))
	if err != nil {
		return tracker.Profile{}, storageErr("insert profile", err)
	}
	return profile, nil
}

// DeleteProfile removes the profile, its goal settings and, if it was the
// active selection, the selection itself, in one transaction. The profile's
// records are untouched; callers delete those first.
func (s *SQLiteStore) DeleteProfile(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("delete profile", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete profile", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete profile", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", id, tracker.ErrNotFound)
	}

	if _, err := tx.Exec(`DELETE FROM settings WHERE owner_id = ?`, id); err != nil {
		return storageErr("delete profile settings", err)
	}
	if _, err := tx.Exec(`DELETE FROM app_state WHERE key = ? AND value = ?`, activeProfileKey, id); err != nil {
		return storageErr("clear active selection", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("delete profile", err)
	}
	return nil
}

func (s *SQLiteStore) VerifyPin(id, pin string) (bool, error) {
	var stored string
	err := s.db.QueryRow(`SELECT pin FROM profiles WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("verify pin", err)
	}
	return stored == pin, nil
}

func (s *SQLiteStore) ActiveProfileID() (*string, error) {
	value, err := s.stateValue(activeProfileKey)
	if err != nil {
		return nil, err
	}
	if value == nil || *value == "" {
		return nil, nil
	}
	return value, nil
}

func (s *SQLiteStore) SetActiveProfileID(id *string) error {
	if id == nil {
		if _, err := s.db.Exec(`DELETE FROM app_state WHERE key = ?`, activeProfileKey); err != nil {
			return storageErr("clear active selection", err)
		}
		return nil
	}

	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM profiles WHERE id = ?`, *id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("profile %s: %w", *id, tracker.ErrNotFound)
	}
	if err != nil {
		return storageErr("set active selection", err)
	}
	return s.setStateValue(activeProfileKey, *id)
}

// Goal settings

func (s *SQLiteStore) Goals(ownerID *string) (tracker.GoalSettings, error) {
	if ownerID != nil {
		goals, found, err := s.goalsForKey(*ownerID)
		if err != nil {
			return tracker.GoalSettings{}, err
		}
		if found {
			return goals, nil
		}
	}

	goals, found, err := s.goalsForKey(legacyOwnerKey)
	if err != nil {
		return tracker.GoalSettings{}, err
	}
	if found {
		return goals, nil
	}
	return tracker.DefaultGoals(), nil
}

func (s *SQLiteStore) goalsForKey(key string) (tracker.GoalSettings, bool, error) {
	var g tracker.GoalSettings
	err := s.db.QueryRow(`SELECT calories, protein, carbs, fat FROM settings WHERE owner_id = ?`, key).
		Scan(&g.Calories, &g.Protein, &g.Carbs, &g.Fat)
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.GoalSettings{}, false, nil
	}
	if err != nil {
		return tracker.GoalSettings{}, false, storageErr("query goals", err)
	}
	return g, true, nil
}

func (s *SQLiteStore) SaveGoals(ownerID *string, goals tracker.GoalSettings) error {
	if err := goals.Validate(); err != nil {
		return err
	}

	key := legacyOwnerKey
	if ownerID != nil {
		key = *ownerID
	}
	_, err := s.db.Exec(`
INSERT INTO settings(owner_id, calories, protein, carbs, fat, updated_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(owner_id) DO UPDATE SET
  calories = excluded.calories,
  protein = excluded.protein,
  carbs = excluded.carbs,
  fat = excluded.fat,
  updated_at = excluded.updated_at`,
		key, goals.Calories, goals.Protein, goals.Carbs, goals.Fat,
		s.clock.Now().Format(timeLayout))
	if err != nil {
		return storageErr("save goals", err)
	}
	return nil
}

func (s *SQLiteStore) HasLegacyGoals() (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM settings WHERE owner_id = ?`, legacyOwnerKey).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("check legacy goals", err)
	}
	return true, nil
}

// Migration state

func (s *SQLiteStore) MigrationComplete() (bool, error) {
	value, err := s.stateValue(migrationCompleteKey)
	if err != nil {
		return false, err
	}
	return value != nil && *value == "1", nil
}

func (s *SQLiteStore) SetMigrationComplete() error {
	return s.setStateValue(migrationCompleteKey, "1")
}

func (s *SQLiteStore) SaveMigrationBackup(doc []byte) error {
	return s.setStateValue(migrationBackupKey, string(doc))
}

func (s *SQLiteStore) MigrationBackup() ([]byte, error) {
	value, err := s.stateValue(migrationBackupKey)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return []byte(*value), nil
}

// app_state helpers

func (s *SQLiteStore) stateValue(key string) (*string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query app state", err)
	}
	return &value, nil
}

func (s *SQLiteStore) setStateValue(key, value string) error {
	_, err := s.db.Exec(`
INSERT INTO app_state(key, value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.clock.Now().Format(timeLayout))
	if err != nil {
		return storageErr("write app state", err)
	}
	return nil
}

// Compile-time check that SQLiteStore implements the full store surface.
var _ tracker.Store = (*SQLiteStore)(nil)
