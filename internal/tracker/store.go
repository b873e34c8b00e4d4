package tracker

// RecordStore provides durable CRUD over log records with two access
// patterns: all records for a date with no owner (legacy), and all records
// for a date scoped to one owner. Implementations must keep the date and
// (owner, date) lookups indexed; a query issued after a completed write
// always observes that write.
type RecordStore interface {
	// CreateRecord validates the record, assigns a fresh unique id and
	// persists it. The stored record, including the id, is returned.
	CreateRecord(record LogRecord) (LogRecord, error)

	// UpdateRecord replaces the stored record wholesale. The record must
	// carry an existing id; an unknown id returns ErrNotFound rather than
	// silently inserting.
	UpdateRecord(record LogRecord) error

	// DeleteRecord removes a record by id. Deleting an unknown id is not
	// an error.
	DeleteRecord(id string) error

	// RecordByID returns a single record, or ErrNotFound. Lets callers load
	// the current state of an entry before a wholesale UpdateRecord.
	RecordByID(id string) (LogRecord, error)

	// RecordsByDate returns all records for the date that have no owner,
	// in insertion order.
	RecordsByDate(date string) ([]LogRecord, error)

	// RecordsByOwnerAndDate returns all records matching both fields, in
	// insertion order. A nil ownerID behaves as RecordsByDate.
	RecordsByOwnerAndDate(ownerID *string, date string) ([]LogRecord, error)

	// AllRecords returns every record regardless of owner or date. Used by
	// bulk export and migration only.
	AllRecords() ([]LogRecord, error)

	// UpsertRecord inserts the record, or overwrites an existing record
	// with the same id. Used by bulk import only.
	UpsertRecord(record LogRecord) error

	// ReassignUnowned sets the owner on every record that has none and
	// returns the number changed. Safe to re-run: once no unowned records
	// remain it is a no-op returning 0.
	ReassignUnowned(ownerID string) (int, error)

	// DeleteRecordsForOwner removes every record belonging to the owner
	// and returns the number removed.
	DeleteRecordsForOwner(ownerID string) (int, error)
}

// ProfileRegistry stores profile identities, verifies PINs, tracks the
// active selection and holds per-owner goal settings.
type ProfileRegistry interface {
	Profiles() ([]Profile, error)

	// CreateProfile validates the name and PIN, assigns a fresh id and
	// persists the profile.
	CreateProfile(name, pin string) (Profile, error)

	// DeleteProfile removes the profile and its goal settings. It does NOT
	// delete the profile's records; callers sequence that separately via
	// RecordStore.DeleteRecordsForOwner, records first.
	DeleteProfile(id string) error

	// VerifyPin reports whether a profile with the id exists and its stored
	// PIN equals the supplied one. A mismatch is a normal false result, not
	// an error.
	VerifyPin(id, pin string) (bool, error)

	ActiveProfileID() (*string, error)

	// SetActiveProfileID sets the active selection. A non-nil id must
	// reference an existing profile.
	SetActiveProfileID(id *string) error

	// Goals returns, in order of precedence: owner-scoped goals if saved,
	// else the legacy global goals if saved, else DefaultGoals.
	Goals(ownerID *string) (GoalSettings, error)

	// SaveGoals writes to the owner-scoped slot, or to the legacy global
	// slot when ownerID is nil.
	SaveGoals(ownerID *string, goals GoalSettings) error

	// HasLegacyGoals reports whether the legacy global slot has ever been
	// written. Used by the migration applicability check.
	HasLegacyGoals() (bool, error)
}

// MigrationState holds the one-shot migration flag and the single
// pre-migration backup slot.
type MigrationState interface {
	MigrationComplete() (bool, error)

	// SetMigrationComplete sets the flag. Once set it is never unset.
	SetMigrationComplete() error

	SaveMigrationBackup(doc []byte) error

	// MigrationBackup returns the stored backup document, or nil if none
	// was ever saved.
	MigrationBackup() ([]byte, error)
}

// Store is the full persistence surface backed by one embedded database.
type Store interface {
	RecordStore
	ProfileRegistry
	MigrationState

	Close() error
}
