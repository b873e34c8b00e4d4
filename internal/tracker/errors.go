package tracker

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references an id that does not
// exist. Update surfaces this rather than silently upserting.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input to a write operation. It is
// surfaced before any durable write is attempted, so a validation failure
// is never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps a failure of the underlying storage medium. The store
// never retries or swallows these; they propagate to the caller for
// user-visible handling.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MigrationError reports a failure during the one-time profile migration.
// The migration-complete flag is never set on failure, so the migration
// stays retryable, and the pre-migration backup written in step one is
// preserved.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration step %s: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
