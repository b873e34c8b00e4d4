package tracker

import "fmt"

// MigrationCoordinator performs the one-time transition from the legacy
// single-user layout (unowned records, global goals, no profiles) to the
// multi-profile layout. It runs when the first profile is created on a
// device that has legacy data.
//
// The protocol is ordered for recoverability: a full backup is written
// before any mutation, reassignment is idempotent, and the goal copy
// overwrites with the same source on retry. The complete flag is only set
// after every step succeeds, so a failed migration stays retryable.
type MigrationCoordinator struct {
	records  RecordStore
	registry ProfileRegistry
	state    MigrationState
	transfer *BulkTransfer
	logger   Logger
}

func NewMigrationCoordinator(records RecordStore, registry ProfileRegistry, state MigrationState, transfer *BulkTransfer, logger Logger) *MigrationCoordinator {
	return &MigrationCoordinator{
		records:  records,
		registry: registry,
		state:    state,
		transfer: transfer,
		logger:   logger,
	}
}

// NeedsMigration reports whether legacy data is waiting for its first
// profile: legacy global goals exist, no profile is registered, and the
// complete flag has never been set. Once the flag is set this returns
// false forever, even if all profiles are later deleted.
func (c *MigrationCoordinator) NeedsMigration() (bool, error) {
	done, err := c.state.MigrationComplete()
	if err != nil {
		return false, fmt.Errorf("checking migration flag: %w", err)
	}
	if done {
		return false, nil
	}

	profiles, err := c.registry.Profiles()
	if err != nil {
		return false, fmt.Errorf("listing profiles: %w", err)
	}
	if len(profiles) > 0 {
		return false, nil
	}

	hasLegacy, err := c.registry.HasLegacyGoals()
	if err != nil {
		return false, fmt.Errorf("checking legacy goals: %w", err)
	}
	return hasLegacy, nil
}

// Run executes the four-step migration for the newly created profile:
//
//  1. export the full record set and persist it in the backup slot
//  2. reassign every unowned record to the new profile
//  3. copy the legacy global goals into the profile's goal slot
//     (the legacy slot is left intact)
//  4. set the migration-complete flag
//
// A failure after step 1 returns a MigrationError naming the step; the
// flag stays unset and the backup is preserved, so the caller can retry.
func (c *MigrationCoordinator) Run(newProfileID string) error {
	backup, err := c.transfer.ExportJSON()
	if err != nil {
		return &MigrationError{Step: "backup", Err: err}
	}
	if err := c.state.SaveMigrationBackup(backup); err != nil {
		return &MigrationError{Step: "backup", Err: err}
	}

	count, err := c.records.ReassignUnowned(newProfileID)
	if err != nil {
		return &MigrationError{Step: "reassign", Err: err}
	}

	goals, err := c.registry.Goals(nil)
	if err != nil {
		return &MigrationError{Step: "copy-goals", Err: err}
	}
	if err := c.registry.SaveGoals(&newProfileID, goals); err != nil {
		return &MigrationError{Step: "copy-goals", Err: err}
	}

	if err := c.state.SetMigrationComplete(); err != nil {
		return &MigrationError{Step: "finalize", Err: err}
	}

	c.logger.Info("legacy data migrated", "profile", newProfileID, "records", count)
	return nil
}
