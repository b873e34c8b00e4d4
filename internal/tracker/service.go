package tracker

import "fmt"

// TrackerService is the orchestration layer the CLI talks to. It resolves
// the active profile for day-scoped operations and sequences the cross-store
// flows (first-profile migration, profile deletion) that the stores
// themselves keep separate.
type TrackerService struct {
	store     Store
	transfer  *BulkTransfer
	migration *MigrationCoordinator
	clock     Clock
	logger    Logger
}

func NewTrackerService(store Store, transfer *BulkTransfer, migration *MigrationCoordinator, clock Clock, logger Logger) *TrackerService {
	return &TrackerService{
		store:     store,
		transfer:  transfer,
		migration: migration,
		clock:     clock,
		logger:    logger,
	}
}

// Today returns the current calendar date in local time.
func (s *TrackerService) Today() string {
	return s.clock.Now().Format(DateLayout)
}

// LogMealInput carries a new entry. Date defaults to today and MealType
// defaults by time of day when left empty.
type LogMealInput struct {
	Name     string
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
	MealType MealType
	Date     string
}

// LogMeal records an entry for the active profile (or unowned, when no
// profile is active).
func (s *TrackerService) LogMeal(in LogMealInput) (LogRecord, error) {
	if in.Date == "" {
		in.Date = s.Today()
	}
	if in.MealType == "" {
		in.MealType = SuggestedMealType(s.clock.Now())
	}

	ownerID, err := s.store.ActiveProfileID()
	if err != nil {
		return LogRecord{}, fmt.Errorf("resolving active profile: %w", err)
	}

	record, err := s.store.CreateRecord(LogRecord{
		OwnerID:  ownerID,
		Date:     in.Date,
		Name:     in.Name,
		Calories: in.Calories,
		Protein:  in.Protein,
		Carbs:    in.Carbs,
		Fat:      in.Fat,
		MealType: in.MealType,
	})
	if err != nil {
		return LogRecord{}, err
	}

	s.logger.Debug("meal logged", "id", record.ID, "date", record.Date, "calories", record.Calories)
	return record, nil
}

// EntriesForDay returns the active profile's records for the date, or the
// unowned records when no profile is active.
func (s *TrackerService) EntriesForDay(date string) ([]LogRecord, error) {
	ownerID, err := s.store.ActiveProfileID()
	if err != nil {
		return nil, fmt.Errorf("resolving active profile: %w", err)
	}
	return s.store.RecordsByOwnerAndDate(ownerID, date)
}

// EditMeal replaces a stored entry wholesale.
func (s *TrackerService) EditMeal(record LogRecord) error {
	return s.store.UpdateRecord(record)
}

// RemoveMeal deletes an entry by id. Removing an unknown id is a no-op.
func (s *TrackerService) RemoveMeal(id string) error {
	return s.store.DeleteRecord(id)
}

// MacroTotals are summed macro quantities for a set of records.
type MacroTotals struct {
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
}

// DaySummary is one day's entries with their totals and the applicable
// goals.
type DaySummary struct {
	Date    string
	Records []LogRecord
	Totals  MacroTotals
	Goals   GoalSettings
}

// Summarize returns the day's records, totals and goals for the active
// profile.
func (s *TrackerService) Summarize(date string) (*DaySummary, error) {
	ownerID, err := s.store.ActiveProfileID()
	if err != nil {
		return nil, fmt.Errorf("resolving active profile: %w", err)
	}

	records, err := s.store.RecordsByOwnerAndDate(ownerID, date)
	if err != nil {
		return nil, err
	}

	goals, err := s.store.Goals(ownerID)
	if err != nil {
		return nil, err
	}

	summary := &DaySummary{Date: date, Records: records, Goals: goals}
	for _, r := range records {
		summary.Totals.Calories += r.Calories
		summary.Totals.Protein += r.Protein
		summary.Totals.Carbs += r.Carbs
		summary.Totals.Fat += r.Fat
	}
	return summary, nil
}

// RegisterProfile creates a profile and, when it is the first profile on a
// device holding legacy data, runs the one-time migration before making
// the profile active. The returned bool reports whether a migration ran.
func (s *TrackerService) RegisterProfile(name, pin string) (Profile, bool, error) {
	needed, err := s.migration.NeedsMigration()
	if err != nil {
		return Profile{}, false, err
	}

	profile, err := s.store.CreateProfile(name, pin)
	if err != nil {
		return Profile{}, false, err
	}

	if needed {
		if err := s.migration.Run(profile.ID); err != nil {
			// The profile exists and the backup (if step 1 completed) is
			// preserved; the caller can retry the migration.
			return profile, false, err
		}
	}

	if err := s.store.SetActiveProfileID(&profile.ID); err != nil {
		return profile, needed, fmt.Errorf("activating profile: %w", err)
	}

	s.logger.Info("profile registered", "id", profile.ID, "name", profile.Name, "migrated", needed)
	return profile, needed, nil
}

// RemoveProfile deletes a profile and everything it owns. Records are
// deleted before the profile so an interruption leaves an orphaned but
// harmless profile rather than unreachable records; the two deletes are
// not atomic.
func (s *TrackerService) RemoveProfile(id string) error {
	count, err := s.store.DeleteRecordsForOwner(id)
	if err != nil {
		return fmt.Errorf("deleting profile records: %w", err)
	}

	if err := s.store.DeleteProfile(id); err != nil {
		return err
	}

	active, err := s.store.ActiveProfileID()
	if err != nil {
		return fmt.Errorf("resolving active profile: %w", err)
	}
	if active != nil && *active == id {
		if err := s.store.SetActiveProfileID(nil); err != nil {
			return fmt.Errorf("clearing active profile: %w", err)
		}
	}

	s.logger.Info("profile removed", "id", id, "records", count)
	return nil
}

// Unlock verifies the PIN and, on success, makes the profile active.
func (s *TrackerService) Unlock(profileID, pin string) (bool, error) {
	ok, err := s.store.VerifyPin(profileID, pin)
	if err != nil || !ok {
		return false, err
	}
	if err := s.store.SetActiveProfileID(&profileID); err != nil {
		return false, fmt.Errorf("activating profile: %w", err)
	}
	return true, nil
}

// Logout clears the active selection.
func (s *TrackerService) Logout() error {
	return s.store.SetActiveProfileID(nil)
}

// ActiveGoals returns the goals for the active profile, following the
// owner → legacy → defaults fallback chain.
func (s *TrackerService) ActiveGoals() (GoalSettings, error) {
	ownerID, err := s.store.ActiveProfileID()
	if err != nil {
		return GoalSettings{}, fmt.Errorf("resolving active profile: %w", err)
	}
	return s.store.Goals(ownerID)
}

// SaveActiveGoals writes goals for the active profile, or the legacy global
// slot when no profile is active.
func (s *TrackerService) SaveActiveGoals(goals GoalSettings) error {
	ownerID, err := s.store.ActiveProfileID()
	if err != nil {
		return fmt.Errorf("resolving active profile: %w", err)
	}
	return s.store.SaveGoals(ownerID, goals)
}
