package tracker

import (
	"strings"
	"time"
)

// MealType classifies a log record into one of the four fixed meal slots.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists every valid meal type.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Valid reports whether m is one of the four known meal types.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used throughout the store.
const DateLayout = "2006-01-02"

// LogRecord is one logged food entry. OwnerID is nil for records created
// before multi-profile support existed ("legacy" records); those are picked
// up by the one-time migration when the first profile is created.
type LogRecord struct {
	ID        string    `json:"id"`
	OwnerID   *string   `json:"owner_id"`
	Date      string    `json:"date"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	MealType  MealType  `json:"meal_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the record's fields before any durable write.
// It does not check the ID; creation assigns one and import requires one,
// so each path checks the ID itself.
func (r *LogRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if r.Calories < 0 {
		return &ValidationError{Field: "calories", Reason: "must not be negative"}
	}
	if r.Protein < 0 {
		return &ValidationError{Field: "protein", Reason: "must not be negative"}
	}
	if r.Carbs < 0 {
		return &ValidationError{Field: "carbs", Reason: "must not be negative"}
	}
	if r.Fat < 0 {
		return &ValidationError{Field: "fat", Reason: "must not be negative"}
	}
	if !r.MealType.Valid() {
		return &ValidationError{Field: "meal_type", Reason: "must be breakfast, lunch, dinner or snack"}
	}
	return nil
}

// SuggestedMealType picks a meal type from the time of day:
// 05-10 breakfast, 11-14 lunch, 17-21 dinner, anything else snack.
func SuggestedMealType(t time.Time) MealType {
	hour := t.Hour()
	switch {
	case hour >= 5 && hour < 10:
		return MealBreakfast
	case hour >= 11 && hour < 14:
		return MealLunch
	case hour >= 17 && hour < 21:
		return MealDinner
	default:
		return MealSnack
	}
}
