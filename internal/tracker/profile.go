package tracker

import (
	"strings"
	"time"
)

// Profile is a named local identity under which records and goals are scoped.
// The PIN is a convenience lock for shared-device profile switching, compared
// as an opaque string. It is not an authentication credential and provides no
// confidentiality.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PIN       string    `json:"pin"`
	CreatedAt time.Time `json:"created_at"`
}

// GoalSettings holds the daily macro targets logged totals are compared
// against. One set exists per profile, plus a legacy global set for data
// created before multi-profile support.
type GoalSettings struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// DefaultGoals are used when neither owner-scoped nor legacy global goals
// have ever been saved.
func DefaultGoals() GoalSettings {
	return GoalSettings{Calories: 2000, Protein: 150, Carbs: 250, Fat: 65}
}

// Validate checks the targets before saving.
func (g *GoalSettings) Validate() error {
	if g.Calories <= 0 {
		return &ValidationError{Field: "calories", Reason: "must be positive"}
	}
	if g.Protein <= 0 {
		return &ValidationError{Field: "protein", Reason: "must be positive"}
	}
	if g.Carbs <= 0 {
		return &ValidationError{Field: "carbs", Reason: "must be positive"}
	}
	if g.Fat <= 0 {
		return &ValidationError{Field: "fat", Reason: "must be positive"}
	}
	return nil
}

// ValidateProfileInput checks a registration request. The PIN must be
// exactly four numeric digits.
func ValidateProfileInput(name, pin string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(pin) != 4 {
		return &ValidationError{Field: "pin", Reason: "must be exactly 4 digits"}
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return &ValidationError{Field: "pin", Reason: "must be exactly 4 digits"}
		}
	}
	return nil
}
