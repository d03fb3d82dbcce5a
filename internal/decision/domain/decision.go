package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionStatus represents where a decision is in its lifecycle
type DecisionStatus string

const (
	DecisionStatusOpen      DecisionStatus = "open"
	DecisionStatusDecided   DecisionStatus = "decided"
	DecisionStatusCompleted DecisionStatus = "completed"
)

// OutcomeResult is the user's verdict on how a decision turned out
type OutcomeResult string

const (
	OutcomeSuccess OutcomeResult = "success"
	OutcomePartial OutcomeResult = "partial"
	OutcomeFailure OutcomeResult = "failure"
)

// Decision is owned by the CRUD layer; the engine only reads it.
type Decision struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	UserID         string         `json:"user_id" gorm:"index;not null"`
	Title          string         `json:"title" gorm:"not null"`
	Status         DecisionStatus `json:"status" gorm:"default:open"`
	Confidence     *int           `json:"confidence,omitempty"` // 0-100, stated confidence in the chosen option
	ChosenOptionID *string        `json:"chosen_option_id,omitempty"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty" gorm:"index"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for GORM
func (Decision) TableName() string {
	return "decisions"
}

// IsDecided reports whether both halves of the decided pair are set.
func (d *Decision) IsDecided() bool {
	return d.DecidedAt != nil && d.ChosenOptionID != nil && *d.ChosenOptionID != ""
}

// Outcome closes a decision. At most one per decision.
type Outcome struct {
	ID          string        `json:"id" gorm:"primaryKey"`
	DecisionID  string        `json:"decision_id" gorm:"uniqueIndex;not null"`
	UserID      string        `json:"user_id" gorm:"index;not null"`
	Result      OutcomeResult `json:"result" gorm:"not null"`
	CompletedAt time.Time     `json:"completed_at" gorm:"index"`
}

func (Outcome) TableName() string {
	return "outcomes"
}

// Favorable reports whether the outcome counts as a win.
func (o *Outcome) Favorable() bool {
	return o.Result == OutcomeSuccess
}

// Realized maps the result onto [0,1] for calibration.
func (o *Outcome) Realized() float64 {
	switch o.Result {
	case OutcomeSuccess:
		return 1
	case OutcomePartial:
		return 0.5
	default:
		return 0
	}
}

// CheckIn is a lightweight daily activity marker, independent of decisions.
type CheckIn struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_checkin_user_date;not null"`
	Date      string    `json:"date" gorm:"uniqueIndex:idx_checkin_user_date;not null"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
}

func (CheckIn) TableName() string {
	return "check_ins"
}

// Profile carries the per-user settings the notification jobs need.
type Profile struct {
	ID               string            `json:"id" gorm:"primaryKey"`
	Email            string            `json:"email"`
	DisplayName      string            `json:"display_name"`
	Timezone         string            `json:"timezone"`
	IsPro            bool              `json:"is_pro" gorm:"default:false"`
	EmailPreferences datatypes.JSONMap `json:"email_preferences,omitempty"`
	CreatedAt        time.Time         `json:"created_at" gorm:"index"`
}

func (Profile) TableName() string {
	return "profiles"
}
