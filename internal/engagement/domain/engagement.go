package domain

import "time"

// HealthSnapshot is upserted once per user per calendar day.
type HealthSnapshot struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	UserID            string    `json:"user_id" gorm:"uniqueIndex:idx_health_user_date;not null"`
	SnapshotDate      string    `json:"snapshot_date" gorm:"uniqueIndex:idx_health_user_date;not null"` // YYYY-MM-DD
	HealthScore       int       `json:"health_score"`
	WinRate           float64   `json:"win_rate"`
	AvgCalibrationGap float64   `json:"avg_calibration_gap"`
	CompletionRate    float64   `json:"completion_rate"`
	StreakLength      int       `json:"streak_length"`
	DecisionsCount    int       `json:"decisions_count"`
	OutcomesCount     int       `json:"outcomes_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (HealthSnapshot) TableName() string {
	return "health_snapshots"
}

// SendStatus tracks a send-log row from claim to confirmed delivery
type SendStatus string

const (
	SendStatusPending SendStatus = "pending"
	SendStatusSent    SendStatus = "sent"
)

// SendLog records one dispatch. The unique index makes the claim an atomic
// insert-if-absent per (user, type, target, window bucket).
type SendLog struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"uniqueIndex:idx_send_dedup,priority:1;index:idx_send_recent,priority:1;not null"`
	EmailType    Category   `json:"email_type" gorm:"uniqueIndex:idx_send_dedup,priority:2;index:idx_send_recent,priority:2;not null"`
	TargetKey    string     `json:"-" gorm:"uniqueIndex:idx_send_dedup,priority:3;not null"`
	WindowBucket int64      `json:"window_bucket" gorm:"uniqueIndex:idx_send_dedup,priority:4;not null"`
	TargetID     *string    `json:"target_id"`
	Status       SendStatus `json:"status" gorm:"not null"`
	SentAt       time.Time  `json:"sent_at" gorm:"index:idx_send_recent,priority:3;not null"`
}

func (SendLog) TableName() string {
	return "send_logs"
}

// Candidate is a (user, optional decision) pair that satisfied a category's
// eligibility predicate and still awaits the preference and dedup checks.
type Candidate struct {
	UserID        string
	DecisionID    *string
	DecisionTitle string
	DecidedAt     *time.Time
	StreakLength  int
	WeekDecisions int
}

// TargetKey is the dedup key component: the decision id, or empty for
// user-level categories.
func (c Candidate) TargetKey() string {
	if c.DecisionID == nil {
		return ""
	}
	return *c.DecisionID
}

// RunResult is the summary returned by every batch trigger.
type RunResult struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
}
