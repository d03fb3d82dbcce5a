package domain

import (
	"errors"
	"time"
)

// Category identifies one notification job.
type Category string

const (
	CategoryWelcome        Category = "welcome"
	CategoryOutcomeDue     Category = "outcome_due"
	CategoryOutcomeOverdue Category = "outcome_overdue"
	CategoryStreakSave     Category = "streak_save"
	CategoryWeeklyReview   Category = "weekly_review"
)

// ErrUnknownCategory is returned for category names outside the table below.
var ErrUnknownCategory = errors.New("unknown notification category")

// Preference keys stored in profiles.email_preferences.
const (
	PreferenceWelcome      = "welcome"
	PreferenceReminders    = "reminders"
	PreferenceWeeklyReview = "weekly_review"
)

type categoryRule struct {
	preference  string
	dedupWindow time.Duration
	perDecision bool
}

var categories = map[Category]categoryRule{
	CategoryWelcome:        {PreferenceWelcome, 30 * 24 * time.Hour, false},
	CategoryOutcomeDue:     {PreferenceReminders, 7 * 24 * time.Hour, true},
	CategoryOutcomeOverdue: {PreferenceReminders, 7 * 24 * time.Hour, true},
	CategoryStreakSave:     {PreferenceReminders, 24 * time.Hour, false},
	CategoryWeeklyReview:   {PreferenceWeeklyReview, 7 * 24 * time.Hour, false},
}

// AllCategories lists the categories in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryWelcome,
		CategoryOutcomeDue,
		CategoryOutcomeOverdue,
		CategoryStreakSave,
		CategoryWeeklyReview,
	}
}

// ParseCategory accepts both the stored form (outcome_due) and the URL form
// (outcome-due).
func ParseCategory(s string) (Category, error) {
	normalized := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			normalized[i] = '_'
		} else {
			normalized[i] = s[i]
		}
	}
	c := Category(normalized)
	if _, ok := categories[c]; !ok {
		return "", ErrUnknownCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// PreferenceKey is the single opt-out flag governing this category.
func (c Category) PreferenceKey() string {
	return categories[c].preference
}

// DedupWindow is how long a send suppresses a repeat to the same target.
func (c Category) DedupWindow() time.Duration {
	return categories[c].dedupWindow
}

// PerDecision reports whether sends are keyed by a decision id.
func (c Category) PerDecision() bool {
	return categories[c].perDecision
}

// Slug is the URL form used by the trigger routes.
func (c Category) Slug() string {
	b := []byte(c)
	for i := range b {
		if b[i] == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}

// WindowBucket numbers the fixed dedup window that contains at. Two claims in
// the same bucket collide on the send_logs unique index.
func (c Category) WindowBucket(at time.Time) int64 {
	seconds := int64(c.DedupWindow() / time.Second)
	if seconds <= 0 {
		return at.Unix()
	}
	return at.Unix() / seconds
}
