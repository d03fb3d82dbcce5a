package repository

import (
	"context"
	"time"

	"decisionlog-backend/internal/decision/domain"
)

// UserTimestamp is one (user, instant) activity row.
type UserTimestamp struct {
	UserID string
	At     time.Time
}

// UserDate is one (user, calendar day) activity row.
type UserDate struct {
	UserID string
	Date   string
}

// DecisionReader is the engine's read-only view of the CRUD tables.
// Implementations must never write.
type DecisionReader interface {
	// DecisionsByUser returns every decision owned by the user
	DecisionsByUser(ctx context.Context, userID string) ([]domain.Decision, error)

	// OutcomesByUser returns every outcome recorded by the user
	OutcomesByUser(ctx context.Context, userID string) ([]domain.Outcome, error)

	// DecidedWithoutOutcome returns decisions with decided_at in (after, before],
	// a chosen option set, and no outcome yet
	DecidedWithoutOutcome(ctx context.Context, after, before time.Time) ([]domain.Decision, error)

	// DecisionCountsSince counts decisions created at or after since, per user
	DecisionCountsSince(ctx context.Context, since time.Time) (map[string]int, error)

	// DecisionCreationTimes, OutcomeCompletionTimes and CheckInDates feed the
	// activity aggregator. An empty userIDs slice means every user.
	DecisionCreationTimes(ctx context.Context, userIDs []string, since time.Time) ([]UserTimestamp, error)
	OutcomeCompletionTimes(ctx context.Context, userIDs []string, since time.Time) ([]UserTimestamp, error)
	CheckInDates(ctx context.Context, userIDs []string, sinceDate string) ([]UserDate, error)

	// ProfilesCreatedSince returns profiles created at or after since
	ProfilesCreatedSince(ctx context.Context, since time.Time) ([]domain.Profile, error)

	// ProfilesByIDs bulk-loads profiles keyed by user id; unknown ids are absent
	ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]*domain.Profile, error)
}
