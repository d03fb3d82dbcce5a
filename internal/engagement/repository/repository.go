package repository

import (
	"context"
	"time"

	"decisionlog-backend/internal/engagement/domain"
)

// HealthSnapshotRepository persists the daily health snapshots
type HealthSnapshotRepository interface {
	// Upsert writes the snapshot for (user, snapshot_date), overwriting a
	// same-day row, and returns the stored row
	Upsert(ctx context.Context, snapshot *domain.HealthSnapshot) (*domain.HealthSnapshot, error)

	// FindByUserAndDate returns nil when no snapshot exists
	FindByUserAndDate(ctx context.Context, userID, date string) (*domain.HealthSnapshot, error)
}

// SendLogRepository backs the idempotency guard
type SendLogRepository interface {
	// RecentSends returns confirmed sends of the category for the given users
	// with sent_at at or after since
	RecentSends(ctx context.Context, category domain.Category, userIDs []string, since time.Time) ([]domain.SendLog, error)

	// Claim atomically inserts a pending row unless the same (user, type,
	// target, bucket) is already present. A pending row older than
	// staleBefore is taken over. Returns false when the claim lost.
	Claim(ctx context.Context, entry *domain.SendLog, staleBefore time.Time) (bool, error)

	// Confirm marks a claimed row as sent
	Confirm(ctx context.Context, id string, sentAt time.Time) error

	// Release drops a pending claim after a failed send so the target stays
	// eligible. Confirmed rows are never removed.
	Release(ctx context.Context, id string) error
}
