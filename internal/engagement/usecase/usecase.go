package usecase

import (
	"context"

	"decisionlog-backend/internal/engagement/domain"
)

// JobRunner runs one notification category's batch
type JobRunner interface {
	Run(ctx context.Context, category domain.Category) (*domain.RunResult, error)
}

// HealthService computes and stores health snapshots
type HealthService interface {
	// Snapshot recomputes one user's snapshot for today
	Snapshot(ctx context.Context, userID string) (*domain.HealthSnapshot, error)

	// SnapshotActiveUsers refreshes every recently active user
	SnapshotActiveUsers(ctx context.Context, lookbackDays int) (*domain.RunResult, error)
}

var (
	_ JobRunner     = (*Runner)(nil)
	_ HealthService = (*HealthScorer)(nil)
)
