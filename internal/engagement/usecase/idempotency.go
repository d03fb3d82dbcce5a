package usecase

import (
	"context"
	"time"

	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/repository"
)

// IdempotencyGuard suppresses repeat sends within a category's dedup window.
//
// FilterRecent is a bulk pre-check over the whole candidate set; it gives
// the sliding-window behaviour but is only an optimisation. Correctness
// under overlapping runs comes from Claim, a single atomic insert against
// the (user, type, target, bucket) unique index.
type IdempotencyGuard struct {
	logs       repository.SendLogRepository
	now        func() time.Time
	staleAfter time.Duration
}

// NewIdempotencyGuard creates a new IdempotencyGuard
func NewIdempotencyGuard(logs repository.SendLogRepository, now func() time.Time, staleAfter time.Duration) *IdempotencyGuard {
	if now == nil {
		now = time.Now
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &IdempotencyGuard{logs: logs, now: now, staleAfter: staleAfter}
}

// FilterRecent drops candidates with a confirmed send inside the window.
func (g *IdempotencyGuard) FilterRecent(ctx context.Context, category domain.Category, candidates []domain.Candidate) ([]domain.Candidate, int, error) {
	if len(candidates) == 0 {
		return candidates, 0, nil
	}

	seen := make(map[string]bool)
	userIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			userIDs = append(userIDs, c.UserID)
		}
	}

	since := g.now().UTC().Add(-category.DedupWindow())
	recent, err := g.logs.RecentSends(ctx, category, userIDs, since)
	if err != nil {
		return candidates, 0, err
	}

	sent := make(map[string]bool, len(recent))
	for _, entry := range recent {
		sent[dedupKey(entry.UserID, entry.TargetKey)] = true
	}

	kept := make([]domain.Candidate, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if sent[dedupKey(c.UserID, c.TargetKey())] {
			skipped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, skipped, nil
}

// Claim reserves the send slot. A false return means another run already
// owns or completed this (user, category, target) in the current bucket.
func (g *IdempotencyGuard) Claim(ctx context.Context, category domain.Category, candidate domain.Candidate) (*domain.SendLog, bool, error) {
	now := g.now().UTC()
	entry := &domain.SendLog{
		UserID:       candidate.UserID,
		EmailType:    category,
		TargetKey:    candidate.TargetKey(),
		TargetID:     candidate.DecisionID,
		WindowBucket: category.WindowBucket(now),
		SentAt:       now,
	}
	ok, err := g.logs.Claim(ctx, entry, now.Add(-g.staleAfter))
	if err != nil {
		return nil, false, err
	}
	return entry, ok, nil
}

// Confirm records the claimed send as delivered.
func (g *IdempotencyGuard) Confirm(ctx context.Context, entry *domain.SendLog) error {
	return g.logs.Confirm(ctx, entry.ID, g.now().UTC())
}

// Release frees a claim after a failed send.
func (g *IdempotencyGuard) Release(ctx context.Context, entry *domain.SendLog) error {
	return g.logs.Release(ctx, entry.ID)
}

func dedupKey(userID, targetKey string) string {
	return userID + "\x00" + targetKey
}
