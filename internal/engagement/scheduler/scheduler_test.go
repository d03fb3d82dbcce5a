package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/usecase"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	mu    sync.Mutex
	calls []domain.Category
	fail  domain.Category
}

func (r *countingRunner) Run(ctx context.Context, category domain.Category) (*domain.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, category)
	if category == r.fail {
		return nil, errors.New("boom")
	}
	return &domain.RunResult{}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type countingHealth struct {
	mu       sync.Mutex
	batches  int
	lookback int
}

func (h *countingHealth) Snapshot(ctx context.Context, userID string) (*domain.HealthSnapshot, error) {
	return &domain.HealthSnapshot{UserID: userID}, nil
}

func (h *countingHealth) SnapshotActiveUsers(ctx context.Context, lookbackDays int) (*domain.RunResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches++
	h.lookback = lookbackDays
	return &domain.RunResult{}, nil
}

var (
	_ usecase.JobRunner     = (*countingRunner)(nil)
	_ usecase.HealthService = (*countingHealth)(nil)
)

func TestRunOnceCoversEveryCategory(t *testing.T) {
	runner := &countingRunner{fail: domain.CategoryOutcomeDue}
	health := &countingHealth{}
	s := NewEngagementScheduler(runner, health, time.Hour, 2)

	s.RunOnce(context.Background())

	assert.Equal(t, domain.AllCategories(), runner.calls)
	assert.Equal(t, 1, health.batches)
	assert.Equal(t, 2, health.lookback)
}

func TestRunOnceStopsWhenCancelled(t *testing.T) {
	runner := &countingRunner{}
	health := &countingHealth{}
	s := NewEngagementScheduler(runner, health, time.Hour, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunOnce(ctx)

	assert.Zero(t, runner.count())
	assert.Zero(t, health.batches)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	runner := &countingRunner{}
	s := NewEngagementScheduler(runner, &countingHealth{}, time.Hour, 1)

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return runner.count() == len(domain.AllCategories())
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestStartDisabled(t *testing.T) {
	runner := &countingRunner{}
	s := NewEngagementScheduler(runner, &countingHealth{}, 0, 1)

	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, runner.count())
}
