package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/usecase"
	"decisionlog-backend/pkg/logger"
)

// EngagementScheduler runs every notification category and the health
// snapshot batch on a fixed interval, for deployments without an external
// cron. Overlap with the HTTP triggers is safe: runs are deduplicated by the
// send log and serialized by the run lock.
type EngagementScheduler struct {
	runner       usecase.JobRunner
	health       usecase.HealthService
	categories   []domain.Category
	lookbackDays int
	interval     time.Duration
	stopChan     chan struct{}
	done         sync.WaitGroup
}

// NewEngagementScheduler creates a new scheduler
func NewEngagementScheduler(runner usecase.JobRunner, health usecase.HealthService, interval time.Duration, lookbackDays int) *EngagementScheduler {
	return &EngagementScheduler{
		runner:       runner,
		health:       health,
		categories:   domain.AllCategories(),
		lookbackDays: lookbackDays,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the scheduler loop. A non-positive interval disables it.
func (s *EngagementScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		logger.Info("[Scheduler] interval not set, in-process scheduler disabled")
		return
	}

	logger.Info("[Scheduler] starting engagement scheduler", "interval", s.interval)

	s.done.Add(1)
	go func() {
		defer s.done.Done()

		// Run immediately on start
		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				logger.Info("[Scheduler] context cancelled, scheduler stopped")
				return
			case <-s.stopChan:
				logger.Info("[Scheduler] scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for the current pass.
func (s *EngagementScheduler) Stop() {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.done.Wait()
}

// RunOnce makes one pass over every category followed by the health batch.
// A failing category does not stop the others.
func (s *EngagementScheduler) RunOnce(ctx context.Context) {
	for _, category := range s.categories {
		if ctx.Err() != nil {
			return
		}
		result, err := s.runner.Run(ctx, category)
		switch {
		case errors.Is(err, usecase.ErrRunInProgress):
			logger.Debug("[Scheduler] run already in progress", "type", category)
		case err != nil:
			logger.Error("[Scheduler] run failed", "type", category, "err", err)
		default:
			logger.Debug("[Scheduler] run finished", "type", category, "sent", result.Sent, "skipped", result.Skipped)
		}
	}

	if s.health == nil || ctx.Err() != nil {
		return
	}
	if _, err := s.health.SnapshotActiveUsers(ctx, s.lookbackDays); err != nil {
		logger.Error("[Scheduler] health snapshot batch failed", "err", err)
	}
}
