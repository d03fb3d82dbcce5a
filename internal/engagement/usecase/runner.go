package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	decisionrepo "decisionlog-backend/internal/decision/repository"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/pkg/logger"
)

// ErrRunInProgress is returned when another run of the same category holds
// the run lock.
var ErrRunInProgress = errors.New("run already in progress")

// RunLocker keeps a category's runs from overlapping across instances.
type RunLocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), acquired bool, err error)
}

// Runner executes one category's batch:
// eligibility -> preference gate -> idempotency pre-check -> claim/send.
type Runner struct {
	filter     *EligibilityFilter
	reader     decisionrepo.DecisionReader
	gate       PreferenceGate
	guard      *IdempotencyGuard
	dispatcher *Dispatcher
	locker     RunLocker
	workers    int
}

// NewRunner creates a new Runner. locker may be nil.
func NewRunner(filter *EligibilityFilter, reader decisionrepo.DecisionReader, guard *IdempotencyGuard, dispatcher *Dispatcher, locker RunLocker, workers int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		filter:     filter,
		reader:     reader,
		guard:      guard,
		dispatcher: dispatcher,
		locker:     locker,
		workers:    workers,
	}
}

type dispatchJob struct {
	candidate domain.Candidate
	profile   *decisiondomain.Profile
}

// Run processes one category. An error is returned only when the trigger
// cannot proceed at all; per-candidate failures land in Skipped.
func (r *Runner) Run(ctx context.Context, category domain.Category) (*domain.RunResult, error) {
	if !category.Valid() {
		return nil, domain.ErrUnknownCategory
	}

	if r.locker != nil {
		unlock, acquired, err := r.locker.TryLock(ctx, "run:"+string(category))
		switch {
		case err != nil:
			// idempotency still holds without the lock
			logger.Warn("[Runner] run lock unavailable, continuing", "type", category, "err", err)
		case !acquired:
			return nil, ErrRunInProgress
		default:
			defer unlock()
		}
	}

	candidates, err := r.filter.Candidates(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candidates: %w", category, err)
	}

	result := &domain.RunResult{Total: len(candidates)}
	if len(candidates) == 0 {
		result.Message = fmt.Sprintf("%s: no eligible candidates", category)
		return result, nil
	}

	profiles, err := r.reader.ProfilesByIDs(ctx, uniqueUserIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("fetch %s profiles: %w", category, err)
	}

	allowed := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		profile, ok := profiles[c.UserID]
		if !ok {
			logger.Warn("[Runner] candidate has no profile", "type", category, "user", c.UserID)
			result.Skipped++
			continue
		}
		if !r.gate.Allows(profile, category) {
			result.Skipped++
			continue
		}
		allowed = append(allowed, c)
	}

	fresh, dupes, err := r.guard.FilterRecent(ctx, category, allowed)
	if err != nil {
		// the atomic claim still dedups within a bucket
		logger.Warn("[Runner] send-log prefetch failed, relying on claims", "type", category, "err", err)
		fresh, dupes = allowed, 0
	}
	result.Skipped += dupes

	sent, skipped := r.dispatchAll(ctx, category, fresh, profiles)
	result.Sent += sent
	result.Skipped += skipped

	result.Message = fmt.Sprintf("%s run complete", category)
	logger.Info("[Runner] run complete", "type", category, "total", result.Total, "sent", result.Sent, "skipped", result.Skipped)
	return result, nil
}

// dispatchAll fans candidates out to a bounded pool of workers.
func (r *Runner) dispatchAll(ctx context.Context, category domain.Category, candidates []domain.Candidate, profiles map[string]*decisiondomain.Profile) (sent, skipped int) {
	if len(candidates) == 0 {
		return 0, 0
	}

	jobs := make(chan dispatchJob)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	workers := r.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				status := r.dispatcher.Dispatch(ctx, category, job.candidate, job.profile)
				mu.Lock()
				if status == DispatchSent {
					sent++
				} else {
					skipped++
				}
				mu.Unlock()
			}
		}()
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			logger.Warn("[Runner] run interrupted", "type", category, "err", ctx.Err())
			break
		}
		jobs <- dispatchJob{candidate: c, profile: profiles[c.UserID]}
	}
	close(jobs)
	wg.Wait()

	return sent, skipped
}

func uniqueUserIDs(candidates []domain.Candidate) []string {
	seen := make(map[string]bool, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	return ids
}
