package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	decisionrepo "decisionlog-backend/internal/decision/repository"
	"decisionlog-backend/internal/engagement/domain"
)

const (
	// ReminderMaxAge is the policy cutoff past which a decided decision is
	// never surfaced by due/overdue reminders.
	ReminderMaxAge = 90 * 24 * time.Hour
	// OverdueAfter separates outcome_due from outcome_overdue.
	OverdueAfter = 7 * 24 * time.Hour
	// WelcomeWindow is how long after signup a profile is welcome-eligible.
	WelcomeWindow = 48 * time.Hour
	// streakLookbackDays bounds the history read for streak_save.
	streakLookbackDays = 366
)

// EligibilityFilter produces the candidate set for one category.
type EligibilityFilter struct {
	reader   decisionrepo.DecisionReader
	activity *ActivityAggregator
	calendar *Calendar
}

// NewEligibilityFilter creates a new EligibilityFilter
func NewEligibilityFilter(reader decisionrepo.DecisionReader, activity *ActivityAggregator, calendar *Calendar) *EligibilityFilter {
	return &EligibilityFilter{reader: reader, activity: activity, calendar: calendar}
}

// Candidates evaluates the category's temporal window against current data.
func (f *EligibilityFilter) Candidates(ctx context.Context, category domain.Category) ([]domain.Candidate, error) {
	now := f.calendar.Now()

	switch category {
	case domain.CategoryOutcomeDue:
		return f.undecidedOutcomes(ctx, now.Add(-OverdueAfter), now)
	case domain.CategoryOutcomeOverdue:
		return f.undecidedOutcomes(ctx, now.Add(-ReminderMaxAge), now.Add(-OverdueAfter))
	case domain.CategoryStreakSave:
		return f.streaksAtRisk(ctx, now)
	case domain.CategoryWeeklyReview:
		return f.weeklyReviewers(ctx, now)
	case domain.CategoryWelcome:
		return f.newProfiles(ctx, now)
	default:
		return nil, domain.ErrUnknownCategory
	}
}

// undecidedOutcomes returns decided decisions without an outcome whose
// decided_at falls in (after, before].
func (f *EligibilityFilter) undecidedOutcomes(ctx context.Context, after, before time.Time) ([]domain.Candidate, error) {
	decisions, err := f.reader.DecidedWithoutOutcome(ctx, after, before)
	if err != nil {
		return nil, fmt.Errorf("load decided decisions: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(decisions))
	for i := range decisions {
		d := decisions[i]
		if !d.IsDecided() {
			continue
		}
		// re-check the window; the reader may be coarser than the predicate
		if !d.DecidedAt.After(after) || d.DecidedAt.After(before) {
			continue
		}
		id := d.ID
		candidates = append(candidates, domain.Candidate{
			UserID:        d.UserID,
			DecisionID:    &id,
			DecisionTitle: d.Title,
			DecidedAt:     d.DecidedAt,
		})
	}
	return candidates, nil
}

// streaksAtRisk finds users whose last active day was yesterday: the run is
// still alive but ends tonight without new activity.
func (f *EligibilityFilter) streaksAtRisk(ctx context.Context, now time.Time) ([]domain.Candidate, error) {
	yesterday := f.calendar.StartOfDay(now).AddDate(0, 0, -1)

	recent, err := f.activity.ActivityDatesForUsers(ctx, nil, yesterday)
	if err != nil {
		return nil, fmt.Errorf("load recent activity: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(recent))
	for userID := range recent {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	history, err := f.activity.ActivityDatesForUsers(ctx, userIDs, yesterday.AddDate(0, 0, -streakLookbackDays))
	if err != nil {
		return nil, fmt.Errorf("load activity history: %w", err)
	}

	var candidates []domain.Candidate
	for _, userID := range userIDs {
		dates := history[userID]
		last, ok := LastActiveDay(dates)
		if !ok {
			continue
		}
		lastDay, err := f.calendar.ParseDay(last)
		if err != nil {
			continue
		}
		hours := now.Sub(lastDay).Hours()
		if hours < 24 || hours >= 48 {
			continue
		}
		streak := CalculateStreak(dates, last)
		if streak <= 0 {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			UserID:       userID,
			StreakLength: streak,
		})
	}
	return candidates, nil
}

// weeklyReviewers returns users with a decision created since Sunday.
func (f *EligibilityFilter) weeklyReviewers(ctx context.Context, now time.Time) ([]domain.Candidate, error) {
	counts, err := f.reader.DecisionCountsSince(ctx, f.calendar.StartOfWeek(now))
	if err != nil {
		return nil, fmt.Errorf("count weekly decisions: %w", err)
	}

	userIDs := make([]string, 0, len(counts))
	for userID, n := range counts {
		if n >= 1 {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Strings(userIDs)

	candidates := make([]domain.Candidate, 0, len(userIDs))
	for _, userID := range userIDs {
		candidates = append(candidates, domain.Candidate{
			UserID:        userID,
			WeekDecisions: counts[userID],
		})
	}
	return candidates, nil
}

func (f *EligibilityFilter) newProfiles(ctx context.Context, now time.Time) ([]domain.Candidate, error) {
	profiles, err := f.reader.ProfilesCreatedSince(ctx, now.Add(-WelcomeWindow))
	if err != nil {
		return nil, fmt.Errorf("load new profiles: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, domain.Candidate{UserID: p.ID})
	}
	return candidates, nil
}
