package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	decisionrepo "decisionlog-backend/internal/decision/repository"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/repository"
	"decisionlog-backend/pkg/logger"
)

// Health score weights. They sum to 1 so the score spans 0-100.
const (
	weightWinRate     = 0.35
	weightCalibration = 0.25
	weightCompletion  = 0.25
	weightStreak      = 0.15

	// streakSaturation is the streak length that earns the full streak weight
	streakSaturation = 30
)

// HealthMetrics are the components of a health snapshot.
type HealthMetrics struct {
	HealthScore       int
	WinRate           float64
	AvgCalibrationGap float64
	CompletionRate    float64
	StreakLength      int
	DecisionsCount    int
	OutcomesCount     int
}

// ComputeHealth derives the health metrics from a user's decisions and
// outcomes. Every ratio is 0 when its denominator is empty.
func ComputeHealth(decisions []decisiondomain.Decision, outcomes []decisiondomain.Outcome, streak int) HealthMetrics {
	byDecision := make(map[string]*decisiondomain.Outcome, len(outcomes))
	for i := range outcomes {
		byDecision[outcomes[i].DecisionID] = &outcomes[i]
	}

	wins := 0
	for _, o := range byDecision {
		if o.Favorable() {
			wins++
		}
	}

	var gapSum float64
	gapCount := 0
	decided, completed := 0, 0
	for i := range decisions {
		d := &decisions[i]
		outcome, closed := byDecision[d.ID]
		if d.DecidedAt != nil {
			decided++
			if closed {
				completed++
			}
		}
		if closed && d.Confidence != nil {
			confidence := clamp(float64(*d.Confidence)/100, 0, 1)
			gapSum += math.Abs(confidence - outcome.Realized())
			gapCount++
		}
	}

	if streak < 0 {
		streak = 0
	}

	m := HealthMetrics{
		WinRate:           ratio(float64(wins), len(byDecision)),
		AvgCalibrationGap: ratio(gapSum, gapCount),
		CompletionRate:    ratio(float64(completed), decided),
		StreakLength:      streak,
		DecisionsCount:    len(decisions),
		OutcomesCount:     len(byDecision),
	}
	m.HealthScore = HealthScore(m.WinRate, m.AvgCalibrationGap, m.CompletionRate, m.StreakLength)
	return m
}

// HealthScore is a weighted composite bounded to [0,100]. It rises with win
// rate, completion and streak and falls with calibration gap.
func HealthScore(winRate, calibrationGap, completionRate float64, streak int) int {
	streakPart := clamp(float64(streak)/streakSaturation, 0, 1)
	raw := weightWinRate*clamp(winRate, 0, 1) +
		weightCalibration*(1-clamp(calibrationGap, 0, 1)) +
		weightCompletion*clamp(completionRate, 0, 1) +
		weightStreak*streakPart
	return int(clamp(math.Round(raw*100), 0, 100))
}

func ratio(num float64, den int) float64 {
	if den == 0 {
		return 0
	}
	return num / float64(den)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// HealthScorer computes and persists daily health snapshots.
type HealthScorer struct {
	reader    decisionrepo.DecisionReader
	activity  *ActivityAggregator
	snapshots repository.HealthSnapshotRepository
	calendar  *Calendar
}

// NewHealthScorer creates a new HealthScorer
func NewHealthScorer(reader decisionrepo.DecisionReader, activity *ActivityAggregator, snapshots repository.HealthSnapshotRepository, calendar *Calendar) *HealthScorer {
	return &HealthScorer{
		reader:    reader,
		activity:  activity,
		snapshots: snapshots,
		calendar:  calendar,
	}
}

// Snapshot recomputes the user's metrics and upserts today's snapshot.
// Running it again on the same day overwrites the earlier row.
func (s *HealthScorer) Snapshot(ctx context.Context, userID string) (*domain.HealthSnapshot, error) {
	decisions, err := s.reader.DecisionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	outcomes, err := s.reader.OutcomesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	dates, err := s.activity.ActivityDates(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	m := ComputeHealth(decisions, outcomes, CalculateStreak(dates, today))

	snapshot, err := s.snapshots.Upsert(ctx, &domain.HealthSnapshot{
		UserID:            userID,
		SnapshotDate:      today,
		HealthScore:       m.HealthScore,
		WinRate:           m.WinRate,
		AvgCalibrationGap: m.AvgCalibrationGap,
		CompletionRate:    m.CompletionRate,
		StreakLength:      m.StreakLength,
		DecisionsCount:    m.DecisionsCount,
		OutcomesCount:     m.OutcomesCount,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert health snapshot: %w", err)
	}
	return snapshot, nil
}

// SnapshotActiveUsers refreshes the snapshot of every user with activity in
// the last lookbackDays days (today included). Failures for one user are
// logged and counted as skipped.
func (s *HealthScorer) SnapshotActiveUsers(ctx context.Context, lookbackDays int) (*domain.RunResult, error) {
	if lookbackDays < 1 {
		lookbackDays = 1
	}
	since := s.calendar.StartOfDay(s.calendar.Now()).AddDate(0, 0, -(lookbackDays - 1))

	active, err := s.activity.ActivityDatesForUsers(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("fetch active users: %w", err)
	}

	userIDs := make([]string, 0, len(active))
	for userID := range active {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	result := &domain.RunResult{Total: len(userIDs)}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Snapshot(ctx, userID); err != nil {
			logger.Warn("[HealthScorer] snapshot failed", "user", userID, "err", err)
			result.Skipped++
			continue
		}
		result.Sent++
	}

	result.Message = fmt.Sprintf("health snapshots refreshed for %d users", result.Sent)
	logger.Info("[HealthScorer] batch complete", "total", result.Total, "written", result.Sent, "skipped", result.Skipped)
	return result, nil
}
