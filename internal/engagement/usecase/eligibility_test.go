package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	"decisionlog-backend/internal/engagement/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilter(reader *fakeReader) *EligibilityFilter {
	cal := testCalendar()
	return NewEligibilityFilter(reader, NewActivityAggregator(reader, cal), cal)
}

func candidateDecisionIDs(candidates []domain.Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TargetKey())
	}
	return ids
}

func TestOutcomeReminderWindows(t *testing.T) {
	day := 24 * time.Hour
	noChoice := decided("no-choice", "u1", intPtr(50), fixedNow.Add(-3*day))
	noChoice.ChosenOptionID = nil

	reader := &fakeReader{
		decisions: []decisiondomain.Decision{
			decided("three-days", "u1", intPtr(50), fixedNow.Add(-3*day)),
			decided("eight-days", "u1", intPtr(50), fixedNow.Add(-8*day)),
			decided("ninety-five-days", "u1", intPtr(50), fixedNow.Add(-95*day)),
			decided("closed", "u1", intPtr(50), fixedNow.Add(-3*day)),
			decided("exactly-seven", "u1", intPtr(50), fixedNow.Add(-7*day)),
			noChoice,
		},
		outcomes: []decisiondomain.Outcome{
			outcome("closed", "u1", decisiondomain.OutcomeSuccess, fixedNow.Add(-day)),
		},
	}
	filter := newTestFilter(reader)

	due, err := filter.Candidates(context.Background(), domain.CategoryOutcomeDue)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"three-days"}, candidateDecisionIDs(due))

	overdue, err := filter.Candidates(context.Background(), domain.CategoryOutcomeOverdue)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eight-days", "exactly-seven"}, candidateDecisionIDs(overdue))

	require.Len(t, due, 1)
	assert.Equal(t, "u1", due[0].UserID)
	assert.Equal(t, "decision three-days", due[0].DecisionTitle)
	require.NotNil(t, due[0].DecidedAt)
}

func TestStreakSaveCandidates(t *testing.T) {
	reader := &fakeReader{
		checkIns: []decisiondomain.CheckIn{
			// at risk: last active yesterday with a three-day run
			{ID: "a1", UserID: "at-risk", Date: "2026-10-13"},
			{ID: "a2", UserID: "at-risk", Date: "2026-10-12"},
			{ID: "a3", UserID: "at-risk", Date: "2026-10-11"},
			{ID: "a4", UserID: "at-risk", Date: "2026-10-09"},
			// already active today
			{ID: "b1", UserID: "active-today", Date: "2026-10-14"},
			{ID: "b2", UserID: "active-today", Date: "2026-10-13"},
			// already broken
			{ID: "c1", UserID: "lapsed", Date: "2026-10-12"},
		},
		decisions: []decisiondomain.Decision{
			{ID: "d1", UserID: "decision-only", Title: "x", CreatedAt: time.Date(2026, 10, 13, 22, 0, 0, 0, time.UTC)},
		},
	}
	filter := newTestFilter(reader)

	candidates, err := filter.Candidates(context.Background(), domain.CategoryStreakSave)
	require.NoError(t, err)

	streaks := make(map[string]int)
	for _, c := range candidates {
		assert.Nil(t, c.DecisionID)
		streaks[c.UserID] = c.StreakLength
	}
	assert.Equal(t, map[string]int{"at-risk": 3, "decision-only": 1}, streaks)
}

func TestWeeklyReviewStartsOnSunday(t *testing.T) {
	reader := &fakeReader{
		decisions: []decisiondomain.Decision{
			{ID: "d1", UserID: "sunday", Title: "x", CreatedAt: time.Date(2026, 10, 11, 0, 30, 0, 0, time.UTC)},
			{ID: "d2", UserID: "sunday", Title: "y", CreatedAt: time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)},
			{ID: "d3", UserID: "saturday", Title: "z", CreatedAt: time.Date(2026, 10, 10, 23, 0, 0, 0, time.UTC)},
		},
	}
	filter := newTestFilter(reader)

	candidates, err := filter.Candidates(context.Background(), domain.CategoryWeeklyReview)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "sunday", candidates[0].UserID)
	assert.Equal(t, 2, candidates[0].WeekDecisions)
	assert.Empty(t, candidates[0].TargetKey())
}

func TestWelcomeCandidates(t *testing.T) {
	reader := &fakeReader{
		profiles: []decisiondomain.Profile{
			{ID: "new", Email: "new@example.com", CreatedAt: fixedNow.Add(-10 * time.Hour)},
			{ID: "old", Email: "old@example.com", CreatedAt: fixedNow.Add(-72 * time.Hour)},
		},
	}
	filter := newTestFilter(reader)

	candidates, err := filter.Candidates(context.Background(), domain.CategoryWelcome)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "new", candidates[0].UserID)
}

func TestCandidatesErrors(t *testing.T) {
	_, err := newTestFilter(&fakeReader{}).Candidates(context.Background(), domain.Category("daily_digest"))
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	dbErr := errors.New("db down")
	for _, category := range domain.AllCategories() {
		_, err := newTestFilter(&fakeReader{err: dbErr}).Candidates(context.Background(), category)
		assert.ErrorIs(t, err, dbErr, "category %s", category)
	}
}

func TestActivityDatesMergesSources(t *testing.T) {
	reader := &fakeReader{
		decisions: []decisiondomain.Decision{
			{ID: "d1", UserID: "u1", Title: "x", CreatedAt: time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)},
		},
		outcomes: []decisiondomain.Outcome{
			{ID: "o1", DecisionID: "d0", UserID: "u1", Result: decisiondomain.OutcomeSuccess, CompletedAt: time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC)},
		},
		checkIns: []decisiondomain.CheckIn{
			{ID: "c1", UserID: "u1", Date: "2026-10-14T00:00:00Z"},
			{ID: "c2", UserID: "u1", Date: "2026-10-12"},
			{ID: "c3", UserID: "u2", Date: "2026-10-14"},
		},
	}
	agg := NewActivityAggregator(reader, testCalendar())

	dates, err := agg.ActivityDates(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-14", "2026-10-13", "2026-10-12"}, dates.Descending())

	none, err := agg.ActivityDates(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
