package usecase

import (
	"context"
	"fmt"
	"time"

	"decisionlog-backend/internal/decision/repository"
)

// ActivityAggregator merges decision creation, check-in and outcome
// completion into per-user sets of active days. It never writes.
type ActivityAggregator struct {
	reader   repository.DecisionReader
	calendar *Calendar
}

// NewActivityAggregator creates a new ActivityAggregator
func NewActivityAggregator(reader repository.DecisionReader, calendar *Calendar) *ActivityAggregator {
	return &ActivityAggregator{reader: reader, calendar: calendar}
}

// ActivityDates returns every active day in the user's history.
func (a *ActivityAggregator) ActivityDates(ctx context.Context, userID string) (DateSet, error) {
	byUser, err := a.ActivityDatesForUsers(ctx, []string{userID}, time.Time{})
	if err != nil {
		return nil, err
	}
	if dates, ok := byUser[userID]; ok {
		return dates, nil
	}
	return DateSet{}, nil
}

// ActivityDatesForUsers returns active days at or after since, keyed by
// user. An empty userIDs slice scans all users; a zero since scans all
// history. Users without activity are absent from the result.
func (a *ActivityAggregator) ActivityDatesForUsers(ctx context.Context, userIDs []string, since time.Time) (map[string]DateSet, error) {
	sinceDate := ""
	if !since.IsZero() {
		sinceDate = a.calendar.DayKey(since)
	}

	created, err := a.reader.DecisionCreationTimes(ctx, userIDs, since)
	if err != nil {
		return nil, fmt.Errorf("load decision dates: %w", err)
	}
	completed, err := a.reader.OutcomeCompletionTimes(ctx, userIDs, since)
	if err != nil {
		return nil, fmt.Errorf("load outcome dates: %w", err)
	}
	checkIns, err := a.reader.CheckInDates(ctx, userIDs, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("load check-in dates: %w", err)
	}

	result := make(map[string]DateSet)
	add := func(userID, date string) {
		set, ok := result[userID]
		if !ok {
			set = DateSet{}
			result[userID] = set
		}
		set.Add(date)
	}

	for _, row := range created {
		add(row.UserID, a.calendar.DayKey(row.At))
	}
	for _, row := range completed {
		add(row.UserID, a.calendar.DayKey(row.At))
	}
	for _, row := range checkIns {
		if len(row.Date) < len(DateLayout) {
			continue
		}
		// check_ins.date may come back as a full timestamp from some drivers
		add(row.UserID, row.Date[:len(DateLayout)])
	}

	return result, nil
}
