package usecase

import "time"

// CalculateStreak counts consecutive active days ending at today (an ISO
// date). Dates after today are ignored and the walk stops at the first
// missing day, so a user with no activity today has a streak of 0.
func CalculateStreak(dates DateSet, today string) int {
	expected, err := time.Parse(DateLayout, today)
	if err != nil {
		return 0
	}

	streak := 0
	for _, date := range dates.Descending() {
		want := expected.Format(DateLayout)
		if date > want {
			continue
		}
		if date < want {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// LastActiveDay returns the most recent date in the set.
func LastActiveDay(dates DateSet) (string, bool) {
	last := ""
	for d := range dates {
		if d > last {
			last = d
		}
	}
	return last, last != ""
}
