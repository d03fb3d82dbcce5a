package usecase

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar-date form used for activity keys and
// snapshot dates.
const DateLayout = "2006-01-02"

// DateSet is a set of ISO calendar dates.
type DateSet map[string]struct{}

// NewDateSet builds a set from the given dates.
func NewDateSet(dates ...string) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

func (s DateSet) Add(date string) {
	s[date] = struct{}{}
}

func (s DateSet) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Descending returns the dates newest first.
func (s DateSet) Descending() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Calendar pins "now" and day boundaries to one reference zone. Every user's
// streak and week are evaluated in this zone, not the profile's timezone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a calendar; a nil now uses time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the reference zone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// DayKey formats the calendar day containing t.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// Today is the DayKey of Now.
func (c *Calendar) Today() string {
	return c.DayKey(c.Now())
}

// StartOfDay returns midnight of the day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// StartOfWeek returns midnight of the Sunday on or before t.
func (c *Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// ParseDay returns midnight of an ISO date in the reference zone.
func (c *Calendar) ParseDay(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, c.loc)
}
