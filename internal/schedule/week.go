// Package schedule merges two people's events and lays them out per day
// for a one-week window.
package schedule

import (
	"strings"
	"time"
)

// DaysPerWeek is the length of the displayed window
const DaysPerWeek = 7

// ParseWeekStart maps a config value to the first day of the week.
// Anything other than "monday" starts the week on Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(s, "monday") {
		return time.Monday
	}
	return time.Sunday
}

// Week is a 7-day window beginning at midnight on the locale week boundary
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing t
func WeekOf(t time.Time, first time.Weekday, loc *time.Location) Week {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	offset := (int(day.Weekday()) - int(first) + DaysPerWeek) % DaysPerWeek
	return Week{Start: day.AddDate(0, 0, -offset)}
}

// Shift moves the window by n weeks. Calendar days are used so the start
// stays at local midnight across DST changes.
func (w Week) Shift(n int) Week {
	return Week{Start: w.Start.AddDate(0, 0, DaysPerWeek*n)}
}

// End is the exclusive end of the window
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, DaysPerWeek)
}

// Days returns the start of each day in the window
func (w Week) Days() []time.Time {
	days := make([]time.Time, DaysPerWeek)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// Contains reports whether t falls inside the window
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Label is the human readable heading for the window
func (w Week) Label() string {
	return "Week of " + w.Start.Format("Jan 2, 2006")
}

// Key identifies the window in URLs, e.g. "2026-10-11"
func (w Week) Key() string {
	return w.Start.Format(time.DateOnly)
}

// ParseWeek resolves a "YYYY-MM-DD" value to the week containing that date.
// An empty value selects the week containing now.
func ParseWeek(value string, now time.Time, first time.Weekday, loc *time.Location) (Week, error) {
	if loc == nil {
		loc = time.UTC
	}
	if value == "" {
		return WeekOf(now, first, loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return Week{}, err
	}
	return WeekOf(t, first, loc), nil
}

// SameDay reports whether a and b fall on the same calendar date in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
