package schedule

import (
	"slices"
	"time"

	"calendar-share/internal/models"
)

// Empty-state markers
const (
	NoEventsDay  = "No events"
	NoEventsWeek = "No events this week"
)

// Merge combines both sequences into one ordered by start time.
// Events with equal start keep their input order, self before partner.
func Merge(self, partner []models.Event) []models.Event {
	merged := make([]models.Event, 0, len(self)+len(partner))
	merged = append(merged, self...)
	merged = append(merged, partner...)
	slices.SortStableFunc(merged, func(a, b models.Event) int {
		return a.Start.Compare(b.Start)
	})
	return merged
}

// Bucket splits merged into one slice per day of the week. Order within a
// bucket follows merged; events outside the week land in no bucket.
func Bucket(week Week, merged []models.Event) [][]models.Event {
	loc := week.Start.Location()
	days := week.Days()
	buckets := make([][]models.Event, DaysPerWeek)
	for _, e := range merged {
		for i, day := range days {
			if SameDay(e.Start, day, loc) {
				buckets[i] = append(buckets[i], e)
				break
			}
		}
	}
	return buckets
}

// DayView is one column of the week grid
type DayView struct {
	Date      string         `json:"date"`
	Weekday   string         `json:"weekday"`
	Day       string         `json:"day"`
	IsToday   bool           `json:"is_today"`
	Events    []models.Event `json:"events"`
	Empty     bool           `json:"empty"`
	EmptyText string         `json:"empty_text,omitempty"`
}

// WeekView is the rendered shared calendar for one week
type WeekView struct {
	WeekStart string         `json:"week_start"`
	WeekLabel string         `json:"week_label"`
	PrevWeek  string         `json:"prev_week"`
	NextWeek  string         `json:"next_week"`
	Days      []DayView      `json:"days"`
	Events    []models.Event `json:"events"`
	EmptyText string         `json:"empty_text,omitempty"`
}

// BuildView merges both sides and lays them out for the week. The list
// view only carries events inside the window.
func BuildView(week Week, now time.Time, self, partner []models.Event) WeekView {
	merged := Merge(self, partner)
	inWeek := make([]models.Event, 0, len(merged))
	for _, e := range merged {
		if week.Contains(e.Start) {
			inWeek = append(inWeek, e)
		}
	}

	loc := week.Start.Location()
	buckets := Bucket(week, inWeek)
	view := WeekView{
		WeekStart: week.Key(),
		WeekLabel: week.Label(),
		PrevWeek:  week.Shift(-1).Key(),
		NextWeek:  week.Shift(1).Key(),
		Days:      make([]DayView, 0, DaysPerWeek),
		Events:    inWeek,
	}

	for i, day := range week.Days() {
		events := buckets[i]
		if events == nil {
			events = []models.Event{}
		}
		dv := DayView{
			Date:    day.Format(time.DateOnly),
			Weekday: day.Format("Mon"),
			Day:     day.Format("2"),
			IsToday: SameDay(day, now, loc),
			Events:  events,
			Empty:   len(events) == 0,
		}
		if dv.Empty {
			dv.EmptyText = NoEventsDay
		}
		view.Days = append(view.Days, dv)
	}

	if len(inWeek) == 0 {
		view.EmptyText = NoEventsWeek
	}
	return view
}
