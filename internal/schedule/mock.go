package schedule

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"calendar-share/internal/models"
)

type sampleEvent struct {
	title    string
	hour     int
	minute   int
	duration int
}

var sampleEvents = []sampleEvent{
	{"Morning Standup", 9, 0, 30},
	{"Team Meeting", 14, 0, 60},
	{"Lunch Break", 12, 0, 60},
	{"Project Review", 16, 0, 45},
	{"Coffee Chat", 10, 30, 30},
}

// MockSource synthesizes a plausible week of events for a connection.
// Output depends only on the user and the week, so reloading a week shows
// the same schedule.
type MockSource struct {
	Loc *time.Location
}

// Events returns synthetic events for the week starting at from. Each day
// has a 70% chance of one to three events.
func (m MockSource) Events(_ context.Context, conn *models.CalendarConnection, from, _ time.Time, owner string) ([]models.Event, error) {
	loc := m.Loc
	if loc == nil {
		loc = from.Location()
	}
	from = from.In(loc)
	weekStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	h := fnv.New64a()
	h.Write([]byte(conn.UserID))
	h.Write([]byte(owner))
	rng := rand.New(rand.NewPCG(h.Sum64(), uint64(weekStart.Unix())))

	var events []models.Event
	for i := 0; i < DaysPerWeek; i++ {
		day := weekStart.AddDate(0, 0, i)
		if rng.Float64() <= 0.3 {
			continue
		}
		n := rng.IntN(3) + 1
		for j := 0; j < n; j++ {
			s := sampleEvents[rng.IntN(len(sampleEvents))]
			events = append(events, models.Event{
				ID:       fmt.Sprintf("%s-%d-%d", conn.UserID, i, j),
				Title:    owner + ": " + s.title,
				Start:    time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, loc),
				Duration: s.duration,
				Owner:    owner,
			})
		}
	}
	return events, nil
}
