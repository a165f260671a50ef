package schedule

import (
	"io"
	"time"

	"calendar-share/internal/models"

	ical "github.com/arran4/golang-ical"
)

// WriteICS serializes the events of a week as an iCalendar feed
func WriteICS(w io.Writer, name string, week Week, events []models.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calendar-share//shared week//EN")
	cal.SetName(name)
	cal.SetXWRCalName(name)

	stamp := time.Now().UTC()
	for _, e := range events {
		if !week.Contains(e.Start) {
			continue
		}
		ev := cal.AddEvent(e.ID + "@calendar-share")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End().UTC())
		ev.SetSummary(e.Title)
		ev.SetProperty(ical.ComponentPropertyCategories, e.Owner)
	}

	return cal.SerializeTo(w)
}
