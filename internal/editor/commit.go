package editor

import (
	"time"

	"calpanel/internal/models"
	"calpanel/internal/timecodec"
)

// Edits are the pending field values of a session.
type Edits struct {
	Summary         string
	Description     string
	StartMinutes    int
	DurationMinutes int
}

// ApplyEdits merges edits into ev. Summary and description are stored verbatim.
// The start keeps its date and sub-minute precision; only hour and minute
// change. Any DURATION is dropped and DTEND is written as start plus the
// edited duration. Attendees are left alone.
//
// day supplies the date when ev has no DTSTART.
func ApplyEdits(ev *models.Event, edits Edits, day time.Time) {
	ev.SetSummary(edits.Summary)
	ev.SetDescription(edits.Description)

	start, ok := ev.Start()
	if !ok {
		start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	}
	start = timecodec.WithMinuteOfDay(start, edits.StartMinutes)
	ev.SetStart(start)

	ev.RemoveDuration()
	ev.SetEnd(timecodec.AddMinutes(start, edits.DurationMinutes))
}
