// Package attendees derives the display list of an event's attendees.
//
// The list is always rebuilt from the event: every stored ATTENDEE becomes one
// row, in stored order, followed by exactly one placeholder row used to enter
// a new address.
package attendees

import (
	"strings"

	"calpanel/internal/models"
)

// ID identifies the attendee a row was built from. It is only meaningful for
// the snapshot that produced it.
type ID struct {
	Index   int
	Address string
}

// Row is one entry of the attendee list.
type Row struct {
	Status      models.ParticipationStatus
	Address     string
	ID          ID
	Placeholder bool
}

// Populate builds the row snapshot for ev. A nil event yields an empty list.
func Populate(ev *models.Event) []Row {
	if ev == nil {
		return nil
	}
	list := ev.Attendees()
	rows := make([]Row, 0, len(list)+1)
	for i, a := range list {
		rows = append(rows, Row{
			Status:  a.Status,
			Address: a.Address,
			ID:      ID{Index: i, Address: a.Address},
		})
	}
	return append(rows, Row{ID: ID{Index: -1}, Placeholder: true})
}

// Add appends an attendee with no participation status and returns the new
// snapshot. Blank input is ignored.
func Add(ev *models.Event, raw string) []Row {
	if strings.TrimSpace(raw) != "" {
		ev.AddAttendee(raw)
	}
	return Populate(ev)
}

// Remove deletes the attendee identified by id and returns the new snapshot.
// An id whose address no longer matches the stored record is ignored.
func Remove(ev *models.Event, id ID) ([]Row, bool) {
	list := ev.Attendees()
	if id.Index < 0 || id.Index >= len(list) || list[id.Index].Address != id.Address {
		return Populate(ev), false
	}
	ok := ev.RemoveAttendeeAt(id.Index)
	return Populate(ev), ok
}
