// Package editor holds the single-event editing session.
//
// A Session keeps the selected (calendar, event) pair and the pending field
// edits. Attendee changes and RSVP responses mutate the event immediately;
// summary, description, start and duration are merged only on Commit. Actions
// that need the host to persist or delete the event return a *Request; a nil
// request means nothing is to be done.
package editor

import (
	"log/slog"

	"calpanel/internal/attendees"
	"calpanel/internal/models"
	"calpanel/internal/rsvp"
	"calpanel/internal/timecodec"
	"calpanel/internal/utils"
)

// Calendar is the collaborator owning an event.
type Calendar interface {
	Name() string
	// OwnerAddress returns the calendar user's address, if configured.
	OwnerAddress() (string, bool)
}

// RequestKind says what the host should do with a request.
type RequestKind int

const (
	RequestSave RequestKind = iota + 1
	RequestDelete
)

func (k RequestKind) String() string {
	switch k {
	case RequestSave:
		return "save"
	case RequestDelete:
		return "delete"
	}
	return "unknown"
}

// Request asks the host to act on an event through its calendar.
type Request struct {
	Kind     RequestKind
	Calendar Calendar
	Event    *models.Event
}

// View is the display projection of a session.
type View struct {
	Selected    bool
	Summary     string
	Description string
	StartsAt    string
	Duration    string
	Attendees   []attendees.Row
}

// Session edits one event at a time. It is not safe for concurrent use.
type Session struct {
	logger *slog.Logger
	clock  utils.Clock

	calendar Calendar
	event    *models.Event

	summary     string
	description string
	startsAt    timecodec.Field
	duration    timecodec.Field
	rows        []attendees.Row
}

// NewSession returns an empty session. The clock supplies the date for
// events committed without a start.
func NewSession(logger *slog.Logger, clock utils.Clock) *Session {
	return &Session{logger: logger, clock: clock}
}

// SetEvent selects ev of cal, discarding unsaved edits. A nil event clears
// the session.
func (s *Session) SetEvent(cal Calendar, ev *models.Event) {
	s.rows = nil
	s.summary, s.description = "", ""
	s.startsAt.SetValue(0)
	s.duration.SetValue(0)

	if ev != nil {
		s.summary = ev.Summary()
		s.description = ev.Description()
		if start, ok := ev.Start(); ok {
			s.startsAt.SetValue(timecodec.MinuteOfDay(start))
		}
		s.duration.SetValue(timecodec.DurationMinutes(ev.Length()))
		s.rows = attendees.Populate(ev)
		s.logger.Debug("Event selected.", "uid", ev.UID(), "attendees", len(s.rows)-1)
	}
	s.event = ev
	s.calendar = cal
}

// Selected returns the current selection. The event is nil when nothing is selected.
func (s *Session) Selected() (Calendar, *models.Event) {
	return s.calendar, s.event
}

// SetSummary sets the pending summary.
func (s *Session) SetSummary(text string) {
	s.summary = text
}

// SetDescription sets the pending description.
func (s *Session) SetDescription(text string) {
	s.description = text
}

// SetStartText decodes a start time. On failure the previous value stays.
func (s *Session) SetStartText(text string) bool {
	if !s.startsAt.SetText(text) {
		s.logger.Debug("Ignoring malformed start time.", "text", text)
		return false
	}
	return true
}

// SetDurationText decodes a duration. On failure the previous value stays.
func (s *Session) SetDurationText(text string) bool {
	if !s.duration.SetText(text) {
		s.logger.Debug("Ignoring malformed duration.", "text", text)
		return false
	}
	return true
}

// SetStartMinutes, SetDurationMinutes and the step methods drive the spin fields.
func (s *Session) SetStartMinutes(m int)    { s.startsAt.SetValue(m) }
func (s *Session) SetDurationMinutes(m int) { s.duration.SetValue(m) }
func (s *Session) StepStart(n int)          { s.startsAt.Step(n) }
func (s *Session) StepDuration(n int)       { s.duration.Step(n) }

// Edits returns the pending field values.
func (s *Session) Edits() Edits {
	return Edits{
		Summary:         s.summary,
		Description:     s.description,
		StartMinutes:    s.startsAt.Value(),
		DurationMinutes: s.duration.Value(),
	}
}

// AddAttendee appends raw as a new attendee of the selected event.
func (s *Session) AddAttendee(raw string) {
	if s.event == nil {
		return
	}
	s.rows = attendees.Add(s.event, raw)
}

// RemoveAttendee un-invites the attendee behind id.
func (s *Session) RemoveAttendee(id attendees.ID) bool {
	if s.event == nil {
		return false
	}
	rows, ok := attendees.Remove(s.event, id)
	s.rows = rows
	return ok
}

// ActivateRow handles the action button of row i. For the placeholder row it
// changes nothing and returns true, asking the host to focus the entry; for a
// real attendee it removes that attendee.
func (s *Session) ActivateRow(i int) (focusEntry bool) {
	if i < 0 || i >= len(s.rows) {
		return false
	}
	row := s.rows[i]
	if row.Placeholder {
		return true
	}
	s.RemoveAttendee(row.ID)
	return false
}

// RSVP records the owner's response. A save request is returned only when an
// attendee matching the owner was updated.
func (s *Session) RSVP(action rsvp.Action) *Request {
	if s.event == nil || s.calendar == nil {
		return nil
	}
	status, ok := action.Status()
	if !ok {
		return nil
	}
	owner, ok := s.calendar.OwnerAddress()
	if !ok {
		s.logger.Debug("Calendar has no owner address, ignoring RSVP.", "calendar", s.calendar.Name())
		return nil
	}
	if !rsvp.Apply(s.event, owner, status) {
		s.logger.Debug("Owner is not an attendee, ignoring RSVP.", "uid", s.event.UID(), "owner", owner)
		return nil
	}
	s.rows = attendees.Populate(s.event)
	return s.request(RequestSave)
}

// Commit merges the pending edits into the event and requests a save.
func (s *Session) Commit() *Request {
	if s.event == nil {
		return nil
	}
	ApplyEdits(s.event, s.Edits(), s.clock.Now())
	return s.request(RequestSave)
}

// Delete requests deletion of the selected event.
func (s *Session) Delete() *Request {
	if s.event == nil {
		return nil
	}
	return s.request(RequestDelete)
}

func (s *Session) request(kind RequestKind) *Request {
	return &Request{Kind: kind, Calendar: s.calendar, Event: s.event}
}

// View projects the session state for rendering. The attendee rows are a copy.
func (s *Session) View() View {
	rows := make([]attendees.Row, len(s.rows))
	copy(rows, s.rows)
	return View{
		Selected:    s.event != nil,
		Summary:     s.summary,
		Description: s.description,
		StartsAt:    s.startsAt.Text(),
		Duration:    s.duration.Text(),
		Attendees:   rows,
	}
}
