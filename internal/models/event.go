package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const (
	paramTimezoneID          = "TZID"
	paramParticipationStatus = "PARTSTAT"

	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// ErrNoStart is returned by operations that need a DTSTART the event lacks.
var ErrNoStart = errors.New("event has no start time")

// Event is the canonical calendar event: a VEVENT component owned by its
// calendar. The editor mutates it in place while the event is selected.
type Event struct {
	Component *ical.Component
}

// Attendee is a snapshot of one ATTENDEE property.
type Attendee struct {
	Address string
	Status  ParticipationStatus
}

// NewEvent creates an empty VEVENT with the given UID.
func NewEvent(uid string) *Event {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	return &Event{Component: comp}
}

// FromComponent wraps an existing VEVENT.
func FromComponent(comp *ical.Component) *Event {
	return &Event{Component: comp}
}

// UID returns the event's UID.
func (e *Event) UID() string {
	return e.text(ical.PropUID)
}

// Summary returns SUMMARY, or "" when absent.
func (e *Event) Summary() string {
	return e.text(ical.PropSummary)
}

// SetSummary stores SUMMARY verbatim.
func (e *Event) SetSummary(summary string) {
	e.Component.Props.SetText(ical.PropSummary, summary)
}

// Description returns DESCRIPTION, or "" when absent.
func (e *Event) Description() string {
	return e.text(ical.PropDescription)
}

// SetDescription stores DESCRIPTION verbatim.
func (e *Event) SetDescription(description string) {
	e.Component.Props.SetText(ical.PropDescription, description)
}

func (e *Event) text(name string) string {
	s, err := e.Component.Props.Text(name)
	if err != nil {
		return ""
	}
	return s
}

// Start returns DTSTART. Floating times, and times whose TZID names no known
// location, are returned in UTC with their wall clock values intact.
func (e *Event) Start() (time.Time, bool) {
	return e.dateTime(ical.PropDateTimeStart)
}

// SetStart writes DTSTART, keeping the floating or unknown-TZID form if the
// event already used one.
func (e *Event) SetStart(t time.Time) {
	e.setDateTime(ical.PropDateTimeStart, t)
}

// End returns DTEND if stored.
func (e *Event) End() (time.Time, bool) {
	return e.dateTime(ical.PropDateTimeEnd)
}

// SetEnd writes DTEND in the same form as DTSTART. Callers must drop DURATION
// first; an event never carries both.
func (e *Event) SetEnd(t time.Time) {
	e.setDateTime(ical.PropDateTimeEnd, t)
}

// RemoveEnd deletes DTEND.
func (e *Event) RemoveEnd() {
	delete(e.Component.Props, ical.PropDateTimeEnd)
}

// Duration returns the DURATION property if stored.
func (e *Event) Duration() (time.Duration, bool) {
	prop := e.Component.Props.Get(ical.PropDuration)
	if prop == nil {
		return 0, false
	}
	d, err := prop.Duration()
	if err != nil {
		return 0, false
	}
	return d, true
}

// SetDuration stores DURATION and drops DTEND.
func (e *Event) SetDuration(d time.Duration) {
	e.RemoveEnd()
	prop := ical.NewProp(ical.PropDuration)
	prop.Value = formatDuration(d)
	e.Component.Props.Set(prop)
}

// RemoveDuration deletes DURATION. It is a no-op when none is stored.
func (e *Event) RemoveDuration() {
	delete(e.Component.Props, ical.PropDuration)
}

// Length is the effective event length: DTEND-DTSTART, else DURATION, else 0.
func (e *Event) Length() time.Duration {
	start, ok := e.Start()
	if !ok {
		return 0
	}
	if end, ok := e.End(); ok {
		return end.Sub(start)
	}
	if d, ok := e.Duration(); ok {
		return d
	}
	return 0
}

// formatDuration renders d as an RFC 5545 DURATION value, e.g. "PT1H30M".
func formatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	d = d.Truncate(time.Second)
	b.WriteByte('P')
	if days := d / (24 * time.Hour); days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * 24 * time.Hour
	}
	if d == 0 {
		if b.Len() <= 2 {
			b.WriteString("T0S")
		}
		return b.String()
	}
	b.WriteByte('T')
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if sec := d / time.Second; sec > 0 {
		fmt.Fprintf(&b, "%dS", sec)
	}
	return b.String()
}

func (e *Event) dateTime(name string) (time.Time, bool) {
	prop := e.Component.Props.Get(name)
	if prop == nil {
		return time.Time{}, false
	}
	t, err := prop.DateTime(time.UTC)
	if err == nil {
		return t, true
	}
	if prop.Params.Get(paramTimezoneID) == "" {
		return time.Time{}, false
	}
	// Outlook and custom VTIMEZONE ids: keep the wall clock.
	for _, layout := range []string{floatingLayout, dateLayout} {
		if t, err := time.ParseInLocation(layout, prop.Value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (e *Event) setDateTime(name string, t time.Time) {
	prop := ical.NewProp(name)
	if prop.Params == nil {
		prop.Params = make(ical.Params)
	}
	switch tzid, opaque := e.opaqueZone(); {
	case opaque:
		prop.Value = t.Format(floatingLayout)
		prop.Params.Set(paramTimezoneID, tzid)
	case e.floating():
		prop.Value = t.Format(floatingLayout)
	default:
		prop.SetDateTime(t)
	}
	e.Component.Props.Set(prop)
}

// floating reports whether DTSTART is a local time without TZID or UTC marker.
func (e *Event) floating() bool {
	prop := e.Component.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return false
	}
	return prop.Params.Get(paramTimezoneID) == "" && !strings.HasSuffix(prop.Value, "Z")
}

// opaqueZone returns the TZID of DTSTART when it names no loadable location.
func (e *Event) opaqueZone() (string, bool) {
	prop := e.Component.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return "", false
	}
	tzid := prop.Params.Get(paramTimezoneID)
	if tzid == "" {
		return "", false
	}
	if _, err := time.LoadLocation(tzid); err != nil {
		return tzid, true
	}
	return "", false
}

// Attendees returns the ATTENDEE properties in stored order.
func (e *Event) Attendees() []Attendee {
	props := e.Component.Props[ical.PropAttendee]
	out := make([]Attendee, 0, len(props))
	for _, p := range props {
		out = append(out, Attendee{
			Address: p.Value,
			Status:  ParseParticipationStatus(p.Params.Get(paramParticipationStatus)),
		})
	}
	return out
}

// AddAttendee appends an ATTENDEE with no participation status.
func (e *Event) AddAttendee(address string) {
	prop := ical.NewProp(ical.PropAttendee)
	prop.Value = address
	e.Component.Props.Add(prop)
}

// RemoveAttendeeAt deletes the i-th ATTENDEE.
func (e *Event) RemoveAttendeeAt(i int) bool {
	props := e.Component.Props[ical.PropAttendee]
	if i < 0 || i >= len(props) {
		return false
	}
	props = append(props[:i:i], props[i+1:]...)
	if len(props) == 0 {
		delete(e.Component.Props, ical.PropAttendee)
	} else {
		e.Component.Props[ical.PropAttendee] = props
	}
	return true
}

// SetParticipationStatus sets PARTSTAT on the i-th ATTENDEE, creating the
// parameter if absent. StatusNone removes it.
func (e *Event) SetParticipationStatus(i int, status ParticipationStatus) bool {
	props := e.Component.Props[ical.PropAttendee]
	if i < 0 || i >= len(props) {
		return false
	}
	p := &props[i]
	if p.Params == nil {
		p.Params = make(ical.Params)
	}
	if status == StatusNone {
		delete(p.Params, paramParticipationStatus)
	} else {
		p.Params.Set(paramParticipationStatus, status.String())
	}
	return true
}

// AttendeeParam returns parameter name of the i-th ATTENDEE, or "".
func (e *Event) AttendeeParam(i int, name string) string {
	props := e.Component.Props[ical.PropAttendee]
	if i < 0 || i >= len(props) {
		return ""
	}
	return props[i].Params.Get(name)
}

// SetAttendeeParam sets parameter name on the i-th ATTENDEE. An empty value
// removes it.
func (e *Event) SetAttendeeParam(i int, name, value string) bool {
	props := e.Component.Props[ical.PropAttendee]
	if i < 0 || i >= len(props) {
		return false
	}
	p := &props[i]
	if p.Params == nil {
		p.Params = make(ical.Params)
	}
	if value == "" {
		delete(p.Params, name)
	} else {
		p.Params.Set(name, value)
	}
	return true
}

// NewCalendarObject wraps the event in a VCALENDAR ready for encoding.
func NewCalendarObject(e *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calpanel//EN")
	cal.Children = append(cal.Children, e.Component)
	return cal
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
