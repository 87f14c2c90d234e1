// Package rsvp applies the calendar owner's own participation responses.
package rsvp

import (
	"regexp"
	"strings"

	"calpanel/internal/models"
)

// Action is a self-RSVP button.
type Action string

const (
	Accept    Action = "accept"
	Tentative Action = "tentative"
	Decline   Action = "decline"
)

// Status returns the participation status an action records.
func (a Action) Status() (models.ParticipationStatus, bool) {
	switch a {
	case Accept:
		return models.StatusAccepted, true
	case Tentative:
		return models.StatusTentative, true
	case Decline:
		return models.StatusDeclined, true
	}
	return models.StatusNone, false
}

var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// StripScheme removes a leading URI scheme such as "mailto:".
func StripScheme(address string) string {
	return schemePrefix.ReplaceAllString(address, "")
}

// Matches reports whether an attendee calendar address belongs to owner.
// Comparison is case-insensitive and ignores a scheme on either side.
func Matches(address, owner string) bool {
	return strings.EqualFold(StripScheme(address), StripScheme(owner))
}

// Apply sets status on the first attendee matching owner. It returns false,
// changing nothing, when owner is empty or no attendee matches.
func Apply(ev *models.Event, owner string, status models.ParticipationStatus) bool {
	if ev == nil || owner == "" {
		return false
	}
	for i, a := range ev.Attendees() {
		if Matches(a.Address, owner) {
			return ev.SetParticipationStatus(i, status)
		}
	}
	return false
}
