package models

import "strings"

// ParticipationStatus is an attendee's response to an invitation.
type ParticipationStatus int

const (
	// StatusNone means the attendee carries no PARTSTAT parameter.
	StatusNone ParticipationStatus = iota
	StatusNeedsAction
	StatusAccepted
	StatusDeclined
	StatusTentative
)

// String returns the iCalendar PARTSTAT token, or "" for StatusNone.
func (s ParticipationStatus) String() string {
	switch s {
	case StatusNeedsAction:
		return "NEEDS-ACTION"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusDeclined:
		return "DECLINED"
	case StatusTentative:
		return "TENTATIVE"
	}
	return ""
}

// ParseParticipationStatus maps a PARTSTAT token to a status. Tokens outside the
// supported set (DELEGATED, COMPLETED, x-names) map to StatusNone.
func ParseParticipationStatus(token string) ParticipationStatus {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "NEEDS-ACTION":
		return StatusNeedsAction
	case "ACCEPTED":
		return StatusAccepted
	case "DECLINED":
		return StatusDeclined
	case "TENTATIVE":
		return StatusTentative
	}
	return StatusNone
}
