// Package timecodec converts between minute-of-day offsets and "HH:MM" text.
// Values never carry a time zone and are always clamped to a single day.
package timecodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxMinutes is the last minute of a day.
	MaxMinutes = 24*60 - 1
	// StepMinutes is the spin increment of a time field.
	StepMinutes = 15
)

// ErrParse is returned when text does not look like H:M.
var ErrParse = errors.New("malformed time text")

// Clamp limits minutes to [0, MaxMinutes].
func Clamp(minutes int) int {
	switch {
	case minutes < 0:
		return 0
	case minutes > MaxMinutes:
		return MaxMinutes
	}
	return minutes
}

// Encode renders minutes as zero-padded "HH:MM".
func Encode(minutes int) string {
	m := Clamp(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Filter drops every character that is not a decimal digit or ':'.
func Filter(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ':' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decode parses H+:M+ out of text after filtering it. Anything following the
// minute digits is ignored.
func Decode(text string) (int, error) {
	s := Filter(text)
	hours, rest, ok := leadingInt(s)
	if !ok || !strings.HasPrefix(rest, ":") {
		return 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	minutes, _, ok := leadingInt(rest[1:])
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParse, text)
	}
	// Cap both parts so the product cannot overflow.
	hours = min(hours, MaxMinutes/60+1)
	minutes = min(minutes, MaxMinutes+1)
	return Clamp(hours*60 + minutes), nil
}

func leadingInt(s string) (int, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return n, s[i:], true
}

// MinuteOfDay returns the hour/minute offset of t, ignoring seconds.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WithMinuteOfDay replaces the hour and minute of t. The date, seconds,
// nanoseconds and location are kept.
func WithMinuteOfDay(t time.Time, minutes int) time.Time {
	m := Clamp(minutes)
	return time.Date(t.Year(), t.Month(), t.Day(), m/60, m%60, t.Second(), t.Nanosecond(), t.Location())
}

// AddMinutes adds minutes with wall-clock field arithmetic, so overflow rolls
// into the day, month and year.
func AddMinutes(t time.Time, minutes int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+minutes, t.Second(), t.Nanosecond(), t.Location())
}

// DurationMinutes converts d to whole minutes clamped to a day.
func DurationMinutes(d time.Duration) int {
	return Clamp(int(d / time.Minute))
}
