// Package icsfile is a calendar backed by a single local .ics file.
package icsfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"calpanel/internal/models"

	"github.com/emersion/go-ical"
)

const propCalendarName = "X-WR-CALNAME"

var ErrEventNotFound = errors.New("event not found")

// Calendar holds the decoded file. Events returned by LoadEvent share their
// components with the calendar, so edits are visible before SaveEvent writes
// them out.
type Calendar struct {
	logger *slog.Logger
	path   string
	owner  string
	cal    *ical.Calendar
}

// Open reads path. A missing file yields an empty calendar that is created on
// the first save.
func Open(logger *slog.Logger, path, owner string) (*Calendar, error) {
	c := &Calendar{logger: logger, path: path, owner: owner}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open calendar file: %w", err)
		}
		logger.Info("No calendar file found, starting empty.", "file", path)
		c.cal = ical.NewCalendar()
		c.cal.Props.SetText(ical.PropVersion, "2.0")
		c.cal.Props.SetText(ical.PropProductID, "-//calpanel//EN")
		return c, nil
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar file: %w", err)
	}
	c.cal = cal
	logger.Debug("Loaded calendar file", "file", path, "events", len(cal.Events()))
	return c, nil
}

func (c *Calendar) Name() string {
	if name, err := c.cal.Props.Text(propCalendarName); err == nil && name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
}

func (c *Calendar) OwnerAddress() (string, bool) {
	return c.owner, c.owner != ""
}

// Events returns every VEVENT in file order.
func (c *Calendar) Events() []*models.Event {
	var out []*models.Event
	for _, child := range c.cal.Children {
		if child.Name == ical.CompEvent {
			out = append(out, models.FromComponent(child))
		}
	}
	return out
}

// LoadEvent finds the event with the given UID.
func (c *Calendar) LoadEvent(ctx context.Context, uid string) (*models.Event, error) {
	if i := c.indexOf(uid); i >= 0 {
		return models.FromComponent(c.cal.Children[i]), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, uid)
}

// UpcomingEvents returns events starting within the next days.
func (c *Calendar) UpcomingEvents(ctx context.Context, days int) ([]*models.Event, error) {
	now := time.Now()
	until := now.AddDate(0, 0, days)
	var out []*models.Event
	for _, ev := range c.Events() {
		start, ok := ev.Start()
		if ok && !start.Before(now) && start.Before(until) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// SaveEvent replaces the event with the same UID, or appends it, and writes
// the file.
func (c *Calendar) SaveEvent(ctx context.Context, ev *models.Event) error {
	if i := c.indexOf(ev.UID()); i >= 0 {
		c.cal.Children[i] = ev.Component
	} else {
		c.cal.Children = append(c.cal.Children, ev.Component)
	}
	if err := c.write(); err != nil {
		return err
	}
	c.logger.Info("Saved event to calendar file", "uid", ev.UID(), "file", c.path)
	return nil
}

// DeleteEvent removes the event with the same UID and writes the file.
func (c *Calendar) DeleteEvent(ctx context.Context, ev *models.Event) error {
	i := c.indexOf(ev.UID())
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, ev.UID())
	}
	c.cal.Children = append(c.cal.Children[:i], c.cal.Children[i+1:]...)
	if err := c.write(); err != nil {
		return err
	}
	c.logger.Info("Deleted event from calendar file", "uid", ev.UID(), "file", c.path)
	return nil
}

func (c *Calendar) indexOf(uid string) int {
	for i, child := range c.cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if id, err := child.Props.Text(ical.PropUID); err == nil && id == uid {
			return i
		}
	}
	return -1
}

// write encodes to a temporary file next to path and renames it into place.
// A calendar without components cannot be encoded, so the file is removed.
func (c *Calendar) write() error {
	if len(c.cal.Children) == 0 {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove empty calendar file: %w", err)
		}
		return nil
	}
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(c.cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace calendar file: %w", err)
	}
	return nil
}
