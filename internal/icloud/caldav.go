package icloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"calpanel/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

const (
	DefaultEndpoint = "https://caldav.icloud.com/"
)

var ErrEventNotFound = errors.New("event not found")

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calpanel/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is a calendar collaborator backed by one CalDAV collection.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarName string
	calendarPath string
	owner        string

	mu sync.Mutex
	// objects remembers where each fetched event lives, by UID. Servers and
	// other clients name objects freely, so the href is not derivable.
	objects map[string]calendarObject
}

type calendarObject struct {
	path string
	cal  *ical.Calendar
}

// NewClient connects to endpoint and locates the calendar called calendarName.
// If owner is empty the username is used when it looks like an address.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName, owner string) (*CalDAVClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	if owner == "" && strings.Contains(username, "@") {
		owner = username
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		calendarName: calendarName,
		owner:        owner,
		objects:      make(map[string]calendarObject),
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

func (c *CalDAVClient) Name() string {
	return c.calendarName
}

func (c *CalDAVClient) OwnerAddress() (string, bool) {
	return c.owner, c.owner != ""
}

// LoadEvent finds the calendar object holding uid with a UID prop-filter query.
func (c *CalDAVClient) LoadEvent(ctx context.Context, uid string) (*models.Event, error) {
	obj, err := c.findObject(ctx, uid)
	if err != nil {
		return nil, err
	}
	ev := firstEvent(obj.Data)
	if ev == nil {
		return nil, fmt.Errorf("no VEVENT component found in calendar object %s", obj.Path)
	}
	c.remember(ev.UID(), obj)
	return ev, nil
}

func (c *CalDAVClient) findObject(ctx context.Context, uid string) (*caldav.CalendarObject, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name: ical.CompEvent,
				Props: []caldav.PropFilter{{
					Name:      ical.PropUID,
					TextMatch: &caldav.TextMatch{Text: uid},
				}},
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	// text-match is a substring test; require the exact UID.
	for i := range objects {
		if ev := firstEvent(objects[i].Data); ev != nil && ev.UID() == uid {
			return &objects[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, uid)
}

func (c *CalDAVClient) remember(uid string, obj *caldav.CalendarObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[uid] = calendarObject{path: obj.Path, cal: obj.Data}
}

func (c *CalDAVClient) lookup(uid string) (calendarObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[uid]
	return obj, ok
}

// UpcomingEvents queries events starting within the next days.
func (c *CalDAVClient) UpcomingEvents(ctx context.Context, days int) ([]*models.Event, error) {
	now := time.Now().UTC()
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: now,
				End:   now.AddDate(0, 0, days),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	var events []*models.Event
	for i := range objects {
		if ev := firstEvent(objects[i].Data); ev != nil {
			c.remember(ev.UID(), &objects[i])
			events = append(events, ev)
		}
	}
	c.logger.Debug("Fetched upcoming events", "count", len(events), "days", days)
	return events, nil
}

// SaveEvent writes the event back to the object it was fetched from, along
// with the rest of that object (VTIMEZONEs, recurrence overrides). Events the
// client has not seen are created at <calendar>/<UID>.ics.
func (c *CalDAVClient) SaveEvent(ctx context.Context, ev *models.Event) error {
	c.logger.Debug("Saving event to CalDAV", "summary", ev.Summary(), "uid", ev.UID())

	obj, ok := c.lookup(ev.UID())
	if !ok || !containsComponent(obj.cal, ev.Component) {
		obj = calendarObject{path: c.eventPath(ev.UID()), cal: models.NewCalendarObject(ev)}
	}

	saved, err := c.caldavClient.PutCalendarObject(ctx, obj.path, obj.cal)
	if err != nil {
		return fmt.Errorf("failed to put event on CalDAV server: %w", err)
	}
	if saved != nil && saved.Path != "" {
		obj.path = saved.Path
	}

	c.mu.Lock()
	c.objects[ev.UID()] = obj
	c.mu.Unlock()

	c.logger.Info("Successfully saved event to CalDAV", "summary", ev.Summary(), "path", obj.path)
	return nil
}

// DeleteEvent removes the event's calendar object.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, ev *models.Event) error {
	uid := ev.UID()
	obj, ok := c.lookup(uid)
	if !ok {
		found, err := c.findObject(ctx, uid)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		obj = calendarObject{path: found.Path, cal: found.Data}
	}

	if err := c.webdavClient.RemoveAll(ctx, obj.path); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	c.mu.Lock()
	delete(c.objects, uid)
	c.mu.Unlock()

	c.logger.Info("Successfully deleted event from CalDAV", "uid", uid, "path", obj.path)
	return nil
}

func (c *CalDAVClient) eventPath(uid string) string {
	return path.Join(c.calendarPath, fmt.Sprintf("%s.ics", uid))
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

func firstEvent(cal *ical.Calendar) *models.Event {
	if cal == nil {
		return nil
	}
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			return models.FromComponent(child)
		}
	}
	return nil
}

func containsComponent(cal *ical.Calendar, comp *ical.Component) bool {
	if cal == nil {
		return false
	}
	for _, child := range cal.Children {
		if child == comp {
			return true
		}
	}
	return false
}
