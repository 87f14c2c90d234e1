package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"calpanel/internal/models"
	"calpanel/internal/rsvp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"

	// PropEventID carries the Google event id on VEVENTs loaded from Google.
	PropEventID = "X-GOOGLE-EVENT-ID"

	// ATTENDEE parameters carrying Google-only attendee fields.
	paramCommonName = "CN"
	paramRole       = "ROLE"
	paramComment    = "X-GOOGLE-COMMENT"
	paramNumGuests  = "X-NUM-GUESTS"

	roleOptional = "OPT-PARTICIPANT"
)

var ErrNoEventID = errors.New("event was not loaded from google calendar")

// CalendarClient is a calendar collaborator backed by one Google calendar.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	owner      string
}

// NewClient creates a new Google Calendar client.
// It handles loading credentials and setting up an authenticated HTTP client.
// The accountName is used to find the correct token file. If owner is empty
// the calendar id is used when it is an address; for "primary" it is looked up.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID, owner string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	c := &CalendarClient{service: service, logger: logger, calendarID: calendarID, owner: owner}
	if c.owner == "" {
		c.owner = c.resolveOwner(ctx)
	}
	return c, nil
}

func (c *CalendarClient) resolveOwner(ctx context.Context) string {
	if strings.Contains(c.calendarID, "@") {
		return c.calendarID
	}
	entry, err := c.service.CalendarList.Get(c.calendarID).Context(ctx).Do()
	if err != nil {
		c.logger.Warn("Could not resolve calendar owner", "calendarID", c.calendarID, "error", err)
		return ""
	}
	return entry.Id
}

func (c *CalendarClient) Name() string {
	return c.calendarID
}

func (c *CalendarClient) OwnerAddress() (string, bool) {
	return c.owner, c.owner != ""
}

// LoadEvent fetches one event by its Google event id.
func (c *CalendarClient) LoadEvent(ctx context.Context, id string) (*models.Event, error) {
	item, err := c.service.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve event: %w", err)
	}
	return toModel(item), nil
}

// UpcomingEvents fetches events from the calendar for the next days.
func (c *CalendarClient) UpcomingEvents(ctx context.Context, days int) ([]*models.Event, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", c.calendarID, "days", days)
	now := time.Now().UTC()
	tmax := now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	tmin := now.Format(time.RFC3339)

	events, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(events.Items), "calendarID", c.calendarID)
	var out []*models.Event
	for _, item := range events.Items {
		out = append(out, toModel(item))
	}
	return out, nil
}

// SaveEvent patches the Google event with the edited fields and attendees.
// Events not loaded from Google are inserted and get their Google id stored.
func (c *CalendarClient) SaveEvent(ctx context.Context, ev *models.Event) error {
	patch, err := toGoogle(ev)
	if err != nil {
		return err
	}
	id, err := eventID(ev)
	if err != nil {
		return c.insertEvent(ctx, ev, patch)
	}
	if _, err := c.service.Events.Patch(c.calendarID, id, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	c.logger.Info("Successfully saved event to Google Calendar", "summary", ev.Summary(), "id", id)
	return nil
}

func (c *CalendarClient) insertEvent(ctx context.Context, ev *models.Event, item *calendar.Event) error {
	item.ICalUID = ev.UID()
	result, err := c.service.Events.Insert(c.calendarID, item).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	ev.Component.Props.SetText(PropEventID, result.Id)
	c.logger.Info("Successfully created event in Google Calendar", "summary", ev.Summary(), "id", result.Id)
	return nil
}

// DeleteEvent deletes the Google event.
func (c *CalendarClient) DeleteEvent(ctx context.Context, ev *models.Event) error {
	id, err := eventID(ev)
	if err != nil {
		return err
	}
	if err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	c.logger.Info("Successfully deleted event from Google Calendar", "id", id)
	return nil
}

func eventID(ev *models.Event) (string, error) {
	id, err := ev.Component.Props.Text(PropEventID)
	if err != nil || id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEventID, ev.UID())
	}
	return id, nil
}

// toModel converts a Google Calendar event to a VEVENT.
func toModel(item *calendar.Event) *models.Event {
	uid := item.ICalUID
	if uid == "" {
		uid = item.Id
	}
	ev := models.NewEvent(uid)
	ev.Component.Props.SetText(PropEventID, item.Id)
	ev.SetSummary(item.Summary)
	if item.Description != "" {
		ev.SetDescription(item.Description)
	}

	if start, ok := parseEventTime(item.Start); ok {
		ev.SetStart(start)
		if end, ok := parseEventTime(item.End); ok {
			ev.SetEnd(end)
		}
	}

	for i, a := range item.Attendees {
		ev.AddAttendee("mailto:" + a.Email)
		ev.SetParticipationStatus(i, fromResponseStatus(a.ResponseStatus))
		ev.SetAttendeeParam(i, paramCommonName, a.DisplayName)
		ev.SetAttendeeParam(i, paramComment, a.Comment)
		if a.Optional {
			ev.SetAttendeeParam(i, paramRole, roleOptional)
		}
		if a.AdditionalGuests > 0 {
			ev.SetAttendeeParam(i, paramNumGuests, strconv.FormatInt(a.AdditionalGuests, 10))
		}
	}
	return ev
}

// toGoogle builds a patch carrying the fields the editor can change.
func toGoogle(ev *models.Event) (*calendar.Event, error) {
	start, ok := ev.Start()
	if !ok {
		return nil, models.ErrNoStart
	}
	end, ok := ev.End()
	if !ok {
		end = start.Add(ev.Length())
	}

	patch := &calendar.Event{
		Summary:         ev.Summary(),
		Description:     ev.Description(),
		Start:           toEventTime(start),
		End:             toEventTime(end),
		Attendees:       []*calendar.EventAttendee{},
		ForceSendFields: []string{"Summary", "Description", "Attendees"},
	}
	for i, a := range ev.Attendees() {
		guests, _ := strconv.ParseInt(ev.AttendeeParam(i, paramNumGuests), 10, 64)
		patch.Attendees = append(patch.Attendees, &calendar.EventAttendee{
			Email:            rsvp.StripScheme(a.Address),
			ResponseStatus:   toResponseStatus(a.Status),
			DisplayName:      ev.AttendeeParam(i, paramCommonName),
			Comment:          ev.AttendeeParam(i, paramComment),
			Optional:         ev.AttendeeParam(i, paramRole) == roleOptional,
			AdditionalGuests: guests,
		})
	}
	return patch, nil
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime == "" {
		// All-day events only carry a date.
		d, err := time.Parse(time.DateOnly, t.Date)
		return d, err == nil
	}
	parsed, err := time.Parse(time.RFC3339, t.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	if t.TimeZone != "" {
		if loc, err := time.LoadLocation(t.TimeZone); err == nil {
			return parsed.In(loc), true
		}
	}
	// A bare offset has no TZID to write back.
	return parsed.UTC(), true
}

func toEventTime(t time.Time) *calendar.EventDateTime {
	out := &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	if loc := t.Location(); loc != time.UTC && loc != time.Local {
		out.TimeZone = loc.String()
	}
	return out
}

func fromResponseStatus(s string) models.ParticipationStatus {
	switch s {
	case "needsAction":
		return models.StatusNeedsAction
	case "accepted":
		return models.StatusAccepted
	case "declined":
		return models.StatusDeclined
	case "tentative":
		return models.StatusTentative
	}
	return models.StatusNone
}

func toResponseStatus(s models.ParticipationStatus) string {
	switch s {
	case models.StatusNeedsAction:
		return "needsAction"
	case models.StatusAccepted:
		return "accepted"
	case models.StatusDeclined:
		return "declined"
	case models.StatusTentative:
		return "tentative"
	}
	return ""
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the account names with a saved token in the working directory.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
