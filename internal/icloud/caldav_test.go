package icloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"calpanel/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomTransportAddsAuth(t *testing.T) {
	var user, pass, agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		agent = r.UserAgent()
	}))
	defer srv.Close()

	client := &http.Client{Transport: &customTransport{Username: "me@icloud.com", Password: "secret", Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "me@icloud.com", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "calpanel/1.0", agent)
}

func TestEventPath(t *testing.T) {
	c := &CalDAVClient{calendarPath: "/1234/calendars/work/"}
	assert.Equal(t, "/1234/calendars/work/abc.ics", c.eventPath("abc"))
}

func TestOwnerAddress(t *testing.T) {
	c := &CalDAVClient{calendarName: "Work", owner: "me@icloud.com"}
	owner, ok := c.OwnerAddress()
	assert.True(t, ok)
	assert.Equal(t, "me@icloud.com", owner)
	assert.Equal(t, "Work", c.Name())

	_, ok = (&CalDAVClient{}).OwnerAddress()
	assert.False(t, ok)
}

func TestFirstEvent(t *testing.T) {
	assert.Nil(t, firstEvent(nil))

	cal := ical.NewCalendar()
	cal.Children = append(cal.Children, ical.NewComponent(ical.CompTimezone))
	assert.Nil(t, firstEvent(cal))

	ev := models.NewEvent("abc")
	cal.Children = append(cal.Children, ev.Component)
	got := firstEvent(cal)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.UID())
}

// storedObject lives at an href unrelated to its UID and carries a VTIMEZONE.
var storedObject = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//other client//EN",
	"BEGIN:VTIMEZONE",
	"TZID:W. Europe Standard Time",
	"BEGIN:STANDARD",
	"DTSTART:16010101T030000",
	"TZOFFSETFROM:+0200",
	"TZOFFSETTO:+0100",
	"END:STANDARD",
	"END:VTIMEZONE",
	"BEGIN:VEVENT",
	"UID:xyz@host",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;TZID=W. Europe Standard Time:20240301T090000",
	"DTEND;TZID=W. Europe Standard Time:20240301T093000",
	"SUMMARY:Original",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "&#13;\n")

type fakeServer struct {
	mu      sync.Mutex
	objects string
	puts    map[string]string
	deletes []string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case "REPORT":
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>`+
			`<d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">`+f.objects+`</d:multistatus>`)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.puts[r.URL.Path] = string(body)
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		f.deletes = append(f.deletes, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func objectResponse(href, data string) string {
	return `<d:response><d:href>` + href + `</d:href><d:propstat><d:prop>` +
		`<d:getetag>"1"</d:getetag><c:calendar-data>` + data + `</c:calendar-data>` +
		`</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`
}

func newTestClient(t *testing.T, f *fakeServer) *CalDAVClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	caldavClient, err := caldav.NewClient(srv.Client(), srv.URL)
	require.NoError(t, err)
	webdavClient, err := webdav.NewClient(srv.Client(), srv.URL)
	require.NoError(t, err)

	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		calendarName: "Work",
		calendarPath: "/cal/",
		objects:      make(map[string]calendarObject),
	}
}

func TestEventsAreSavedWhereTheyWereFound(t *testing.T) {
	f := &fakeServer{objects: objectResponse("/cal/abc-123.ics", storedObject), puts: map[string]string{}}
	c := newTestClient(t, f)
	ctx := context.Background()

	ev, err := c.LoadEvent(ctx, "xyz@host")
	require.NoError(t, err)
	assert.Equal(t, "Original", ev.Summary())

	ev.SetSummary("Edited")
	require.NoError(t, c.SaveEvent(ctx, ev))

	require.Len(t, f.puts, 1)
	body, ok := f.puts["/cal/abc-123.ics"]
	require.True(t, ok, "PUT went to %v", f.puts)
	assert.Contains(t, body, "SUMMARY:Edited")
	assert.Contains(t, body, "BEGIN:VTIMEZONE")
	assert.Contains(t, body, "TZID=W. Europe Standard Time")

	require.NoError(t, c.DeleteEvent(ctx, ev))
	assert.Equal(t, []string{"/cal/abc-123.ics"}, f.deletes)
}

func TestDeleteLooksUpUnseenEvent(t *testing.T) {
	f := &fakeServer{objects: objectResponse("/cal/abc-123.ics", storedObject), puts: map[string]string{}}
	c := newTestClient(t, f)

	require.NoError(t, c.DeleteEvent(context.Background(), models.NewEvent("xyz@host")))

	assert.Equal(t, []string{"/cal/abc-123.ics"}, f.deletes)
}

func TestLoadEventNotFound(t *testing.T) {
	c := newTestClient(t, &fakeServer{puts: map[string]string{}})

	_, err := c.LoadEvent(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestSaveNewEventUsesUIDPath(t *testing.T) {
	f := &fakeServer{puts: map[string]string{}}
	c := newTestClient(t, f)
	ev := models.NewEvent("fresh")
	ev.SetSummary("New")
	ev.SetStart(time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC))
	ev.SetEnd(time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, c.SaveEvent(context.Background(), ev))

	assert.Contains(t, f.puts, "/cal/fresh.ics")
}
