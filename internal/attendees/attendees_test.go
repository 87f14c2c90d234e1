package attendees

import (
	"testing"

	"calpanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(addresses ...string) *models.Event {
	ev := models.NewEvent("evt")
	for _, a := range addresses {
		ev.AddAttendee(a)
	}
	return ev
}

func realRows(rows []Row) []string {
	var out []string
	for _, r := range rows {
		if !r.Placeholder {
			out = append(out, r.Address)
		}
	}
	return out
}

func assertSinglePlaceholderLast(t *testing.T, rows []Row) {
	t.Helper()
	require.NotEmpty(t, rows)
	count := 0
	for _, r := range rows {
		if r.Placeholder {
			count++
		}
	}
	assert.Equal(t, 1, count)
	last := rows[len(rows)-1]
	assert.True(t, last.Placeholder)
	assert.Empty(t, last.Address)
	assert.Equal(t, models.StatusNone, last.Status)
}

func TestPopulate(t *testing.T) {
	t.Run("Empty event has only the placeholder", func(t *testing.T) {
		rows := Populate(newEvent())
		assert.Len(t, rows, 1)
		assertSinglePlaceholderLast(t, rows)
	})

	t.Run("Nil event has no rows", func(t *testing.T) {
		assert.Empty(t, Populate(nil))
	})

	t.Run("Rows follow stored order and status", func(t *testing.T) {
		ev := newEvent("mailto:a@example.com", "mailto:b@example.com")
		ev.SetParticipationStatus(1, models.StatusDeclined)

		rows := Populate(ev)

		assertSinglePlaceholderLast(t, rows)
		assert.Equal(t, []string{"mailto:a@example.com", "mailto:b@example.com"}, realRows(rows))
		assert.Equal(t, models.StatusNone, rows[0].Status)
		assert.Equal(t, models.StatusDeclined, rows[1].Status)
		assert.Equal(t, ID{Index: 1, Address: "mailto:b@example.com"}, rows[1].ID)
	})

	t.Run("Repeated populate is identical", func(t *testing.T) {
		ev := newEvent("mailto:a@example.com", "mailto:b@example.com")
		assert.Equal(t, Populate(ev), Populate(ev))
	})
}

func TestAdd(t *testing.T) {
	t.Run("Appends after existing attendees", func(t *testing.T) {
		ev := newEvent("mailto:alice@example.com", "mailto:bob@example.com")

		rows := Add(ev, "carol@example.com")

		assert.Len(t, rows, 4)
		assertSinglePlaceholderLast(t, rows)
		assert.Equal(t, []string{"mailto:alice@example.com", "mailto:bob@example.com", "carol@example.com"}, realRows(rows))
		assert.Equal(t, models.StatusNone, rows[2].Status)
	})

	t.Run("Blank input is ignored", func(t *testing.T) {
		ev := newEvent("mailto:alice@example.com")
		rows := Add(ev, "   ")
		assert.Len(t, rows, 2)
		assert.Len(t, ev.Attendees(), 1)
	})
}

func TestRemove(t *testing.T) {
	t.Run("Removes the identified attendee", func(t *testing.T) {
		ev := newEvent("mailto:a@example.com", "mailto:b@example.com", "mailto:c@example.com")
		rows := Populate(ev)

		rows, ok := Remove(ev, rows[1].ID)

		assert.True(t, ok)
		assertSinglePlaceholderLast(t, rows)
		assert.Equal(t, []string{"mailto:a@example.com", "mailto:c@example.com"}, realRows(rows))
		assert.Len(t, ev.Attendees(), 2)
	})

	t.Run("Stale id is ignored", func(t *testing.T) {
		ev := newEvent("mailto:a@example.com", "mailto:b@example.com")
		stale := Populate(ev)[1].ID
		Remove(ev, Populate(ev)[0].ID)

		rows, ok := Remove(ev, stale)

		assert.False(t, ok)
		assert.Equal(t, []string{"mailto:b@example.com"}, realRows(rows))
	})

	t.Run("Placeholder id is ignored", func(t *testing.T) {
		ev := newEvent("mailto:a@example.com")
		rows := Populate(ev)

		_, ok := Remove(ev, rows[len(rows)-1].ID)

		assert.False(t, ok)
		assert.Len(t, ev.Attendees(), 1)
	})
}
