package main

import (
	"bytes"
	"testing"

	"calpanel/internal/attendees"
	"calpanel/internal/editor"
	"calpanel/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPrintView(t *testing.T) {
	t.Run("Nothing selected", func(t *testing.T) {
		var b bytes.Buffer
		printView(&b, editor.View{})
		assert.Equal(t, "No event selected.\n", b.String())
	})

	t.Run("Selected event", func(t *testing.T) {
		var b bytes.Buffer
		printView(&b, editor.View{
			Selected:    true,
			Summary:     "Planning",
			Description: "Agenda",
			StartsAt:    "09:00",
			Duration:    "00:30",
			Attendees: []attendees.Row{
				{Address: "mailto:alice@example.com", Status: models.StatusAccepted},
				{Address: "bob@example.com"},
				{Placeholder: true},
			},
		})

		assert.Equal(t, "Planning\n"+
			"@ 09:00 for 00:30\n"+
			"  [ACCEPTED] mailto:alice@example.com\n"+
			"  [-] bob@example.com\n"+
			"  [+] add attendee\n"+
			"\nAgenda\n", b.String())
	})
}

func TestSetupLogger(t *testing.T) {
	assert.NotNil(t, setupLogger("debug"))
	assert.NotNil(t, setupLogger("bogus"))
}
