package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CALPANEL_BACKEND", "")
	t.Setenv("CALPANEL_ICS_FILE", "")
	t.Setenv("GOOGLE_CALENDAR_ID", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "calendar.ics", cfg.ICSFile)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CALPANEL_BACKEND", "CalDAV")
	t.Setenv("CALDAV_USERNAME", "me@icloud.com")
	t.Setenv("CALDAV_CALENDAR_NAME", "Work")
	t.Setenv("CALPANEL_OWNER_EMAIL", "me@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendCalDAV, cfg.Backend)
	assert.Equal(t, "me@icloud.com", cfg.CalDAVUsername)
	assert.Equal(t, "me@example.com", cfg.OwnerEmail)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "file", cfg: Config{Backend: BackendFile, ICSFile: "a.ics"}},
		{name: "file without path", cfg: Config{Backend: BackendFile}, wantErr: true},
		{name: "caldav without calendar", cfg: Config{Backend: BackendCalDAV, CalDAVUsername: "me"}, wantErr: true},
		{name: "google", cfg: Config{Backend: BackendGoogle, GoogleCalendarID: "primary"}},
		{name: "unknown", cfg: Config{Backend: "outlook"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
