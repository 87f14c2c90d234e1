// Package config reads settings from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendFile   = "file"
	BackendCalDAV = "caldav"
	BackendGoogle = "google"
)

type Config struct {
	Backend    string
	OwnerEmail string
	LogLevel   string

	ICSFile string

	CalDAVEndpoint     string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarName string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string
	GoogleCalendarID   string
}

// Load reads a .env file if present, then the environment.
func Load() (Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	cfg := Config{
		Backend:            strings.ToLower(getenv("CALPANEL_BACKEND", BackendFile)),
		OwnerEmail:         os.Getenv("CALPANEL_OWNER_EMAIL"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		ICSFile:            getenv("CALPANEL_ICS_FILE", "calendar.ics"),
		CalDAVEndpoint:     os.Getenv("CALDAV_ENDPOINT"),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendarName: os.Getenv("CALDAV_CALENDAR_NAME"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAccount:      os.Getenv("GOOGLE_ACCOUNT"),
		GoogleCalendarID:   getenv("GOOGLE_CALENDAR_ID", "primary"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the selected backend needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.ICSFile == "" {
			return fmt.Errorf("CALPANEL_ICS_FILE environment variable not set")
		}
	case BackendCalDAV:
		if c.CalDAVUsername == "" || c.CalDAVCalendarName == "" {
			return fmt.Errorf("CALDAV_USERNAME and CALDAV_CALENDAR_NAME must be set for the caldav backend")
		}
	case BackendGoogle:
		if c.GoogleCalendarID == "" {
			return fmt.Errorf("GOOGLE_CALENDAR_ID environment variable not set")
		}
	default:
		return fmt.Errorf("unknown backend '%s'", c.Backend)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
