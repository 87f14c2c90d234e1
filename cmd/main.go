package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"calpanel/internal/attendees"
	"calpanel/internal/config"
	"calpanel/internal/dispatch"
	"calpanel/internal/editor"
	"calpanel/internal/google"
	"calpanel/internal/icloud"
	"calpanel/internal/icsfile"
	"calpanel/internal/models"
	"calpanel/internal/rsvp"
	"calpanel/internal/utils"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

// backend is what the commands need from a calendar collaborator.
type backend interface {
	dispatch.Backend
	LoadEvent(ctx context.Context, uid string) (*models.Event, error)
	UpcomingEvents(ctx context.Context, days int) ([]*models.Event, error)
}

func main() {
	app := &cli.App{
		Name:  "calpanel",
		Usage: "View and edit a single calendar event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Usage: "Calendar backend: file, caldav or google. Overrides CALPANEL_BACKEND."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log save and delete requests without performing them."},
		},
		Commands: []*cli.Command{
			authCommand(),
			listCommand(),
			showCommand(),
			editCommand(),
			newCommand(),
			rsvpCommand(),
			deleteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List upcoming events.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to look."},
		},
		Action: func(c *cli.Context) error {
			_, logger, cal, err := setup(c)
			if err != nil {
				return err
			}
			events, err := cal.UpcomingEvents(c.Context, c.Int("days"))
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}
			logger.Debug("Listing events.", "count", len(events))
			for _, ev := range events {
				start, _ := ev.Start()
				fmt.Fprintf(c.App.Writer, "%s  %s  %s\n", ev.UID(), start.Format("2006-01-02 15:04"), ev.Summary())
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show an event as the editor sees it.",
		Flags: []cli.Flag{uidFlag()},
		Action: func(c *cli.Context) error {
			session, _, err := openSession(c)
			if err != nil {
				return err
			}
			printView(c.App.Writer, session.View())
			return nil
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Edit an event and save it.",
		Flags: append([]cli.Flag{uidFlag()}, fieldFlags()...),
		Action: func(c *cli.Context) error {
			session, d, err := openSession(c)
			if err != nil {
				return err
			}
			applyFieldFlags(c, session)
			if err := d.Dispatch(c.Context, session.Commit()); err != nil {
				return err
			}
			printView(c.App.Writer, session.View())
			return nil
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create an event on the given day and save it.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Day of the event (YYYY-MM-DD). Defaults to today."},
		}, fieldFlags()...),
		Action: func(c *cli.Context) error {
			_, logger, cal, err := setup(c)
			if err != nil {
				return err
			}

			ev := models.NewEvent(models.GenerateUID())
			if c.IsSet("date") {
				day, err := time.Parse(time.DateOnly, c.String("date"))
				if err != nil {
					return fmt.Errorf("invalid date '%s': %w", c.String("date"), err)
				}
				ev.SetStart(day)
			}

			session := editor.NewSession(logger, utils.SystemClock{})
			session.SetEvent(cal, ev)
			session.SetDurationMinutes(60)
			applyFieldFlags(c, session)

			d := dispatch.NewDispatcher(logger, c.Bool("dry-run"))
			if err := d.Dispatch(c.Context, session.Commit()); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, ev.UID())
			return nil
		},
	}
}

func rsvpCommand() *cli.Command {
	return &cli.Command{
		Name:      "rsvp",
		Usage:     "Respond to an invitation as the calendar owner.",
		ArgsUsage: "accept|tentative|decline",
		Flags:     []cli.Flag{uidFlag()},
		Action: func(c *cli.Context) error {
			action := rsvp.Action(strings.ToLower(c.Args().First()))
			if _, ok := action.Status(); !ok {
				return fmt.Errorf("unknown response '%s', expected accept, tentative or decline", c.Args().First())
			}
			session, d, err := openSession(c)
			if err != nil {
				return err
			}
			req := session.RSVP(action)
			if req == nil {
				fmt.Fprintln(c.App.Writer, "No attendee matches the calendar owner; nothing changed.")
				return nil
			}
			if err := d.Dispatch(c.Context, req); err != nil {
				return err
			}
			printView(c.App.Writer, session.View())
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an event.",
		Flags: []cli.Flag{uidFlag()},
		Action: func(c *cli.Context) error {
			session, d, err := openSession(c)
			if err != nil {
				return err
			}
			return d.Dispatch(c.Context, session.Delete())
		},
	}
}

func uidFlag() cli.Flag {
	return &cli.StringFlag{Name: "uid", Required: true, Usage: "UID (or Google event id) of the event."}
}

func fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "summary", Usage: "New summary."},
		&cli.StringFlag{Name: "description", Usage: "New description."},
		&cli.StringFlag{Name: "start", Usage: "New start time of day (HH:MM)."},
		&cli.StringFlag{Name: "duration", Usage: "New duration (HH:MM)."},
		&cli.StringSliceFlag{Name: "add-attendee", Usage: "Calendar address to invite. Repeatable."},
		&cli.StringSliceFlag{Name: "remove-attendee", Usage: "Calendar address to un-invite. Repeatable."},
	}
}

// applyFieldFlags feeds the set flags into the session the way a user would
// type them. Malformed times are ignored.
func applyFieldFlags(c *cli.Context, session *editor.Session) {
	if c.IsSet("summary") {
		session.SetSummary(c.String("summary"))
	}
	if c.IsSet("description") {
		session.SetDescription(c.String("description"))
	}
	if c.IsSet("start") {
		session.SetStartText(c.String("start"))
	}
	if c.IsSet("duration") {
		session.SetDurationText(c.String("duration"))
	}
	for _, address := range c.StringSlice("add-attendee") {
		session.AddAttendee(address)
	}
	for _, address := range c.StringSlice("remove-attendee") {
		for _, row := range session.View().Attendees {
			if !row.Placeholder && rsvp.Matches(row.Address, address) {
				session.RemoveAttendee(row.ID)
				break
			}
		}
	}
}

func setup(c *cli.Context) (config.Config, *slog.Logger, backend, error) {
	cfg, err := config.Load()
	if c.IsSet("backend") {
		cfg.Backend = strings.ToLower(c.String("backend"))
		err = cfg.Validate()
	}
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	cal, err := openBackend(c.Context, cfg, logger)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, logger, cal, nil
}

func openSession(c *cli.Context) (*editor.Session, *dispatch.Dispatcher, error) {
	_, logger, cal, err := setup(c)
	if err != nil {
		return nil, nil, err
	}
	ev, err := cal.LoadEvent(c.Context, c.String("uid"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load event: %w", err)
	}
	session := editor.NewSession(logger, utils.SystemClock{})
	session.SetEvent(cal, ev)
	return session, dispatch.NewDispatcher(logger, c.Bool("dry-run")), nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Backend {
	case config.BackendCalDAV:
		c, err := icloud.NewClient(ctx, logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendarName, cfg.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return c, nil
	case config.BackendGoogle:
		account := cfg.GoogleAccount
		if account == "" {
			accounts, err := google.GetTokenAccounts()
			if err != nil || len(accounts) == 0 {
				return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}
			account = accounts[0]
		}
		c, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, account, cfg.GoogleCalendarID, cfg.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", account, err)
		}
		return c, nil
	default:
		c, err := icsfile.Open(logger, cfg.ICSFile, cfg.OwnerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to open calendar file: %w", err)
		}
		return c, nil
	}
}

func printView(w io.Writer, v editor.View) {
	if !v.Selected {
		fmt.Fprintln(w, "No event selected.")
		return
	}
	fmt.Fprintf(w, "%s\n@ %s for %s\n", v.Summary, v.StartsAt, v.Duration)
	for _, row := range v.Attendees {
		fmt.Fprintln(w, formatRow(row))
	}
	if v.Description != "" {
		fmt.Fprintf(w, "\n%s\n", v.Description)
	}
}

func formatRow(row attendees.Row) string {
	if row.Placeholder {
		return "  [+] add attendee"
	}
	status := row.Status.String()
	if status == "" {
		status = "-"
	}
	return fmt.Sprintf("  [%s] %s", status, row.Address)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
