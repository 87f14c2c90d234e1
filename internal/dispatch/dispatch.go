// Package dispatch forwards editor requests to the calendar that owns the event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"calpanel/internal/editor"
	"calpanel/internal/models"
)

var ErrUnsupportedCalendar = errors.New("calendar cannot store events")

// Backend is a calendar that can persist and delete its events.
type Backend interface {
	editor.Calendar
	SaveEvent(ctx context.Context, ev *models.Event) error
	DeleteEvent(ctx context.Context, ev *models.Event) error
}

// Dispatcher consumes save and delete requests on behalf of the host.
type Dispatcher struct {
	logger *slog.Logger
	dryRun bool
}

// NewDispatcher creates a new Dispatcher. With dryRun set, requests are only logged.
func NewDispatcher(logger *slog.Logger, dryRun bool) *Dispatcher {
	return &Dispatcher{logger: logger, dryRun: dryRun}
}

// Dispatch performs req. A nil request is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, req *editor.Request) error {
	if req == nil {
		return nil
	}
	backend, ok := req.Calendar.(Backend)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedCalendar, req.Calendar)
	}

	if d.dryRun {
		d.logger.Info("[DRY RUN] Would forward request", "kind", req.Kind, "calendar", backend.Name(), "uid", req.Event.UID())
		return nil
	}

	switch req.Kind {
	case editor.RequestSave:
		if err := backend.SaveEvent(ctx, req.Event); err != nil {
			return fmt.Errorf("failed to save event %s: %w", req.Event.UID(), err)
		}
	case editor.RequestDelete:
		if err := backend.DeleteEvent(ctx, req.Event); err != nil {
			return fmt.Errorf("failed to delete event %s: %w", req.Event.UID(), err)
		}
	default:
		return fmt.Errorf("unknown request kind %d", req.Kind)
	}

	d.logger.Info("Request forwarded.", "kind", req.Kind, "calendar", backend.Name(), "uid", req.Event.UID())
	return nil
}
