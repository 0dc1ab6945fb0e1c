package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotInitialized is reported by calendar operations when the upstream
// client could not be constructed (missing credentials). The component
// stays inert instead of failing the host process.
var ErrNotInitialized = errors.New("calendar: client not initialized")

// CalendarInfo identifies one calendar visible to the credential.
type CalendarInfo struct {
	ID      string
	Summary string
}

// ListOptions narrows an event listing.
type ListOptions struct {
	TimeMin      time.Time
	MaxResults   int64
	ShowDeleted  bool
	SingleEvents bool // expand recurring series into instances
}

// Client is the calendar-service boundary consumed by Store. It is kept
// narrow so tests can substitute a fake.
type Client interface {
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	ListEvents(ctx context.Context, calendarID string, opt ListOptions) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, ev Event) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
