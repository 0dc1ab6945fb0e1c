package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	logx "pandorum/pkg/logx"
)

// eventsPerCalendar caps how many upcoming events are pulled per calendar
// on each refresh.
const eventsPerCalendar = 10

// Store produces and holds the current event snapshot.
//
// The snapshot is replaced wholesale by a single pointer swap, so readers
// always see a complete, consistent list. Only the worker tick writes it;
// on-demand readers accept staleness.
type Store struct {
	client Client
	filter string
	log    logx.Logger

	snap   atomic.Pointer[Snapshot]
	cached atomic.Bool
}

func NewStore(client Client, filter string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{client: client, filter: strings.ToLower(strings.TrimSpace(filter)), log: log}
	s.snap.Store(&Snapshot{})
	return s
}

// Snapshot returns the last published snapshot without blocking.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Cached reports whether the snapshot reflects the most recent successful
// refresh (false after a create/delete or before the first refresh).
func (s *Store) Cached() bool {
	return s.cached.Load()
}

// Refresh rebuilds the snapshot from upstream: all calendars whose display
// name starts with the configured filter are polled for non-deleted
// upcoming events, recurring series expanded into instances. Any upstream
// failure aborts the whole refresh and keeps the previous snapshot as
// last-known-good.
func (s *Store) Refresh(ctx context.Context) error {
	if s.client == nil {
		return ErrNotInitialized
	}

	calendars, err := s.client.ListCalendars(ctx)
	if err != nil {
		return err
	}

	var events []Event
	for _, cal := range calendars {
		if !strings.HasPrefix(strings.ToLower(cal.Summary), s.filter) {
			continue
		}
		evs, err := s.client.ListEvents(ctx, cal.ID, ListOptions{
			TimeMin:      time.Now().UTC(),
			MaxResults:   eventsPerCalendar,
			ShowDeleted:  false,
			SingleEvents: true,
		})
		if err != nil {
			return err
		}
		events = append(events, evs...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	s.snap.Store(&Snapshot{Events: events, Refreshed: time.Now().UTC()})
	s.cached.Store(true)
	return nil
}

// CreateEvent inserts a new event with UTC as the declared timezone and
// invalidates the snapshot so the next read refreshes.
func (s *Store) CreateEvent(ctx context.Context, calendarID, title, description string, start, end time.Time) (Event, error) {
	if s.client == nil {
		return Event{}, ErrNotInitialized
	}
	created, err := s.client.InsertEvent(ctx, calendarID, Event{
		Title:       title,
		Description: description,
		Start:       start.UTC(),
		End:         end.UTC(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	s.cached.Store(false)
	return created, nil
}

// DeleteEvent removes an event by id and invalidates the snapshot.
// Upstream errors surface to the caller.
func (s *Store) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if s.client == nil {
		return ErrNotInitialized
	}
	if err := s.client.DeleteEvent(ctx, calendarID, eventID); err != nil {
		return err
	}
	s.cached.Store(false)
	return nil
}
