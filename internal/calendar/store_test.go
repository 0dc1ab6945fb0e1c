package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	logx "pandorum/pkg/logx"
)

type fakeClient struct {
	mu        sync.Mutex
	calendars []CalendarInfo
	events    map[string][]Event

	failCalendars bool
	failEvents    bool

	listCalls int
	inserted  []Event
	deleted   []string
}

func (f *fakeClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failCalendars {
		return nil, errors.New("upstream unavailable")
	}
	return f.calendars, nil
}

func (f *fakeClient) ListEvents(ctx context.Context, calendarID string, opt ListOptions) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return nil, errors.New("upstream unavailable")
	}
	return f.events[calendarID], nil
}

func (f *fakeClient) InsertEvent(ctx context.Context, calendarID string, ev Event) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = fmt.Sprintf("ev-%d", len(f.inserted)+1)
	ev.CalendarID = calendarID
	f.inserted = append(f.inserted, ev)
	return ev, nil
}

func (f *fakeClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, evs := range f.events {
		for _, ev := range evs {
			if ev.ID == eventID {
				f.deleted = append(f.deleted, eventID)
				return nil
			}
		}
	}
	return errors.New("event not found")
}

func testEvent(id string, start time.Time) Event {
	return Event{ID: id, Title: "event " + id, Start: start, End: start, Timezone: "UTC"}
}

func TestRefreshFiltersCalendarsByPrefix(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	fc := &fakeClient{
		calendars: []CalendarInfo{
			{ID: "c1", Summary: "Team Sync"},
			{ID: "c2", Summary: "Pandorum-Ops"},
			{ID: "c3", Summary: "pandorum raids"},
		},
		events: map[string][]Event{
			"c1": {testEvent("skip", now.Add(time.Hour))},
			"c2": {testEvent("a", now.Add(2 * time.Hour))},
			"c3": {testEvent("b", now.Add(time.Hour))},
		},
	}
	s := NewStore(fc, "pandorum", logx.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(snap.Events))
	}
	for _, ev := range snap.Events {
		if ev.ID == "skip" {
			t.Fatalf("event from filtered calendar leaked into snapshot")
		}
	}
}

func TestRefreshSortsAscendingAcrossCalendars(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	fc := &fakeClient{
		calendars: []CalendarInfo{
			{ID: "c1", Summary: "Pandorum A"},
			{ID: "c2", Summary: "Pandorum B"},
		},
		events: map[string][]Event{
			"c1": {testEvent("late", now.Add(3 * time.Hour)), testEvent("early", now.Add(time.Hour))},
			"c2": {testEvent("middle", now.Add(2 * time.Hour))},
		},
	}
	s := NewStore(fc, "pandorum", logx.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := s.Snapshot()
	want := []string{"early", "middle", "late"}
	if len(snap.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(snap.Events))
	}
	for i, id := range want {
		if snap.Events[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, snap.Events[i].ID, id)
		}
	}
}

func TestRefreshIdempotentWithoutUpstreamChange(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	fc := &fakeClient{
		calendars: []CalendarInfo{{ID: "c1", Summary: "Pandorum"}},
		events:    map[string][]Event{"c1": {testEvent("a", now.Add(time.Hour)), testEvent("b", now.Add(2 * time.Hour))}},
	}
	s := NewStore(fc, "pandorum", logx.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	first := s.Snapshot()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	second := s.Snapshot()

	if len(first.Events) != len(second.Events) {
		t.Fatalf("snapshot size changed: %d vs %d", len(first.Events), len(second.Events))
	}
	for i := range first.Events {
		if first.Events[i].ID != second.Events[i].ID {
			t.Fatalf("snapshot order changed at %d: %s vs %s", i, first.Events[i].ID, second.Events[i].ID)
		}
	}
}

func TestRefreshFailureKeepsLastSnapshot(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	fc := &fakeClient{
		calendars: []CalendarInfo{{ID: "c1", Summary: "Pandorum"}},
		events:    map[string][]Event{"c1": {testEvent("a", now.Add(time.Hour))}},
	}
	s := NewStore(fc, "pandorum", logx.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !s.Cached() {
		t.Fatal("expected snapshot to be cached after refresh")
	}

	fc.mu.Lock()
	fc.failCalendars = true
	fc.mu.Unlock()

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	snap := s.Snapshot()
	if len(snap.Events) != 1 || snap.Events[0].ID != "a" {
		t.Fatalf("previous snapshot lost: %+v", snap.Events)
	}
}

func TestCreateAndDeleteInvalidateSnapshot(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	fc := &fakeClient{
		calendars: []CalendarInfo{{ID: "c1", Summary: "Pandorum"}},
		events:    map[string][]Event{"c1": {testEvent("a", now.Add(time.Hour))}},
	}
	s := NewStore(fc, "pandorum", logx.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	created, err := s.CreateEvent(context.Background(), "c1", "raid night", "", now.Add(3*time.Hour), now.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created event has no id")
	}
	if s.Cached() {
		t.Fatal("create must invalidate the snapshot")
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := s.DeleteEvent(context.Background(), "c1", "a"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if s.Cached() {
		t.Fatal("delete must invalidate the snapshot")
	}

	if err := s.DeleteEvent(context.Background(), "c1", "nope"); err == nil {
		t.Fatal("expected delete error for unknown id")
	}
}

func TestStoreWithoutClientReportsNotInitialized(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, "pandorum", logx.Nop())
	if err := s.Refresh(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Refresh err = %v, want ErrNotInitialized", err)
	}
	if _, err := s.CreateEvent(context.Background(), "c1", "x", "", time.Now(), time.Now()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("CreateEvent err = %v, want ErrNotInitialized", err)
	}
}
