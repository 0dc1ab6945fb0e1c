package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pandorum/internal/calendar"
	"pandorum/internal/config"
	kit "pandorum/internal/transport"
	logx "pandorum/pkg/logx"
)

type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeCalClient struct {
	mu       sync.Mutex
	events   []calendar.Event
	inserted []calendar.Event
	deleted  []string
}

func (f *fakeCalClient) ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error) {
	return []calendar.CalendarInfo{{ID: "cal-1", Summary: "Pandorum"}}, nil
}

func (f *fakeCalClient) ListEvents(ctx context.Context, calendarID string, opt calendar.ListOptions) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func (f *fakeCalClient) InsertEvent(ctx context.Context, calendarID string, ev calendar.Event) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = fmt.Sprintf("ev-%d", len(f.inserted)+1)
	f.inserted = append(f.inserted, ev)
	return ev, nil
}

func (f *fakeCalClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.ID == eventID {
			f.deleted = append(f.deleted, eventID)
			return nil
		}
	}
	return errors.New("event not found")
}

const maintainerID = int64(1001)

func testManager(t *testing.T, client *fakeCalClient) (*Manager, *fakeAdapter) {
	t.Helper()
	cfgm := config.NewManager("")
	cfgm.Commit(&config.Config{
		Telegram: config.TelegramConfig{MaintainerUserIDs: []int64{maintainerID}},
		Calendar: config.CalendarConfig{ID: "cal-1"},
	})
	ad := &fakeAdapter{}
	var store *calendar.Store
	if client != nil {
		store = calendar.NewStore(client, "pandorum", logx.Nop())
	}
	return NewManager(Deps{Adapter: ad, Config: cfgm, Store: store, Log: logx.Nop()}), ad
}

func messageUpdate(from int64, text string) kit.Update {
	return kit.Update{
		Kind:    kit.UpdateMessage,
		Message: &kit.Message{ID: 1, ChatID: -100, FromID: from, Text: text},
	}
}

func TestDispatchIgnoresNonCommands(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, nil)

	m.dispatch(context.Background(), messageUpdate(1, "hello there"))
	m.dispatch(context.Background(), messageUpdate(1, "/"))
	m.dispatch(context.Background(), messageUpdate(1, "/unknowncommand"))
	m.dispatch(context.Background(), kit.Update{Kind: kit.UpdateMessage})

	if got := ad.replies(); len(got) != 0 {
		t.Fatalf("expected no replies, got %q", got)
	}
}

func TestDispatchEcho(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, nil)

	m.dispatch(context.Background(), messageUpdate(1, "!echo hello world"))

	got := ad.replies()
	if len(got) != 1 || got[0] != "hello world" {
		t.Fatalf("echo replies = %q", got)
	}
}

func TestDispatchStripsBotMention(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, nil)

	m.dispatch(context.Background(), messageUpdate(1, "/echo@pandorum_bot hi"))

	got := ad.replies()
	if len(got) != 1 || got[0] != "hi" {
		t.Fatalf("replies = %q", got)
	}
}

func TestMaintainerCommandsDeniedForOthers(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, &fakeCalClient{})

	for _, cmd := range []string{
		"!calendar show",
		"!calendar add 24.12.2030 18:00 utc \"x\"",
		"!calendar delete abc",
	} {
		m.dispatch(context.Background(), messageUpdate(2002, cmd))
	}

	got := ad.replies()
	if len(got) != 3 {
		t.Fatalf("expected 3 denials, got %q", got)
	}
	for _, r := range got {
		if r != deniedMessage {
			t.Fatalf("reply = %q, want denial", r)
		}
	}
}

func TestCalendarShowListsEvents(t *testing.T) {
	t.Parallel()
	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
	client := &fakeCalClient{events: []calendar.Event{
		{ID: "ev-a", Title: "Raid Night", Start: start, End: start, Timezone: "UTC"},
	}}
	m, ad := testManager(t, client)

	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar show"))

	got := ad.replies()
	if len(got) != 1 || !strings.Contains(got[0], "Raid Night") {
		t.Fatalf("replies = %q", got)
	}
	if strings.Contains(got[0], "ID ev-a") {
		t.Fatalf("plain show must not include the id: %q", got[0])
	}
}

func TestCalendarShowDetailsIncludesID(t *testing.T) {
	t.Parallel()
	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
	client := &fakeCalClient{events: []calendar.Event{
		{ID: "ev-a", Title: "Raid Night", Start: start, End: start, Timezone: "UTC"},
	}}
	m, ad := testManager(t, client)

	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar show details"))

	got := ad.replies()
	if len(got) != 1 || !strings.Contains(got[0], "ID ev-a") {
		t.Fatalf("replies = %q, want the event id", got)
	}
}

func TestCalendarShowEmpty(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, &fakeCalClient{})

	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar show"))

	got := ad.replies()
	if len(got) != 1 || got[0] != "No events found" {
		t.Fatalf("replies = %q", got)
	}
}

func TestCalendarShowWithoutStore(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, nil)

	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar show"))

	got := ad.replies()
	if len(got) != 1 || got[0] != "Calendar service is not available" {
		t.Fatalf("replies = %q", got)
	}
}

func TestCalendarAddValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{name: "bad date", cmd: `!calendar add 99.99.2030 18:00 utc "x"`, want: "Invalid date"},
		{name: "bad time", cmd: `!calendar add 24.12.2030 99:00 utc "x"`, want: "Invalid time"},
		{name: "bad timezone", cmd: `!calendar add 24.12.2030 18:00 cet "x"`, want: "Invalid timezone"},
		{name: "expired", cmd: `!calendar add 24.12.2020 18:00 utc "x"`, want: "expired"},
		{name: "blank summary", cmd: `!calendar add 24.12.2030 18:00 utc " "`, want: "Invalid summary"},
		{name: "missing args", cmd: `!calendar add 24.12.2030`, want: "Usage:"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ad := testManager(t, &fakeCalClient{})
			m.dispatch(context.Background(), messageUpdate(maintainerID, tt.cmd))
			got := ad.replies()
			if len(got) != 1 || !strings.Contains(got[0], tt.want) {
				t.Fatalf("replies = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestCalendarAddCreatesEvent(t *testing.T) {
	t.Parallel()
	client := &fakeCalClient{}
	m, ad := testManager(t, client)

	m.dispatch(context.Background(), messageUpdate(maintainerID,
		`!calendar add 24.12.2030 18:00 utc "Raid Night" "bring cookies"`))

	got := ad.replies()
	if len(got) != 1 || got[0] != "-> 24.12.2030 18:00 UTC" {
		t.Fatalf("replies = %q", got)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.inserted) != 1 {
		t.Fatalf("inserted = %d, want 1", len(client.inserted))
	}
	ev := client.inserted[0]
	if ev.Title != "Raid Night" || ev.Description != "bring cookies" {
		t.Fatalf("inserted event = %+v", ev)
	}
	if !ev.Start.Equal(time.Date(2030, 12, 24, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("inserted start = %v", ev.Start)
	}
}

func TestCalendarDelete(t *testing.T) {
	t.Parallel()
	start := time.Now().UTC().Add(time.Hour)
	client := &fakeCalClient{events: []calendar.Event{{ID: "ev-a", Title: "x", Start: start}}}
	m, ad := testManager(t, client)

	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar delete ev-a"))
	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar delete nope"))
	m.dispatch(context.Background(), messageUpdate(maintainerID, "!calendar delete"))

	got := ad.replies()
	if len(got) != 2 {
		t.Fatalf("replies = %q", got)
	}
	if !strings.HasPrefix(got[0], "Delete failed:") {
		t.Fatalf("unknown id reply = %q", got[0])
	}
	if got[1] != "Invalid id" {
		t.Fatalf("missing id reply = %q", got[1])
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.deleted) != 1 || client.deleted[0] != "ev-a" {
		t.Fatalf("deleted = %q", client.deleted)
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	t.Parallel()
	m, ad := testManager(t, nil)

	m.dispatch(context.Background(), messageUpdate(1, "!help"))

	got := ad.replies()
	if len(got) != 1 {
		t.Fatalf("replies = %q", got)
	}
	for _, route := range []string{"!echo", "!help", "!calendar add", "!calendar delete", "!calendar show"} {
		if !strings.Contains(got[0], route) {
			t.Fatalf("help output missing %q:\n%s", route, got[0])
		}
	}
}

func TestDispatchLoopStopsOnContextCancel(t *testing.T) {
	t.Parallel()
	m, _ := testManager(t, nil)
	updates := make(chan kit.Update)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.DispatchLoop(ctx, updates) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("DispatchLoop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("DispatchLoop did not stop")
	}
}
