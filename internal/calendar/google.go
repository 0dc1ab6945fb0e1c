package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	logx "pandorum/pkg/logx"
)

// GoogleClient implements Client on top of the Google Calendar API using an
// offline OAuth credential stored on disk:
//
//	<dir>/credentials.json  - OAuth client secret
//	<dir>/token.json        - cached user token (offline access)
type GoogleClient struct {
	svc *gcal.Service
	log logx.Logger
}

func NewGoogleClient(ctx context.Context, credentialsDir string, log logx.Logger) (*GoogleClient, error) {
	credPath := filepath.Join(credentialsDir, "credentials.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tok, err := tokenFromFile(filepath.Join(credentialsDir, "token.json"))
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &GoogleClient{svc: svc, log: log}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return tok, nil
}

func (c *GoogleClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := c.svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	out := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, CalendarInfo{ID: item.Id, Summary: item.Summary})
	}
	return out, nil
}

func (c *GoogleClient) ListEvents(ctx context.Context, calendarID string, opt ListOptions) ([]Event, error) {
	call := c.svc.Events.List(calendarID).
		ShowDeleted(opt.ShowDeleted).
		SingleEvents(opt.SingleEvents).
		Context(ctx)
	if !opt.TimeMin.IsZero() {
		call = call.TimeMin(opt.TimeMin.UTC().Format(time.RFC3339))
	}
	if opt.MaxResults > 0 {
		call = call.MaxResults(opt.MaxResults)
	}
	// Server-side ordering is only valid for expanded instances.
	if opt.SingleEvents {
		call = call.OrderBy("startTime")
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list events %s: %w", calendarID, err)
	}

	out := make([]Event, 0, len(list.Items))
	for _, item := range list.Items {
		ev, err := fromGoogleEvent(calendarID, item)
		if err != nil {
			c.log.Warn("skipping unparsable event",
				logx.String("calendar", calendarID),
				logx.String("event", item.Id),
				logx.Err(err))
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (c *GoogleClient) InsertEvent(ctx context.Context, calendarID string, ev Event) (Event, error) {
	ge := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	created, err := c.svc.Events.Insert(calendarID, ge).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	out, err := fromGoogleEvent(calendarID, created)
	if err != nil {
		return Event{}, fmt.Errorf("created event unparsable: %w", err)
	}
	return out, nil
}

func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func fromGoogleEvent(calendarID string, ge *gcal.Event) (Event, error) {
	start, tz, err := parseEventTime(ge.Start)
	if err != nil {
		return Event{}, fmt.Errorf("start: %w", err)
	}
	end, _, err := parseEventTime(ge.End)
	if err != nil {
		// Events without a usable end still schedule fine.
		end = start
	}
	return Event{
		ID:          ge.Id,
		Title:       ge.Summary,
		Description: ge.Description,
		Start:       start,
		End:         end,
		Timezone:    tz,
		CalendarID:  calendarID,
	}, nil
}

func parseEventTime(edt *gcal.EventDateTime) (time.Time, string, error) {
	if edt == nil {
		return time.Time{}, "", fmt.Errorf("missing time")
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, "", err
		}
		return t.UTC(), edt.TimeZone, nil
	}
	if edt.Date != "" {
		// All-day events carry a date only; midnight UTC keeps the
		// scheduling math well-defined.
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, "", err
		}
		return t.UTC(), edt.TimeZone, nil
	}
	return time.Time{}, "", fmt.Errorf("missing time")
}
