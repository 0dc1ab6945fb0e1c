package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pandorum/internal/calendar"
	logx "pandorum/pkg/logx"
)

func builtinCommands(m *Manager) []*Command {
	return []*Command{
		{
			Route:       "echo",
			Description: "Echo the given text back",
			Usage:       "!echo <text>",
			Access:      AccessEveryone,
			Handle:      m.cmdEcho,
		},
		{
			Route:       "help",
			Description: "List available commands",
			Usage:       "!help",
			Access:      AccessEveryone,
			Handle:      m.cmdHelp,
		},
		{
			Route:       "calendar add",
			Description: "Create a calendar event",
			Usage:       `!calendar add <d.M.yyyy> <H:mm> utc "<summary>" ["<description>"]`,
			Access:      AccessMaintainer,
			Handle:      m.cmdCalendarAdd,
		},
		{
			Route:       "calendar delete",
			Description: "Delete a calendar event by id",
			Usage:       "!calendar delete <eventId>",
			Access:      AccessMaintainer,
			Handle:      m.cmdCalendarDelete,
		},
		{
			Route:       "calendar show",
			Description: "Show all upcoming events",
			Usage:       "!calendar show [details]",
			Access:      AccessMaintainer,
			Handle:      m.cmdCalendarShow,
		},
	}
}

func (m *Manager) cmdEcho(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return nil
	}
	m.reply(ctx, req, strings.Join(req.Args, " "))
	return nil
}

func (m *Manager) cmdHelp(ctx context.Context, req *Request) error {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range m.Commands() {
		b.WriteString("\n")
		b.WriteString(c.Usage)
		b.WriteString(" - ")
		b.WriteString(c.Description)
	}
	m.reply(ctx, req, b.String())
	return nil
}

func (m *Manager) cmdCalendarAdd(ctx context.Context, req *Request) error {
	if m.deps.Store == nil {
		m.reply(ctx, req, "Calendar service is not available")
		return nil
	}
	if len(req.Args) < 4 {
		m.reply(ctx, req, "Usage: "+`!calendar add <d.M.yyyy> <H:mm> utc "<summary>" ["<description>"]`)
		return nil
	}

	date, clock, timezone, summary := req.Args[0], req.Args[1], req.Args[2], req.Args[3]
	description := ""
	if len(req.Args) > 4 {
		description = req.Args[4]
	}

	start, err := ParseStart(date, clock, timezone)
	if err != nil {
		switch {
		case errors.Is(err, errBadDate):
			m.reply(ctx, req, "Invalid date")
		case errors.Is(err, errBadTime):
			m.reply(ctx, req, "Invalid time")
		default:
			m.reply(ctx, req, "Invalid timezone")
		}
		return nil
	}

	// Make sure the event doesn't start in the past.
	now := time.Now().UTC()
	if !start.After(now) {
		m.reply(ctx, req, fmt.Sprintf("Invalid date/time -- expired %.0f minutes ago", now.Sub(start).Minutes()))
		return nil
	}

	if strings.TrimSpace(summary) == "" {
		m.reply(ctx, req, "Invalid summary")
		return nil
	}

	cfg := m.deps.Config.Get()
	if cfg == nil || strings.TrimSpace(cfg.Calendar.ID) == "" {
		req.Logger.Warn("missing calendar id")
		return nil
	}

	m.reply(ctx, req, "-> "+start.Format("02.01.2006 15:04")+" UTC")

	created, err := m.deps.Store.CreateEvent(ctx, cfg.Calendar.ID, summary, description, start, start)
	if err != nil {
		m.reply(ctx, req, "Create failed: "+err.Error())
		return err
	}
	req.Logger.Info("event created", logx.String("event", created.ID))
	return nil
}

func (m *Manager) cmdCalendarDelete(ctx context.Context, req *Request) error {
	if m.deps.Store == nil {
		m.reply(ctx, req, "Calendar service is not available")
		return nil
	}
	if len(req.Args) == 0 || strings.TrimSpace(req.Args[0]) == "" {
		m.reply(ctx, req, "Invalid id")
		return nil
	}
	eventID := req.Args[0]

	cfg := m.deps.Config.Get()
	if cfg == nil || strings.TrimSpace(cfg.Calendar.ID) == "" {
		req.Logger.Warn("missing calendar id")
		return nil
	}

	if err := m.deps.Store.DeleteEvent(ctx, cfg.Calendar.ID, eventID); err != nil {
		m.reply(ctx, req, "Delete failed: "+err.Error())
		return err
	}
	req.Logger.Info("event deleted", logx.String("event", eventID))
	return nil
}

func (m *Manager) cmdCalendarShow(ctx context.Context, req *Request) error {
	if m.deps.Store == nil {
		m.reply(ctx, req, "Calendar service is not available")
		return nil
	}

	// Refresh only if no snapshot has ever been published (or it was
	// invalidated by a create/delete); otherwise serve the cached one.
	if !m.deps.Store.Cached() {
		if err := m.deps.Store.Refresh(ctx); err != nil {
			req.Logger.Warn("refresh failed", logx.Err(err))
		}
	}

	details := len(req.Args) > 0 && req.Args[0] == "details"

	snap := m.deps.Store.Snapshot()
	if len(snap.Events) == 0 {
		m.reply(ctx, req, "No events found")
		return nil
	}
	for _, ev := range snap.Events {
		m.reply(ctx, req, calendar.Render(ev, details))
	}
	return nil
}
