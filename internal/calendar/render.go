package calendar

import "strings"

const footerTimeFormat = "02.01.2006 15:04"

// Render formats an event as a notification message: title, optional
// description, and a footer with the UTC start. Events that arrived
// without a timezone label get a "(UTC?)" footer instead. Detail mode
// appends the opaque event id on its own line.
func Render(ev Event, details bool) string {
	var b strings.Builder

	b.WriteString(ev.Title)
	if ev.Description != "" {
		b.WriteString("\n")
		b.WriteString(ev.Description)
	}

	b.WriteString("\n")
	b.WriteString(ev.Start.UTC().Format(footerTimeFormat))
	if ev.Timezone != "" {
		b.WriteString(" UTC")
	} else {
		b.WriteString(" (UTC?)")
	}

	if details {
		b.WriteString("\nID ")
		b.WriteString(ev.ID)
	}

	return b.String()
}

// RenderReminder prefixes the rendered event with the tier headline.
func RenderReminder(r Reminder, ev Event) string {
	return r.Headline() + "\n" + Render(ev, false)
}
