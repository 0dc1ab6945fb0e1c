package calendar

import "time"

// Event is one upcoming calendar entry. The ID is opaque and stable across
// refreshes. Start is always convertible to UTC; Timezone keeps the label
// declared upstream (empty = unknown).
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	CalendarID  string
}

// Snapshot is the complete, sorted, wholesale-replaced set of known
// upcoming events. It is never mutated after publication.
type Snapshot struct {
	Events    []Event
	Refreshed time.Time
}

// MinutesLeft returns ceil(start - now) in minutes. Zero means the event
// starts within the current minute; negative means it already started.
func MinutesLeft(now, start time.Time) int {
	d := start.UTC().Sub(now.UTC())
	m := d / time.Minute
	if d%time.Minute > 0 {
		m++
	}
	return int(m)
}
