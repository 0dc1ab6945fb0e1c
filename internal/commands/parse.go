package commands

import (
	"errors"
	"strings"
	"time"
)

// dateFormat accepts day.month.year; Go's non-padded day/month verbs also
// match the zero-padded variants.
const dateFormat = "2.1.2006"

// clockFormat accepts H:mm and HH:mm (minutes must be two digits).
const clockFormat = "15:04"

var (
	errBadDate     = errors.New("invalid date")
	errBadTime     = errors.New("invalid time")
	errBadTimezone = errors.New("invalid timezone")
)

// ParseDate validates a d.M.yyyy style date.
func ParseDate(s string) (year int, month time.Month, day int, err error) {
	t, perr := time.Parse(dateFormat, s)
	if perr != nil {
		return 0, 0, 0, errBadDate
	}
	return t.Year(), t.Month(), t.Day(), nil
}

// ParseClock validates an H:mm style time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, perr := time.Parse(clockFormat, s)
	if perr != nil {
		return 0, 0, errBadTime
	}
	return t.Hour(), t.Minute(), nil
}

// ParseStart combines date, time-of-day and the timezone token into a UTC
// instant. The timezone argument exists only to remind humans that the
// time has to be UTC; anything but the literal "utc" is rejected.
func ParseStart(date, clock, timezone string) (time.Time, error) {
	year, month, day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if !strings.EqualFold(timezone, "utc") {
		return time.Time{}, errBadTimezone
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), nil
}

// tokenizeCommandLine splits command text into tokens while supporting
// quotes, e.g.:
//
//	calendar add 24.12.2026 18:00 utc "Team Sync" "bring cookies"
func tokenizeCommandLine(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar byte
		esc   bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if esc {
			buf.WriteByte(ch)
			esc = false
			continue
		}
		if ch == '\\' {
			esc = true
			continue
		}
		if inQ {
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteByte(ch)
			continue
		}
		if ch == '"' || ch == '\'' {
			inQ = true
			qChar = ch
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\n' {
			flush()
			continue
		}
		buf.WriteByte(ch)
	}
	flush()
	return out
}
