package calendar

import "fmt"

// Tier identifies which reminder tier fired for an event.
type Tier int

const (
	TierNone Tier = iota
	TierMinutes
	TierHours
	TierDays
	TierArrival
)

// Reminder is the result of evaluating one event against the threshold
// table at one tick.
type Reminder struct {
	Tier    Tier
	Minutes int // minutes left (minute tier)
	Hours   int // hours left (hour tier)
	Days    int // days left (day tier)
}

// Evaluate applies the reminder threshold table to minutesLeft.
//
// Tiers, in tie-break order:
//   - minutesLeft <= 60: fire only at exactly 60/30/15/5 (minute tier) or
//     0 (arrival). Negative values (already started) never fire.
//   - minutesLeft > 60: only exact hour boundaries are considered; day
//     boundaries win over hour tiers. Day reminders fire while <= 7 days
//     out; hour reminders fire at 3/6/9/12 hours out.
//
// Evaluation is pure wall-clock-vs-start math recomputed every tick; there
// is no "already fired" state here.
func Evaluate(minutesLeft int) (Reminder, bool) {
	if minutesLeft <= 60 {
		switch minutesLeft {
		case 60, 30, 15, 5:
			return Reminder{Tier: TierMinutes, Minutes: minutesLeft}, true
		case 0:
			return Reminder{Tier: TierArrival}, true
		}
		return Reminder{}, false
	}

	if minutesLeft%60 != 0 { // sync to full hour
		return Reminder{}, false
	}
	hoursLeft := minutesLeft / 60

	if hoursLeft%24 == 0 { // sync to full day
		daysLeft := hoursLeft / 24
		if daysLeft <= 7 {
			return Reminder{Tier: TierDays, Days: daysLeft}, true
		}
		return Reminder{}, false
	}

	if hoursLeft <= 12 && hoursLeft%3 == 0 {
		return Reminder{Tier: TierHours, Hours: hoursLeft}, true
	}
	return Reminder{}, false
}

// Headline is the short lead line prepended to the reminder message.
func (r Reminder) Headline() string {
	switch r.Tier {
	case TierMinutes:
		return fmt.Sprintf("T-%dminutes", r.Minutes)
	case TierHours:
		return fmt.Sprintf("T-%dhours", r.Hours)
	case TierDays:
		if r.Days == 1 {
			return "T-1day"
		}
		return fmt.Sprintf("T-%ddays", r.Days)
	case TierArrival:
		return "**ON YOUR FEET MAGGOTS**"
	}
	return ""
}

// Key is a stable identifier for the fired tier, used by the optional
// cross-restart dedup store.
func (r Reminder) Key() string {
	switch r.Tier {
	case TierMinutes:
		return fmt.Sprintf("m%d", r.Minutes)
	case TierHours:
		return fmt.Sprintf("h%d", r.Hours)
	case TierDays:
		return fmt.Sprintf("d%d", r.Days)
	case TierArrival:
		return "arrival"
	}
	return ""
}
