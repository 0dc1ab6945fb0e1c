// Package storage persists fired-reminder marks so reminders survive a
// restart near a threshold minute without double-firing.
//
// Persistence is optional: the faithful behavior of the bot recomputes
// every tick from wall-clock math alone, and that stays the default.
package storage
