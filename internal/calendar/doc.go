// Package calendar polls the upstream calendar service and posts reminder
// messages to a chat channel as event start times approach.
//
// Pieces:
//   - Client: narrow calendar-service boundary (Google implementation)
//   - Store: wholesale-replaced, time-ordered snapshot of upcoming events
//   - Worker: once-per-minute tick loop applying the reminder tiers
//   - Digest: optional cron-driven summary post
package calendar
