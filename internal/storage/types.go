package storage

import (
	"context"
	"time"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store records which reminder tiers already fired. Keys are
// "<eventID>/<tier>"; until bounds how long a mark is retained.
type Store interface {
	PutMark(ctx context.Context, key string, until time.Time) error
	SeenMark(ctx context.Context, key string) (bool, error)
	Close() error
}
