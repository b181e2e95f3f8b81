// Package history records finished builds so `packsmith history` can show
// recent outcomes, durations, and draft cache effectiveness.
package history

import (
	"context"
	"time"
)

// DefaultFileName is the history database file inside the project cache
// directory.
const DefaultFileName = "history.db"

// Record describes one finished build.
type Record struct {
	BuildID     string
	StartedAt   time.Time
	Duration    time.Duration
	Outcome     string
	Error       string
	CacheHits   int
	CacheMisses int
}

// Store persists build records.
type Store interface {
	// Append adds a record to the store.
	Append(ctx context.Context, record Record) error

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Close closes the store and releases resources.
	Close() error
}
