package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (the default for real deployments)
//   - "memory": process-local map, records do not survive restarts
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// EventRecord links a scheduled event to its subscriber role.
// Immutable once written.
type EventRecord struct {
	EventID   string
	RoleID    string
	CreatedAt time.Time
}

// Store is the persistence API used by the reconciliation core.
type Store interface {
	// FindScheduledEvent returns the record for eventID, or (nil, nil)
	// if the event has never been resolved.
	FindScheduledEvent(ctx context.Context, eventID string) (*EventRecord, error)

	// CreateScheduledEvent inserts a record and reports the number of
	// affected rows. A conflicting record leaves the existing row
	// untouched and reports 0; the per-key insert is the final arbiter
	// when two processes race on the same event.
	CreateScheduledEvent(ctx context.Context, eventID, roleID string) (int64, error)

	Close() error
}
