package store

import (
	"context"
	"errors"
	"time"

	"github.com/v0xg/screenpilot/internal/faults"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// Profile is the opaque context handed to the analysis contract.
type Profile struct {
	ID        string
	Genre     string
	Notes     string
	UpdatedAt time.Time
}

// LogEntry records one successful analysis cycle.
type LogEntry struct {
	ID          string
	Title       string
	Summary     string
	Phase       string
	ThreatLevel string
	Steps       int
	CreatedAt   time.Time
}

// ProfileStore is a keyed profile record store.
type ProfileStore interface {
	Get(ctx context.Context, id string) (Profile, error)
	Save(ctx context.Context, p Profile) error
}

// LogStore persists analysis outcomes. Callers treat appends as
// fire-and-forget; implementations must not block on external consumers.
type LogStore interface {
	AppendEntry(ctx context.Context, e LogEntry) error
	AppendFault(ctx context.Context, r faults.Record) error
	RecentFaults(ctx context.Context, n int) ([]faults.Record, error)
}
