// Package memory provides in-process store implementations used when no
// database path is configured.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/v0xg/screenpilot/internal/faults"
	"github.com/v0xg/screenpilot/internal/store"
)

// Store implements store.ProfileStore and store.LogStore in memory.
type Store struct {
	mu       sync.Mutex
	profiles map[string]store.Profile
	entries  []store.LogEntry
	fs       []faults.Record
}

// New creates an empty memory store.
func New() *Store {
	return &Store{profiles: map[string]store.Profile{}}
}

func (s *Store) Get(ctx context.Context, id string) (store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return store.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) Save(ctx context.Context, p store.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, e store.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) AppendFault(ctx context.Context, r faults.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs = append(s.fs, r)
	return nil
}

func (s *Store) RecentFaults(ctx context.Context, n int) ([]faults.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.fs) {
		n = len(s.fs)
	}
	out := make([]faults.Record, n)
	copy(out, s.fs[len(s.fs)-n:])
	return out, nil
}

// Entries returns a copy of the appended log entries.
func (s *Store) Entries() []store.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
