package capture

import (
	"context"
	"sync"
	"time"
)

// StaticSource serves a fixed set of frames in order, cycling once
// exhausted. It backs dry runs and tests where no browser is available.
type StaticSource struct {
	mu         sync.Mutex
	frames     [][]byte
	next       int
	acquired   bool
	acquireErr error
}

// NewStaticSource creates a source over pre-rendered PNG frames. A nil entry
// yields a missing frame.
func NewStaticSource(frames ...[]byte) *StaticSource {
	return &StaticSource{frames: frames}
}

// FailAcquire makes the next Acquire return ErrSourceUnavailable.
func (s *StaticSource) FailAcquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquireErr = ErrSourceUnavailable
}

func (s *StaticSource) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return s.acquireErr
	}
	s.acquired = true
	return nil
}

func (s *StaticSource) Grab(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired || len(s.frames) == 0 {
		return Frame{}, ErrSourceUnavailable
	}
	data := s.frames[s.next%len(s.frames)]
	s.next++
	return Frame{PNG: data, CapturedAt: time.Now().UTC()}, nil
}

func (s *StaticSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired = false
	return nil
}

// Acquired reports whether the source is currently held.
func (s *StaticSource) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}
