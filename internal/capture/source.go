package capture

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable is returned when the capture device or stream cannot
// be acquired. It is fatal to the start attempt and never retried
// automatically.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// Frame is one captured snapshot.
type Frame struct {
	PNG        []byte
	CapturedAt time.Time
}

// Missing reports whether the frame carries no image data.
func (f Frame) Missing() bool {
	return len(f.PNG) == 0
}

// Source provides snapshots of the observed application. The scheduler owns
// the source exclusively and releases it exactly once on stop; Release must
// tolerate repeated calls.
type Source interface {
	Acquire(ctx context.Context) error
	Grab(ctx context.Context) (Frame, error)
	Release() error
}
