package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/v0xg/screenpilot/internal/step"
)

// Per-step phase timings. Travel, the tap hold and the recover pause divide
// by momentum; the lock hold does not (the precision flash is always crisp)
// and Wait steps are literal delays.
const (
	travelDuration = 200 * time.Millisecond
	lockDuration   = 50 * time.Millisecond
	tapHold        = 100 * time.Millisecond
	recoverPause   = 100 * time.Millisecond

	defaultTick = 16 * time.Millisecond
)

// PoseSink observes cursor pose updates. A failing sink mutes the rest of
// the current step's visuals but never aborts playback.
type PoseSink func(step.CursorPose) error

// EngineOptions configures a playback engine.
type EngineOptions struct {
	Sink   PoseSink
	Tick   time.Duration
	Logger *slog.Logger
}

// Engine animates a virtual pointer through steps. It exclusively owns the
// cursor pose and the momentum factor.
type Engine struct {
	mu       sync.Mutex
	pose     step.CursorPose
	momentum float64
	muted    bool

	tick   time.Duration
	sink   PoseSink
	logger *slog.Logger
}

// NewEngine creates an engine publishing poses to opts.Sink.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.Sink == nil {
		opts.Sink = func(step.CursorPose) error { return nil }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		momentum: step.MomentumMin,
		tick:     opts.Tick,
		sink:     opts.Sink,
		logger:   opts.Logger.With("svc", "playback.Engine"),
	}
}

// Reset restores momentum to its floor. Called when a new sequence is
// attached; momentum is never reset mid-sequence.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.momentum = step.MomentumMin
	e.mu.Unlock()
}

// Momentum returns the current speed-up factor.
func (e *Engine) Momentum() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.momentum
}

// Pose returns a snapshot of the current cursor pose.
func (e *Engine) Pose() step.CursorPose {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pose
}

// Idle hides the pointer. Used when an empty sequence arrives.
func (e *Engine) Idle() {
	e.mutate(func(p *step.CursorPose) {
		*p = step.CursorPose{}
	})
}

// PlayStep runs one step through its Travel, Lock, Act and Recover phases.
// The only returned errors are context errors: a cancellation abandons the
// in-flight step at its next suspension point.
func (e *Engine) PlayStep(ctx context.Context, s step.Step) error {
	e.mu.Lock()
	e.momentum = e.momentum + step.MomentumStep
	if e.momentum > step.MomentumMax {
		e.momentum = step.MomentumMax
	}
	m := e.momentum
	e.muted = false
	e.mu.Unlock()

	e.mutate(func(p *step.CursorPose) {
		p.Visible = true
		p.Label = s.Label()
	})

	// Travel
	if s.Start != nil {
		if err := e.glideTo(ctx, *s.Start, scale(travelDuration, m), linear); err != nil {
			return err
		}
	}

	// Lock
	if s.Start != nil && s.Kind != step.Wait {
		e.mutate(func(p *step.CursorPose) { p.Precision = true })
		err := sleepCtx(ctx, lockDuration)
		e.mutate(func(p *step.CursorPose) { p.Precision = false })
		if err != nil {
			return err
		}
	}

	// Act
	if err := e.act(ctx, s, m); err != nil {
		return err
	}

	// Recover
	return sleepCtx(ctx, scale(recoverPause, m))
}

func (e *Engine) act(ctx context.Context, s step.Step, m float64) error {
	switch {
	case s.Kind == step.Tap && s.Start != nil:
		// Taps land on the exact target, never interpolated.
		e.mutate(func(p *step.CursorPose) {
			p.X, p.Y = s.Start.X, s.Start.Y
			p.Pressed = true
		})
		err := sleepCtx(ctx, scale(tapHold, m))
		e.mutate(func(p *step.CursorPose) { p.Pressed = false })
		return err

	case s.Kind.Motion() && s.Start != nil && s.End != nil:
		durMs := s.DurationMs
		if durMs < 1 {
			durMs = 1
		}
		curve := linear
		if s.Kind == step.HumanSwipe {
			curve = easeInOutQuad
		}
		e.mutate(func(p *step.CursorPose) { p.Pressed = true })
		err := e.glideTo(ctx, *s.End, scale(time.Duration(durMs)*time.Millisecond, m), curve)
		e.mutate(func(p *step.CursorPose) { p.Pressed = false })
		return err

	case s.Kind == step.Wait:
		return sleepCtx(ctx, time.Duration(s.DurationMs)*time.Millisecond)
	}

	// Steps lacking required coordinates perform no motion or press and
	// fall through to Recover.
	return nil
}

// glideTo interpolates the pointer from its current position to a target
// over the given duration, sampling a monotonic clock on each tick.
func (e *Engine) glideTo(ctx context.Context, to step.Point, dur time.Duration, curve func(float64) float64) error {
	e.mu.Lock()
	from := step.Point{X: e.pose.X, Y: e.pose.Y}
	e.mu.Unlock()

	if dur <= 0 {
		e.moveTo(to)
		return nil
	}

	start := time.Now()
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t := float64(time.Since(start)) / float64(dur)
			if t >= 1 {
				e.moveTo(to)
				return nil
			}
			e.moveTo(lerp(from, to, curve(t)))
		}
	}
}

func (e *Engine) moveTo(p step.Point) {
	e.mutate(func(pose *step.CursorPose) {
		pose.X, pose.Y = p.X, p.Y
	})
}

// mutate applies fn to the pose under lock and publishes the result. A sink
// failure mutes further publishes until the next step.
func (e *Engine) mutate(fn func(*step.CursorPose)) {
	e.mu.Lock()
	fn(&e.pose)
	snapshot := e.pose
	muted := e.muted
	e.mu.Unlock()

	if muted {
		return
	}
	if err := e.sink(snapshot); err != nil {
		e.logger.Debug("Pose sink rejected update, muting step visuals", "error", err)
		e.mu.Lock()
		e.muted = true
		e.mu.Unlock()
	}
}

// lerp returns the point at eased progress p between from and to.
func lerp(from, to step.Point, p float64) step.Point {
	return step.Point{
		X: from.X + p*(to.X-from.X),
		Y: from.Y + p*(to.Y-from.Y),
	}
}

// linear is the identity progress curve.
func linear(t float64) float64 { return t }

// easeInOutQuad provides smooth acceleration/deceleration.
func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - (-2*t+2)*(-2*t+2)/2
}

// scale divides a duration by the momentum factor.
func scale(d time.Duration, momentum float64) time.Duration {
	return time.Duration(float64(d) / momentum)
}

// sleepCtx waits for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
