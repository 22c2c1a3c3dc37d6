package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/v0xg/screenpilot/internal/step"
)

// interStepPause separates consecutive steps while the continuous loop runs.
const interStepPause = 200 * time.Millisecond

// Controller binds the engine to the active sequence and exposes the
// play/pause/step transport. At most one run loop is live at a time.
type Controller struct {
	mu      sync.Mutex
	engine  *Engine
	seq     step.Sequence
	index   int
	playing bool
	cancel  context.CancelFunc
	done    chan struct{}

	pause  time.Duration
	onStep func(step.Step)
	logger *slog.Logger
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Engine *Engine
	OnStep func(step.Step) // called after each fully animated step
	Logger *slog.Logger
}

// NewController creates a controller over the given engine.
func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		engine: opts.Engine,
		pause:  interStepPause,
		onStep: opts.OnStep,
		logger: logger.With("svc", "playback.Controller"),
	}
}

// Attach replaces the active sequence, resets position and momentum, and
// autoplays when the sequence is non-empty.
func (c *Controller) Attach(seq step.Sequence) {
	c.halt()

	c.mu.Lock()
	c.seq = seq
	c.index = 0
	c.engine.Reset()
	if len(seq) == 0 {
		c.playing = false
		c.mu.Unlock()
		c.engine.Idle()
		c.logger.Debug("Attached empty sequence")
		return
	}
	c.playing = true
	c.startLoopLocked()
	c.mu.Unlock()

	c.logger.Debug("Attached sequence", "steps", len(seq))
}

// TogglePlay flips Playing/Paused without altering index or momentum.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if playing {
		c.halt()
		c.mu.Lock()
		c.playing = false
		c.mu.Unlock()
		return
	}

	// A paused controller may still be animating a single-step preview;
	// halt it so the run loop is the only live handle.
	c.halt()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.seq) == 0 {
		return
	}
	c.playing = true
	c.startLoopLocked()
}

// StepForward pauses and previews the next step.
func (c *Controller) StepForward() { c.stepBy(1) }

// StepBackward pauses and previews the previous step.
func (c *Controller) StepBackward() { c.stepBy(-1) }

// Stop pauses playback and abandons any in-flight step.
func (c *Controller) Stop() {
	c.halt()
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

// Playing reports whether the continuous loop is engaged.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Index returns the current step index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) stepBy(delta int) {
	c.halt()

	c.mu.Lock()
	c.playing = false
	if len(c.seq) == 0 {
		c.mu.Unlock()
		return
	}
	cur := c.index
	if cur > len(c.seq)-1 {
		cur = len(c.seq) - 1
	}
	next := cur + delta
	if next < 0 {
		next = 0
	}
	if next > len(c.seq)-1 {
		next = len(c.seq) - 1
	}
	c.index = next
	s := c.seq[next]

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	// Single-step preview: full step phases, no continuous loop.
	go func() {
		defer close(done)
		if err := c.engine.PlayStep(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("Step preview aborted", "step", s.ID, "error", err)
		}
	}()
}

// startLoopLocked launches the continuous run loop. Caller holds c.mu and
// has already halted any prior loop.
func (c *Controller) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	go c.runLoop(ctx, done)
}

func (c *Controller) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		c.mu.Lock()
		if !c.playing || ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		if c.index >= len(c.seq) {
			c.playing = false
			c.mu.Unlock()
			return
		}
		s := c.seq[c.index]
		c.mu.Unlock()

		if err := c.engine.PlayStep(ctx, s); err != nil {
			return
		}
		if c.onStep != nil {
			c.onStep(s)
		}

		c.mu.Lock()
		c.index++
		c.mu.Unlock()

		if err := sleepCtx(ctx, c.pause); err != nil {
			return
		}
	}
}

// halt cancels the active loop or preview and waits for it to observe the
// cancellation, so only one handle is ever live.
func (c *Controller) halt() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
