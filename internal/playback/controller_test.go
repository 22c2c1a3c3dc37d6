package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/screenpilot/internal/step"
)

func fastController(t *testing.T) (*Controller, *Engine, *stepCounter) {
	t.Helper()
	engine := NewEngine(EngineOptions{Tick: 1 * time.Millisecond})
	counter := &stepCounter{}
	c := NewController(ControllerOptions{Engine: engine, OnStep: counter.inc})
	c.pause = 1 * time.Millisecond
	t.Cleanup(c.Stop)
	return c, engine, counter
}

type stepCounter struct {
	mu sync.Mutex
	n  int
}

func (s *stepCounter) inc(step.Step) {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
}

func (s *stepCounter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func shortSequence(n int) step.Sequence {
	seq := make(step.Sequence, 0, n)
	for i := 0; i < n; i++ {
		seq = append(seq, step.Step{ID: "s", Kind: step.Wait, DurationMs: 1})
	}
	return seq
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAttachAutoplaysAndRunsToEnd(t *testing.T) {
	c, _, counter := fastController(t)

	c.Attach(shortSequence(3))
	assert.True(t, c.Playing())

	waitFor(t, func() bool { return counter.count() == 3 }, "sequence never finished")
	waitFor(t, func() bool { return !c.Playing() }, "loop should auto-pause at the end")
	assert.Equal(t, 3, c.Index())
}

func TestAttachResetsIndexAndMomentum(t *testing.T) {
	c, engine, counter := fastController(t)

	c.Attach(shortSequence(2))
	waitFor(t, func() bool { return counter.count() == 2 }, "first sequence never finished")
	require.Greater(t, engine.Momentum(), step.MomentumMin)

	c.Stop()
	c.Attach(shortSequence(1))

	// Momentum restarts at the floor; the first step bumps it once.
	waitFor(t, func() bool { return counter.count() == 3 }, "second sequence never finished")
	assert.InDelta(t, step.MomentumMin+step.MomentumStep, engine.Momentum(), 0.0001)
}

func TestAttachEmptySequenceIdles(t *testing.T) {
	c, engine, _ := fastController(t)

	c.Attach(step.Sequence{})

	assert.False(t, c.Playing())
	assert.False(t, engine.Pose().Visible)
}

func TestTogglePlayPausesAndResumesInPlace(t *testing.T) {
	c, _, _ := fastController(t)

	seq := shortSequence(50)
	c.Attach(seq)
	waitFor(t, func() bool { return c.Index() > 0 }, "loop never advanced")

	c.TogglePlay()
	require.False(t, c.Playing())
	idx := c.Index()

	// Paused: the index holds still.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, idx, c.Index())

	c.TogglePlay()
	assert.True(t, c.Playing())
	waitFor(t, func() bool { return c.Index() > idx }, "loop did not resume")
}

func TestTogglePlayWithoutSequenceIsANoop(t *testing.T) {
	c, _, _ := fastController(t)

	c.TogglePlay()
	assert.False(t, c.Playing())
}

func TestStepForwardPausesAndAdvances(t *testing.T) {
	c, _, _ := fastController(t)

	c.Attach(shortSequence(5))
	c.StepForward()

	assert.False(t, c.Playing())
	assert.LessOrEqual(t, c.Index(), 4)
	assert.GreaterOrEqual(t, c.Index(), 1)
}

func TestStepForwardClampsAtLastStep(t *testing.T) {
	c, _, counter := fastController(t)

	c.Attach(shortSequence(2))
	waitFor(t, func() bool { return counter.count() == 2 }, "sequence never finished")
	waitFor(t, func() bool { return !c.Playing() }, "loop should auto-pause at the end")

	// The finished loop leaves index at len(seq); stepping forward clamps
	// to the last step instead of running past the end.
	c.StepForward()
	assert.Equal(t, 1, c.Index())
	c.StepForward()
	assert.Equal(t, 1, c.Index())
}

func TestStepBackwardClampsAtZero(t *testing.T) {
	c, _, _ := fastController(t)

	c.Attach(shortSequence(3))
	c.StepBackward()
	c.StepBackward()
	c.StepBackward()

	assert.Equal(t, 0, c.Index())
	assert.False(t, c.Playing())
}

func TestStepControlsWithoutSequenceAreNoops(t *testing.T) {
	c, _, _ := fastController(t)

	c.StepForward()
	c.StepBackward()

	assert.Equal(t, 0, c.Index())
	assert.False(t, c.Playing())
}

func TestStopAbandonsLongStep(t *testing.T) {
	c, _, _ := fastController(t)

	c.Attach(step.Sequence{{ID: "slow", Kind: step.Wait, DurationMs: 60_000}})
	require.True(t, c.Playing())

	start := time.Now()
	c.Stop()

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, c.Playing())
}

func TestAttachReplacesRunningSequence(t *testing.T) {
	c, _, _ := fastController(t)

	c.Attach(step.Sequence{{ID: "slow", Kind: step.Wait, DurationMs: 60_000}})
	require.True(t, c.Playing())

	c.Attach(shortSequence(1))
	waitFor(t, func() bool { return !c.Playing() }, "replacement sequence never finished")
	assert.Equal(t, 1, c.Index())
}

func TestResumeHaltsInFlightPreview(t *testing.T) {
	rec := &poseRecorder{}
	engine := NewEngine(EngineOptions{Sink: rec.sink, Tick: 1 * time.Millisecond})
	c := NewController(ControllerOptions{Engine: engine})
	c.pause = 1 * time.Millisecond
	t.Cleanup(c.Stop)

	c.Attach(step.Sequence{{
		ID:         "slow",
		Kind:       step.Drag,
		Start:      &step.Point{X: 0, Y: 0},
		End:        &step.Point{X: 1000, Y: 1000},
		DurationMs: 30_000,
	}})
	c.StepForward()
	require.False(t, c.Playing())

	// Resuming must take over from the preview, and Stop must then silence
	// everything: no orphaned goroutine may keep driving the engine.
	c.TogglePlay()
	require.True(t, c.Playing())
	c.Stop()

	n := len(rec.all())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, len(rec.all()), "pose updates must cease once stopped")
}
