// Package scheduler owns the live capture/analysis loop: it acquires stereo
// frame pairs, submits them for analysis, classifies failures and decides
// when the next cycle may run.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/v0xg/screenpilot/internal/analysis"
	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/faults"
	"github.com/v0xg/screenpilot/internal/metrics"
	"github.com/v0xg/screenpilot/internal/step"
	"github.com/v0xg/screenpilot/internal/store"
)

// Mode is the scheduler lifecycle state.
type Mode string

const (
	Idle Mode = "idle"
	Live Mode = "live"
)

// State is a snapshot of the scheduler, published to listeners on every
// transition.
type State struct {
	Mode           Mode
	PilotEnabled   bool
	Busy           bool
	RetryRemaining time.Duration
}

// Timings are the loop intervals. The zero value is replaced by the domain
// constants; tests may shrink them.
type Timings struct {
	Settle        time.Duration // gap between frame A and frame B
	PairRetry     time.Duration // re-arm delay when a frame is missing
	Standby       time.Duration // pilot-disabled re-check interval
	Cadence       time.Duration // standard delay after a successful cycle
	CountdownTick time.Duration // retry countdown granularity
}

// DefaultTimings returns the production intervals. The 200ms settle gap is a
// domain constant: it gives the analyzer temporal signal between the two
// snapshots.
func DefaultTimings() Timings {
	return Timings{
		Settle:        200 * time.Millisecond,
		PairRetry:     500 * time.Millisecond,
		Standby:       1000 * time.Millisecond,
		Cadence:       3000 * time.Millisecond,
		CountdownTick: time.Second,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.Settle <= 0 {
		t.Settle = d.Settle
	}
	if t.PairRetry <= 0 {
		t.PairRetry = d.PairRetry
	}
	if t.Standby <= 0 {
		t.Standby = d.Standby
	}
	if t.Cadence <= 0 {
		t.Cadence = d.Cadence
	}
	if t.CountdownTick <= 0 {
		t.CountdownTick = d.CountdownTick
	}
	return t
}

// SequenceSink receives the step list of each successful analysis cycle.
type SequenceSink interface {
	Attach(step.Sequence)
}

// Options configures a Scheduler.
type Options struct {
	Source    capture.Source
	Analyzer  analysis.Analyzer
	Profiles  store.ProfileStore
	Logs      store.LogStore
	Sink      SequenceSink
	ProfileID string
	Timings   Timings
	OnState   func(State)
	OnFrame   func(capture.Frame)
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Scheduler runs the live loop. All externally set flags are re-read from
// shared state at every resumption point, never captured at loop start.
type Scheduler struct {
	mu             sync.Mutex
	mode           Mode
	pilotEnabled   bool
	busy           bool
	retryRemaining time.Duration
	acquired       bool
	starting       bool

	captureTimer  *time.Timer
	countdownStop chan struct{}
	liveCtx       context.Context
	cancelLive    context.CancelFunc

	source    capture.Source
	analyzer  analysis.Analyzer
	profiles  store.ProfileStore
	logs      store.LogStore
	sink      SequenceSink
	profileID string
	timings   Timings
	onState   func(State)
	onFrame   func(capture.Frame)
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an idle scheduler with the pilot enabled.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		mode:         Idle,
		pilotEnabled: true,
		source:       opts.Source,
		analyzer:     opts.Analyzer,
		profiles:     opts.Profiles,
		logs:         opts.Logs,
		sink:         opts.Sink,
		profileID:    opts.ProfileID,
		timings:      opts.Timings.withDefaults(),
		onState:      opts.OnState,
		onFrame:      opts.OnFrame,
		metrics:      opts.Metrics,
		logger:       logger.With("svc", "scheduler"),
	}
}

// StartLive acquires the capture source and begins the live loop with an
// immediate cycle. An unacquirable source surfaces as
// capture.ErrSourceUnavailable and is not retried.
func (s *Scheduler) StartLive(ctx context.Context) error {
	s.mu.Lock()
	if s.mode == Live || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.mu.Unlock()

	err := s.source.Acquire(ctx)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mode = Live
	s.acquired = true
	s.retryRemaining = 0
	s.stopTimerLocked()
	s.stopCountdownLocked()
	liveCtx, cancel := context.WithCancel(context.Background())
	s.liveCtx, s.cancelLive = liveCtx, cancel
	s.mu.Unlock()

	s.logger.Info("Live mode started", "profile", s.profileID)
	s.notify()
	go s.cycle(false)
	return nil
}

// StopLive cancels any pending capture or countdown, releases the source
// exactly once and returns to Idle. Safe to call repeatedly.
func (s *Scheduler) StopLive() {
	s.mu.Lock()
	s.mode = Idle
	s.retryRemaining = 0
	s.stopTimerLocked()
	s.stopCountdownLocked()
	cancel := s.cancelLive
	s.cancelLive = nil
	acquired := s.acquired
	s.acquired = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if acquired {
		if err := s.source.Release(); err != nil {
			s.logger.Warn("Failed to release capture source", "error", err)
		}
		s.logger.Info("Live mode stopped")
	}
	s.metrics.SetRetryRemaining(0)
	s.notify()
}

// SetPilotEnabled toggles whether the loop may proceed past standby into an
// actual capture. Disabling does not stop live mode.
func (s *Scheduler) SetPilotEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.pilotEnabled != enabled
	s.pilotEnabled = enabled
	s.mu.Unlock()

	if changed {
		s.logger.Info("Pilot toggled", "enabled", enabled)
		s.notify()
	}
}

// TriggerOnce forces one capture cycle immediately, bypassing standby when
// the pilot is disabled. It does not alter the pilot flag.
func (s *Scheduler) TriggerOnce() {
	go s.cycle(true)
}

// Snapshot returns the current state.
func (s *Scheduler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Mode:           s.mode,
		PilotEnabled:   s.pilotEnabled,
		Busy:           s.busy,
		RetryRemaining: s.retryRemaining,
	}
}

// cycle runs one guarded capture attempt. force bypasses the standby guard
// only; busy, retry backoff and idle mode always win.
func (s *Scheduler) cycle(force bool) {
	s.mu.Lock()
	if s.mode != Live || s.busy {
		s.mu.Unlock()
		return
	}
	if s.retryRemaining > 0 {
		// An active backoff wins, but the chain must stay armed or the
		// loop would die the first time a timer fires into this guard.
		if s.pilotEnabled {
			s.scheduleRetryAwareLocked(s.retryRemaining)
		} else {
			s.scheduleLocked(s.timings.Standby)
		}
		s.mu.Unlock()
		return
	}
	if !s.pilotEnabled && !force {
		s.scheduleLocked(s.timings.Standby)
		s.mu.Unlock()
		return
	}
	ctx := s.liveCtx
	s.mu.Unlock()

	s.metrics.CaptureCycle()

	frameA, errA := s.source.Grab(ctx)
	if err := sleepCtx(ctx, s.timings.Settle); err != nil {
		return
	}
	frameB, errB := s.source.Grab(ctx)

	// A missing frame is a fast-retry condition, not a fault: no external
	// call was made.
	if errA != nil || errB != nil || frameA.Missing() || frameB.Missing() {
		s.logger.Debug("Incomplete frame pair, fast retry", "errA", errA, "errB", errB)
		s.mu.Lock()
		if s.mode == Live {
			s.scheduleLocked(s.timings.PairRetry)
		}
		s.mu.Unlock()
		return
	}
	if s.onFrame != nil {
		s.onFrame(frameB)
	}

	s.mu.Lock()
	if s.mode != Live {
		s.mu.Unlock()
		return
	}
	s.busy = true
	s.mu.Unlock()
	s.notify()

	profile := s.loadProfile(ctx)
	result, err := s.analyzer.Analyze(ctx, frameA, frameB, profile)

	next := s.timings.Cadence
	switch {
	case err != nil && ctx.Err() != nil:
		// Live mode ended mid-call; nothing to classify or re-arm.
		s.finishCycle(0, false)
		return

	case err != nil:
		rec := faults.Classify(err)
		s.logger.Warn("Analysis failed", "category", rec.Category, "backoff", rec.Backoff, "error", err)
		s.metrics.AnalysisFailure(string(rec.Category))
		s.appendFault(rec)
		s.mu.Lock()
		s.retryRemaining = rec.Backoff
		s.startCountdownLocked()
		s.mu.Unlock()
		s.metrics.SetRetryRemaining(rec.Backoff.Seconds())
		next = rec.Backoff

	default:
		s.logger.Info("Analysis complete",
			"phase", result.Phase,
			"title", result.Title,
			"steps", len(result.Sequence),
			"threat", result.ThreatLevel)
		s.metrics.SequenceProduced()
		s.mu.Lock()
		s.retryRemaining = 0
		s.stopCountdownLocked()
		s.mu.Unlock()
		s.metrics.SetRetryRemaining(0)
		if s.sink != nil {
			s.sink.Attach(result.Sequence)
		}
		s.appendEntry(result)
	}

	s.finishCycle(next, true)
}

func (s *Scheduler) finishCycle(next time.Duration, arm bool) {
	s.mu.Lock()
	s.busy = false
	if arm && s.mode == Live {
		if s.pilotEnabled {
			s.scheduleRetryAwareLocked(next)
		} else {
			s.scheduleLocked(s.timings.Standby)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// scheduleRetryAwareLocked arms the next cycle and clears any remaining
// backoff just before it fires, so the countdown never races the timer.
func (s *Scheduler) scheduleRetryAwareLocked(d time.Duration) {
	s.stopTimerLocked()
	s.captureTimer = time.AfterFunc(d, func() {
		s.mu.Lock()
		s.retryRemaining = 0
		s.stopCountdownLocked()
		s.mu.Unlock()
		s.metrics.SetRetryRemaining(0)
		s.cycle(false)
	})
}

// scheduleLocked arms the single capture timer, replacing any prior handle.
func (s *Scheduler) scheduleLocked(d time.Duration) {
	s.stopTimerLocked()
	s.captureTimer = time.AfterFunc(d, func() { s.cycle(false) })
}

func (s *Scheduler) stopTimerLocked() {
	if s.captureTimer != nil {
		s.captureTimer.Stop()
		s.captureTimer = nil
	}
}

// startCountdownLocked decrements retryRemaining once per tick so callers
// can render the live cooldown. Exactly one countdown runs at a time.
func (s *Scheduler) startCountdownLocked() {
	s.stopCountdownLocked()
	stop := make(chan struct{})
	s.countdownStop = stop

	go func() {
		ticker := time.NewTicker(s.timings.CountdownTick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				s.retryRemaining -= s.timings.CountdownTick
				if s.retryRemaining <= 0 {
					s.retryRemaining = 0
					if s.countdownStop == stop {
						s.countdownStop = nil
					}
					s.mu.Unlock()
					s.metrics.SetRetryRemaining(0)
					s.notify()
					return
				}
				remaining := s.retryRemaining
				s.mu.Unlock()
				s.metrics.SetRetryRemaining(remaining.Seconds())
				s.notify()
			}
		}
	}()
}

func (s *Scheduler) stopCountdownLocked() {
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
}

func (s *Scheduler) loadProfile(ctx context.Context) store.Profile {
	if s.profiles == nil || s.profileID == "" {
		return store.Profile{}
	}
	profile, err := s.profiles.Get(ctx, s.profileID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to load profile", "id", s.profileID, "error", err)
		}
		return store.Profile{ID: s.profileID}
	}
	return profile
}

// appendEntry persists a log record for a successful cycle. Fire-and-forget:
// the loop never blocks on or fails from the log store.
func (s *Scheduler) appendEntry(result *analysis.Result) {
	if s.logs == nil {
		return
	}
	entry := store.LogEntry{
		Title:       result.Title,
		Summary:     result.Summary,
		Phase:       result.Phase,
		ThreatLevel: result.ThreatLevel,
		Steps:       len(result.Sequence),
		CreatedAt:   time.Now().UTC(),
	}
	go func() {
		if err := s.logs.AppendEntry(context.Background(), entry); err != nil {
			s.logger.Debug("Failed to append log entry", "error", err)
		}
	}()
}

// appendFault persists the record before the failure is surfaced through
// state, so it survives a restart even with no observer attached. Store
// errors never propagate to the loop.
func (s *Scheduler) appendFault(rec faults.Record) {
	if s.logs == nil {
		return
	}
	if err := s.logs.AppendFault(context.Background(), rec); err != nil {
		s.logger.Debug("Failed to append fault record", "error", err)
	}
}

func (s *Scheduler) notify() {
	if s.onState != nil {
		s.onState(s.Snapshot())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
