// Package metrics exposes prometheus instrumentation for the capture and
// playback loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors. A nil *Metrics is a valid no-op receiver so
// instrumentation stays optional.
type Metrics struct {
	captureCycles    prometheus.Counter
	analysisFailures *prometheus.CounterVec
	sequences        prometheus.Counter
	stepsPlayed      prometheus.Counter
	retryRemaining   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		captureCycles: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "screenpilot",
			Name:      "capture_cycles_total",
			Help:      "Capture cycles attempted.",
		}),
		analysisFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "screenpilot",
			Name:      "analysis_failures_total",
			Help:      "Analysis failures by classified category.",
		}, []string{"category"}),
		sequences: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "screenpilot",
			Name:      "sequences_total",
			Help:      "Sequences produced by successful analysis cycles.",
		}),
		stepsPlayed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "screenpilot",
			Name:      "steps_played_total",
			Help:      "Steps fully animated by the playback engine.",
		}),
		retryRemaining: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "screenpilot",
			Name:      "retry_remaining_seconds",
			Help:      "Remaining backoff before the next capture attempt.",
		}),
	}
}

func (m *Metrics) CaptureCycle() {
	if m != nil {
		m.captureCycles.Inc()
	}
}

func (m *Metrics) AnalysisFailure(category string) {
	if m != nil {
		m.analysisFailures.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) SequenceProduced() {
	if m != nil {
		m.sequences.Inc()
	}
}

func (m *Metrics) StepPlayed() {
	if m != nil {
		m.stepsPlayed.Inc()
	}
}

func (m *Metrics) SetRetryRemaining(seconds float64) {
	if m != nil {
		m.retryRemaining.Set(seconds)
	}
}
