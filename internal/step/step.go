package step

// Kind identifies the gesture a step performs.
type Kind string

const (
	Tap        Kind = "tap"
	Swipe      Kind = "swipe"
	Wait       Kind = "wait"
	Drag       Kind = "drag"
	HumanSwipe Kind = "human_swipe"
)

// Motion reports whether the kind moves the pointer between two points.
func (k Kind) Motion() bool {
	switch k {
	case Swipe, Drag, HumanSwipe:
		return true
	}
	return false
}

// Point is a 2D position in the normalized 0-1000 coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HumanizeConfig tunes human_swipe steps. JitterPx is accepted on the wire
// but the engine does not consume it.
type HumanizeConfig struct {
	SpeedMultiplier float64 `json:"speedMultiplier,omitempty"`
	JitterPx        float64 `json:"jitterPx,omitempty"`
	CurveIntensity  float64 `json:"curveIntensity,omitempty"`
}

// Step is one unit of an action plan.
type Step struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Start       *Point          `json:"start,omitempty"`
	End         *Point          `json:"end,omitempty"`
	DurationMs  int             `json:"durationMs,omitempty"`
	Description string          `json:"description,omitempty"`
	TargetLabel string          `json:"targetLabel,omitempty"`
	Humanize    *HumanizeConfig `json:"humanizeConfig,omitempty"`
}

// Inert reports whether a motion step is missing its end point. Inert steps
// skip their motion phase without failing the sequence.
func (s Step) Inert() bool {
	return s.Kind.Motion() && s.End == nil
}

// Label returns the annotation shown next to the pointer while the step runs.
func (s Step) Label() string {
	if s.TargetLabel != "" {
		return s.TargetLabel
	}
	return s.Description
}

// Sequence is the ordered, immutable step list produced by one analysis
// cycle. A freshly arrived sequence always restarts playback from index 0.
type Sequence []Step

// CursorPose is the pointer state published once per animation tick.
type CursorPose struct {
	X         float64
	Y         float64
	Pressed   bool
	Label     string
	Visible   bool
	Precision bool
}

// Momentum bounds. The playback engine raises momentum by MomentumStep at
// the start of every step, capped at MomentumMax, and resets it to
// MomentumMin when a new sequence is attached.
const (
	MomentumMin  = 1.0
	MomentumMax  = 2.0
	MomentumStep = 0.1
)
