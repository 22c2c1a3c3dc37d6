package analysis

import (
	"context"
	"fmt"

	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/step"
	"github.com/v0xg/screenpilot/internal/store"
)

// Element is an on-screen element the analysis service detected.
type Element struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Kind  string  `json:"kind,omitempty"`
}

// Result is the outcome of analyzing one stereo frame pair.
type Result struct {
	Phase            string        `json:"phase"`
	Title            string        `json:"title"`
	Summary          string        `json:"summary"`
	Sequence         step.Sequence `json:"sequence"`
	ThreatLevel      string        `json:"threatLevel"`
	DetectedElements []Element     `json:"detectedElements"`
}

// Analyzer is the external analysis contract. Frame order matters: frameA
// precedes frameB by the scheduler's fixed settle interval.
type Analyzer interface {
	Analyze(ctx context.Context, frameA, frameB capture.Frame, profile store.Profile) (*Result, error)
}

// NewAnalyzer creates an analyzer backed by the named provider.
func NewAnalyzer(name, model string) (Analyzer, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeAnalyzer(model)
	case "openai", "gpt":
		return NewOpenAIAnalyzer(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}
