package analysis

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/store"
)

// ClaudeAnalyzer implements the Analyzer interface using Anthropic's Claude.
type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

// NewClaudeAnalyzer creates a new Claude analyzer.
func NewClaudeAnalyzer(model string) (*ClaudeAnalyzer, error) {
	apiKey := os.Getenv("SCREENPILOT_ANTHROPIC_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("SCREENPILOT_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeAnalyzer{
		client: &client,
		model:  model,
	}, nil
}

// Analyze submits the frame pair and profile context to Claude and parses
// the returned action plan.
func (a *ClaudeAnalyzer) Analyze(ctx context.Context, frameA, frameB capture.Frame, profile store.Profile) (*Result, error) {
	b64A, err := encodeFrame(frameA)
	if err != nil {
		return nil, fmt.Errorf("prepare frame A: %w", err)
	}
	b64B, err := encodeFrame(frameB)
	if err != nil {
		return nil, fmt.Errorf("prepare frame B: %w", err)
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", b64A),
				anthropic.NewImageBlockBase64("image/png", b64B),
				anthropic.NewTextBlock(buildUserPrompt(profile)),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	// Extract text content
	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	result, err := parseResult(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response as JSON: %w\nResponse: %s", err, responseText)
	}

	return result, nil
}
