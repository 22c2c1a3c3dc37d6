package analysis

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/v0xg/screenpilot/internal/capture"
	"github.com/v0xg/screenpilot/internal/store"
)

// OpenAIAnalyzer implements the Analyzer interface using OpenAI.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates a new OpenAI analyzer.
func NewOpenAIAnalyzer(model string) (*OpenAIAnalyzer, error) {
	apiKey := os.Getenv("SCREENPILOT_OPENAI_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("SCREENPILOT_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}

	client := openai.NewClient(apiKey)

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIAnalyzer{
		client: client,
		model:  model,
	}, nil
}

// Analyze submits the frame pair and profile context to OpenAI and parses
// the returned action plan.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, frameA, frameB capture.Frame, profile store.Profile) (*Result, error) {
	b64A, err := encodeFrame(frameA)
	if err != nil {
		return nil, fmt.Errorf("prepare frame A: %w", err)
	}
	b64B, err := encodeFrame(frameB)
	if err != nil {
		return nil, fmt.Errorf("prepare frame B: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    "data:image/png;base64," + b64A,
								Detail: openai.ImageURLDetailAuto,
							},
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    "data:image/png;base64," + b64B,
								Detail: openai.ImageURLDetailAuto,
							},
						},
						{
							Type: openai.ChatMessagePartTypeText,
							Text: buildUserPrompt(profile),
						},
					},
				},
			},
			MaxTokens: 1024,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	result, err := parseResult(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response as JSON: %w\nResponse: %s", err, responseText)
	}

	return result, nil
}
