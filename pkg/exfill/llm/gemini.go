package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini completer.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Gemini implements Completer over the Google GenAI SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends req as a single-turn GenerateContent call.
func (g *Gemini) Complete(ctx context.Context, req Request) (Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			if sentinel := statusError(apiErr.Code); sentinel != nil {
				return Response{}, fmt.Errorf("gemini: %w: %s", sentinel, apiErr.Message)
			}
		}
		return Response{}, fmt.Errorf("gemini: %w", err)
	}

	text := result.Text()
	if text == "" {
		return Response{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	resp := Response{Text: text}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}
