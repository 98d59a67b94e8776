package main

import (
	"context"
	"fmt"

	"github.com/ukaji3/exfill-go/pkg/exfill/config"
	"github.com/ukaji3/exfill-go/pkg/exfill/knowledge"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"go.uber.org/zap"
)

// newCompleter builds the configured generation client, wrapped with retry
// when llm.max_attempts is above one.
func newCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}
	backoff, err := cfg.LLMRetryBackoff()
	if err != nil {
		return nil, err
	}

	var c llm.Completer
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err = llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	case config.ProviderAnthropic:
		c, err = llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     timeout,
		})
	default:
		return nil, fmt.Errorf("invalid LLM provider: %s", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(c, cfg.LLM.MaxAttempts, backoff), nil
}

// openStore opens the knowledge store with a Gemini embedder.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*knowledge.Store, error) {
	embedder, err := knowledge.NewGenAIEmbedder(ctx, cfg.Embedding.APIKey, cfg.Embedding.Model)
	if err != nil {
		return nil, err
	}
	store, err := knowledge.Open(cfg.Store.Path, embedder, logger.Named("knowledge"))
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}
	return store, nil
}
