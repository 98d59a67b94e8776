// Package llm defines the generation-service contract used by the pipeline
// (prompt in, text out) and its provider implementations.
package llm

import "context"

// Request is a single prompt exchange.
type Request struct {
	// System is the system instruction.
	System string
	// Prompt is the user prompt.
	Prompt string
}

// Response is the generated text plus token counts when the provider reports them.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer sends one blocking request to a generation service.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
