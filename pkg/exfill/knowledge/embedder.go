// Package knowledge keeps the evidence corpus that answers are grounded in:
// text is chunked, embedded and stored in SQLite, and searched by cosine
// similarity.
package knowledge

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// MaxEmbedBatch is the largest number of texts sent in one embedding request.
const MaxEmbedBatch = 100

// Embedder turns text into vectors.
type Embedder interface {
	// EmbedDocuments embeds corpus chunks, one vector per text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// GenAIEmbedder generates embeddings with the Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates a GenAIEmbedder.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	if model == "" {
		model = defaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

// EmbedDocuments embeds texts in requests of at most MaxEmbedBatch texts.
func (e *GenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatches(ctx, texts, func(ctx context.Context, batch []string) ([][]float32, error) {
		return e.embed(ctx, batch, "RETRIEVAL_DOCUMENT")
	})
}

// EmbedQuery embeds one query.
func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GenAIEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: task,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai: embed: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// embedBatches calls embed on consecutive slices of at most MaxEmbedBatch
// texts and concatenates the vectors in input order.
func embedBatches(ctx context.Context, texts []string, embed func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxEmbedBatch {
		end := min(start+MaxEmbedBatch, len(texts))
		batch, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed texts %d-%d: got %d embeddings", start, end-1, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
