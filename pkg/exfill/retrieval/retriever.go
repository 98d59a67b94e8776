// Package retrieval fetches evidence chunks that ground generated answers.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"go.uber.org/zap"
)

// DefaultTopK is the number of chunks returned when no bound is configured.
const DefaultTopK = 5

// Searcher is a similarity search backend.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string, topK int) ([]models.EvidenceChunk, error) {
	return f(ctx, query, topK)
}

// Retriever bounds and orders the results of a Searcher.
type Retriever struct {
	searcher Searcher
	topK     int
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(s Searcher, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{searcher: s, topK: topK, logger: logger}
}

// TopK returns the configured bound.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns at most TopK chunks by descending score. Equal scores keep
// backend order and duplicates are kept. A blank query or a nil searcher
// yields no evidence.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.EvidenceChunk, error) {
	if strings.TrimSpace(query) == "" || r.searcher == nil {
		return nil, nil
	}

	chunks, err := r.searcher.Search(ctx, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	sorted := make([]models.EvidenceChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > r.topK {
		sorted = sorted[:r.topK]
	}

	r.logger.Debug("evidence retrieved",
		zap.Int("evidence", len(sorted)),
		zap.Float64s("scores", Scores(sorted)))
	return sorted, nil
}

// JoinEvidence concatenates chunk texts separated by blank lines.
func JoinEvidence(chunks []models.EvidenceChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Scores returns the score of every chunk in order.
func Scores(chunks []models.EvidenceChunk) []float64 {
	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = c.Score
	}
	return scores
}
