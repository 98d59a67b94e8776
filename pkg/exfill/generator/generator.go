// Package generator produces grounded answers: it sends the rows or question
// of one unit of work with its retrieved evidence to the generation service
// under a five-phase reasoning protocol and returns the cleaned cell lines.
package generator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ukaji3/exfill-go/pkg/exfill/cleaner"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
	"go.uber.org/zap"
)

// Config configures a Generator.
type Config struct {
	// Organization is the respondent named in the system instruction.
	Organization string
	// Pricing prices each call for the usage estimate.
	Pricing llm.Pricing
	// Logger receives per-call logs. Nil disables logging.
	Logger *zap.Logger
}

// Answer is the outcome of one generation call.
type Answer struct {
	// Raw is the full service output including the reasoning trace.
	Raw string
	// Lines are the cleaned assignment lines inside the unit's scope.
	Lines []string
	// Dropped are well-formed assignments outside the unit's scope.
	Dropped []string
	// Usage is the token and cost estimate for the call.
	Usage llm.Usage
}

// Generator answers batches and single questions.
type Generator struct {
	llm          llm.Completer
	organization string
	pricing      llm.Pricing
	logger       *zap.Logger
}

// New creates a Generator.
func New(c llm.Completer, cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		llm:          c,
		organization: cfg.Organization,
		pricing:      cfg.Pricing,
		logger:       logger,
	}
}

// AnswerBatch answers the rows of batch. rowText holds only those rows.
func (g *Generator) AnswerBatch(ctx context.Context, s *models.Structure, batch models.Batch, rowText string, evidence []models.EvidenceChunk) (*Answer, error) {
	structureJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}
	req := llm.Request{
		System: BatchSystemPrompt(g.organization),
		Prompt: BatchPrompt(string(structureJSON), rowText, retrieval.JoinEvidence(evidence)),
	}
	return g.answer(ctx, req, BatchScope(s, batch.Rows), zap.Ints("rows", batch.Rows))
}

// AnswerQuestion answers one question. tableText is the row-wise text of the
// whole sheet.
func (g *Generator) AnswerQuestion(ctx context.Context, item models.QuestionItem, tableText string, evidence []models.EvidenceChunk) (*Answer, error) {
	req := llm.Request{
		System: QuestionSystemPrompt(g.organization),
		Prompt: QuestionPrompt(item, tableText, retrieval.JoinEvidence(evidence)),
	}
	return g.answer(ctx, req, CellScope(item.CellLocation), zap.String("cell", item.CellLocation))
}

func (g *Generator) answer(ctx context.Context, req llm.Request, scope Scope, unit zap.Field) (*Answer, error) {
	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	g.logger.Debug("reasoning trace", unit, zap.String("raw", resp.Text))

	kept, dropped := scope.Filter(cleaner.Lines(resp.Text))
	for _, line := range dropped {
		g.logger.Warn("dropping assignment outside scope", unit, zap.String("line", line))
	}

	return &Answer{
		Raw:     resp.Text,
		Lines:   kept,
		Dropped: dropped,
		Usage:   llm.EstimateUsage(req, resp, g.pricing),
	}, nil
}
