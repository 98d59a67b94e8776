package exfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ukaji3/exfill-go/pkg/exfill/generator"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
	"github.com/ukaji3/exfill-go/pkg/exfill/structure"
	"github.com/ukaji3/exfill-go/pkg/exfill/writeback"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UnitResult is the outcome of one batch or question.
type UnitResult struct {
	// Index is the position of the unit in the plan.
	Index int `json:"index"`
	// ID names the unit, "batch-<id>" or the answer cell.
	ID string `json:"id"`
	// Rows are the batch rows. Empty for question units.
	Rows []int `json:"rows,omitempty"`
	// Cell is the answer cell of a question unit.
	Cell string `json:"cell,omitempty"`
	// Query is the retrieval query.
	Query string `json:"query"`
	// Evidence is the retrieved context.
	Evidence []models.EvidenceChunk `json:"evidence,omitempty"`
	// Raw is the full generation output including the reasoning trace.
	Raw string `json:"raw,omitempty"`
	// Lines are the cleaned, in-scope assignment lines.
	Lines []string `json:"lines,omitempty"`
	// Dropped are assignments outside the unit's scope.
	Dropped []string `json:"dropped,omitempty"`
	// Usage is the generation cost estimate.
	Usage llm.Usage `json:"usage"`
	// Err is set when the unit failed. A failed unit contributes no lines.
	Err error `json:"-"`
}

// Result is the outcome of a pipeline run over one sheet.
type Result struct {
	// RunID identifies the run in logs.
	RunID string `json:"run_id"`
	// Strategy is the strategy that ran.
	Strategy Strategy `json:"strategy"`
	// Sheet is the worksheet that was answered.
	Sheet string `json:"sheet"`
	// Structure is the sheet layout (batch strategy).
	Structure *models.Structure `json:"structure,omitempty"`
	// Questions are the identified questions (question strategy).
	Questions []models.QuestionItem `json:"questions,omitempty"`
	// Units holds one result per unit, in plan order.
	Units []UnitResult `json:"units"`
	// Assignments is the combined assignment list in unit order.
	Assignments []string `json:"assignments"`
	// Usage sums the cost estimate of every call.
	Usage llm.Usage `json:"usage"`
	// Write summarises the merge pass.
	Write writeback.Stats `json:"write"`
	// OutputPath is the saved workbook, when one was written.
	OutputPath string `json:"output_path,omitempty"`
}

// Failed returns the units that failed.
func (r *Result) Failed() []UnitResult {
	var failed []UnitResult
	for _, u := range r.Units {
		if u.Err != nil {
			failed = append(failed, u)
		}
	}
	return failed
}

// unit is one planned batch or question.
type unit struct {
	id    string
	rows  []int
	query string
	text  string

	structure *models.Structure
	batch     models.Batch
	item      *models.QuestionItem
}

// Pipeline answers questionnaire sheets.
type Pipeline struct {
	identifier *structure.Identifier
	retriever  *retrieval.Retriever
	generator  *generator.Generator
	merger     *writeback.Merger
	opts       Options
	logger     *zap.Logger
}

// New creates a Pipeline over a generation service and an evidence searcher.
func New(c llm.Completer, s retrieval.Searcher, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		identifier: structure.NewIdentifier(c, opts.Pricing, logger.Named("structure")),
		retriever:  retrieval.NewRetriever(s, opts.TopK, logger.Named("retrieval")),
		generator: generator.New(c, generator.Config{
			Organization: opts.Organization,
			Pricing:      opts.Pricing,
			Logger:       logger.Named("generator"),
		}),
		merger: writeback.NewMerger(logger.Named("writeback")),
		opts:   opts,
		logger: logger,
	}
}

// Options returns the pipeline options.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Answer identifies the structure of the row-wise text of sheet and answers
// every unit. Nothing is written. A structure that cannot be parsed aborts
// the run; a failing unit is recorded in its UnitResult.
func (p *Pipeline) Answer(ctx context.Context, text, sheet string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoUnits
	}

	result := &Result{
		RunID:    uuid.NewString(),
		Strategy: p.opts.EffectiveStrategy(),
		Sheet:    sheet,
	}
	logger := p.logger.With(zap.String("run_id", result.RunID))

	var (
		units []unit
		err   error
	)
	switch result.Strategy {
	case StrategyBatch:
		units, err = p.planBatches(ctx, result, text, logger)
	case StrategyQuestion:
		units, err = p.planQuestions(ctx, result, text, sheet, logger)
	default:
		return nil, fmt.Errorf("invalid strategy: %s", result.Strategy)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("answering",
		zap.String("strategy", string(result.Strategy)),
		zap.Int("units", len(units)),
		zap.Int("workers", p.opts.EffectiveWorkers()))

	result.Units = p.runUnits(ctx, units, logger)

	for _, u := range result.Units {
		result.Usage = result.Usage.Add(u.Usage)
		if u.Err != nil {
			logger.Error("unit failed", zap.String("unit", u.ID), zap.Error(u.Err))
			continue
		}
		result.Assignments = append(result.Assignments, u.Lines...)
	}

	logger.Info("answered",
		zap.Int("lines", len(result.Assignments)),
		zap.Int("failed", len(result.Failed())),
		zap.Float64("cost_usd", result.Usage.CostUSD))
	return result, nil
}

// Run answers the sheet and merges the combined assignments into doc in a
// single pass after every unit has finished.
func (p *Pipeline) Run(ctx context.Context, doc writeback.Document, text, sheet string) (*Result, error) {
	result, err := p.Answer(ctx, text, sheet)
	if err != nil {
		return nil, err
	}

	stats, err := p.merger.Merge(doc, result.Assignments)
	result.Write = stats
	if err != nil {
		return result, fmt.Errorf("write back: %w", err)
	}
	return result, nil
}

func (p *Pipeline) planBatches(ctx context.Context, result *Result, text string, logger *zap.Logger) ([]unit, error) {
	s, usage, err := p.identifier.Identify(ctx, text)
	result.Usage = result.Usage.Add(usage)
	if err != nil {
		return nil, err
	}
	result.Structure = s

	questionCol, ok := s.Column(models.RoleQuestion)
	if !ok {
		logger.Warn("structure has no Question column, nothing to answer")
		return nil, nil
	}

	var units []unit
	for _, b := range s.Batches {
		id := fmt.Sprintf("batch-%d", b.ID)
		rowText := parser.GetRows(text, b.Rows)
		questions := parser.ExtractQuestions(rowText, questionCol)
		if len(questions) == 0 {
			logger.Debug("skipping batch without questions", zap.String("unit", id), zap.Ints("rows", b.Rows))
			continue
		}
		units = append(units, unit{
			id:    id,
			rows:  b.Rows,
			query: strings.Join(questions, "\n"),
			text:  rowText,

			structure: s,
			batch:     b,
		})
	}
	return units, nil
}

func (p *Pipeline) planQuestions(ctx context.Context, result *Result, text, sheet string, logger *zap.Logger) ([]unit, error) {
	items, usage, err := p.identifier.IdentifyQuestions(ctx, text, sheet)
	result.Usage = result.Usage.Add(usage)
	if err != nil {
		return nil, err
	}
	result.Questions = items

	units := make([]unit, 0, len(items))
	for i := range items {
		item := items[i]
		if strings.TrimSpace(item.QuestionText) == "" {
			logger.Debug("skipping question without text", zap.String("cell", item.CellLocation))
			continue
		}
		units = append(units, unit{
			id:    item.CellLocation,
			query: item.QuestionText,
			item:  &item,
			text:  text,
		})
	}
	return units, nil
}

// runUnits answers units on a bounded pool. Each unit reports through the
// results channel and the pool itself never fails; results are slotted back
// into plan order.
func (p *Pipeline) runUnits(ctx context.Context, units []unit, logger *zap.Logger) []UnitResult {
	results := make(chan UnitResult, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.EffectiveWorkers())
	for i, u := range units {
		g.Go(func() error {
			results <- p.runUnit(gctx, i, u, logger)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	slots := make([]UnitResult, len(units))
	for r := range results {
		slots[r.Index] = r
	}
	return slots
}

func (p *Pipeline) runUnit(ctx context.Context, index int, u unit, logger *zap.Logger) UnitResult {
	res := UnitResult{Index: index, ID: u.id, Rows: u.rows, Query: u.query}
	if u.item != nil {
		res.Cell = u.item.CellLocation
	}
	logger = logger.With(zap.String("unit", u.id))

	if err := ctx.Err(); err != nil {
		res.Err = NewUnitError(u.id, StageRetrieve, err)
		return res
	}

	evidence, err := p.retriever.Retrieve(ctx, u.query)
	if err != nil {
		res.Err = NewUnitError(u.id, StageRetrieve, err)
		return res
	}
	res.Evidence = evidence
	logger.Debug("context", zap.Int("evidence", len(evidence)), zap.Float64s("scores", retrieval.Scores(evidence)))

	var answer *generator.Answer
	if u.item != nil {
		answer, err = p.generator.AnswerQuestion(ctx, *u.item, u.text, evidence)
	} else {
		answer, err = p.generator.AnswerBatch(ctx, u.structure, u.batch, u.text, evidence)
	}
	if err != nil {
		res.Err = NewUnitError(u.id, StageGenerate, err)
		return res
	}

	res.Raw = answer.Raw
	res.Lines = answer.Lines
	res.Dropped = answer.Dropped
	res.Usage = answer.Usage
	logger.Debug("answered", zap.Int("lines", len(answer.Lines)), zap.Int("dropped", len(answer.Dropped)))
	return res
}
