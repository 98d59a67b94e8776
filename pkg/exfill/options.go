// Package exfill fills questionnaire spreadsheets with answers grounded in
// retrieved evidence, writing only into cells that are still blank.
package exfill

import (
	"fmt"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
	"go.uber.org/zap"
)

// Strategy selects how questions are grouped for answering.
type Strategy string

const (
	// StrategyBatch answers a main question and its follow-ups in one call.
	StrategyBatch Strategy = "batch"
	// StrategyQuestion answers every question in its own call.
	StrategyQuestion Strategy = "question"
)

const (
	// DefaultWorkers is the number of units answered concurrently.
	DefaultWorkers = 4
	// DefaultOutputPrefix is prepended to the input file name for the output.
	DefaultOutputPrefix = "filled_"
)

// ParseStrategy parses a strategy name. The empty string selects StrategyBatch.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyBatch:
		return StrategyBatch, nil
	case StrategyQuestion:
		return StrategyQuestion, nil
	}
	return "", fmt.Errorf("invalid strategy: %s (must be batch or question)", s)
}

// Options configures a Pipeline.
type Options struct {
	// Strategy selects batch or per-question answering.
	Strategy Strategy
	// Workers bounds the number of units answered concurrently.
	// If zero, DefaultWorkers is used.
	Workers int
	// TopK bounds the evidence chunks per unit. If zero, retrieval.DefaultTopK is used.
	TopK int
	// Organization is the respondent named in answer prompts.
	Organization string
	// Sheet is the worksheet to fill. If empty, the active sheet is used.
	Sheet string
	// OutputPrefix names the output file when none is given.
	// If empty, DefaultOutputPrefix is used.
	OutputPrefix string
	// Pricing prices generation calls for the usage estimate.
	Pricing llm.Pricing
	// Logger receives pipeline logs. If nil, logging is disabled.
	Logger *zap.Logger
}

// DefaultOptions returns default pipeline options.
func DefaultOptions() Options {
	return Options{
		Strategy:     StrategyBatch,
		Workers:      DefaultWorkers,
		TopK:         retrieval.DefaultTopK,
		OutputPrefix: DefaultOutputPrefix,
		Pricing:      llm.DefaultPricing(),
	}
}

// EffectiveStrategy returns the strategy to run.
func (o Options) EffectiveStrategy() Strategy {
	if o.Strategy == "" {
		return StrategyBatch
	}
	return o.Strategy
}

// EffectiveWorkers returns the worker pool size.
func (o Options) EffectiveWorkers() int {
	if o.Workers <= 0 {
		return DefaultWorkers
	}
	return o.Workers
}

// EffectiveOutputPrefix returns the output file name prefix.
func (o Options) EffectiveOutputPrefix() string {
	if o.OutputPrefix == "" {
		return DefaultOutputPrefix
	}
	return o.OutputPrefix
}
