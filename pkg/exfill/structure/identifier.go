// Package structure asks the generation service to describe the layout of a
// questionnaire sheet: the header row, the role of each column and how the
// question rows group into batches.
package structure

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/cleaner"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"go.uber.org/zap"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\\n?")
	trailingFence = regexp.MustCompile("\\n?```$")
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// Identifier derives sheet structure through a generation service.
type Identifier struct {
	llm     llm.Completer
	pricing llm.Pricing
	logger  *zap.Logger
}

// NewIdentifier creates an Identifier that prices calls with pricing.
// A nil logger disables logging.
func NewIdentifier(c llm.Completer, pricing llm.Pricing, logger *zap.Logger) *Identifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Identifier{llm: c, pricing: pricing, logger: logger}
}

// Identify returns the structure descriptor for the row-wise text of a sheet.
// Output that is not a JSON object after fence and reasoning removal yields a
// *StructureParseError. Batches without rows are dropped.
func (i *Identifier) Identify(ctx context.Context, text string) (*models.Structure, llm.Usage, error) {
	req := llm.Request{
		System: structureSystemPrompt,
		Prompt: "Here is the extracted sheet:\n" + text,
	}
	resp, err := i.llm.Complete(ctx, req)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("identify structure: %w", err)
	}
	usage := llm.EstimateUsage(req, resp, i.pricing)

	structure, err := DecodeStructure(resp.Text)
	if err != nil {
		i.logger.Error("structure output is not valid JSON", zap.Error(err))
		i.logger.Debug("raw structure output", zap.String("raw", resp.Text))
		return nil, usage, err
	}

	kept := structure.Batches[:0]
	for _, b := range structure.Batches {
		if len(b.Rows) == 0 {
			i.logger.Warn("dropping empty batch", zap.Int("batch", b.ID))
			continue
		}
		kept = append(kept, b)
	}
	structure.Batches = kept

	i.logger.Info("structure identified",
		zap.Int("header_row", structure.HeaderRow),
		zap.Any("columns", structure.Columns),
		zap.Int("batches", len(structure.Batches)))
	return structure, usage, nil
}

// DecodeStructure strips code fences and reasoning blocks from raw and decodes
// the remaining JSON object.
func DecodeStructure(raw string) (*models.Structure, error) {
	cleaned := stripFences(raw)
	cleaned = strings.TrimSpace(cleaner.RemoveBlocks(cleaned, "reasoning", "thinking"))
	cleaned = stripFences(cleaned)

	if !strings.HasPrefix(cleaned, "{") {
		return nil, NewStructureParseError(raw, fmt.Errorf("output does not start with a JSON object"))
	}
	var s models.Structure
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return nil, NewStructureParseError(raw, err)
	}
	return &s, nil
}

func stripFences(s string) string {
	s = leadingFence.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(trailingFence.ReplaceAllString(s, ""))
}

type questionList struct {
	Questions []models.QuestionItem `json:"questions"`
}

// IdentifyQuestions returns one item per question found in the sheet, each
// with the cell its answer belongs to. Items whose cell location is not a
// valid coordinate are dropped; the rest are canonicalised.
func (i *Identifier) IdentifyQuestions(ctx context.Context, text, sheet string) ([]models.QuestionItem, llm.Usage, error) {
	req := llm.Request{
		System: questionsSystemPrompt,
		Prompt: fmt.Sprintf("SHEET: %s\n\nTABLE TEXT:\n%s\n\nExtract every question with its answer cell and a complete response instruction.", sheet, text),
	}
	resp, err := i.llm.Complete(ctx, req)
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("identify questions: %w", err)
	}
	usage := llm.EstimateUsage(req, resp, i.pricing)

	items, err := DecodeQuestions(resp.Text)
	if err != nil {
		i.logger.Error("question output is not valid JSON", zap.Error(err))
		i.logger.Debug("raw question output", zap.String("raw", resp.Text))
		return nil, usage, err
	}

	kept := items[:0]
	for _, item := range items {
		cell, err := parser.NormalizeCell(item.CellLocation)
		if err != nil {
			i.logger.Warn("dropping question with invalid cell",
				zap.String("cell", item.CellLocation), zap.Error(err))
			continue
		}
		item.CellLocation = cell
		kept = append(kept, item)
	}

	i.logger.Info("questions identified", zap.Int("questions", len(kept)))
	return kept, usage, nil
}

// DecodeQuestions extracts the first complete JSON object from raw and decodes
// its question list.
func DecodeQuestions(raw string) ([]models.QuestionItem, error) {
	cleaned := cleaner.RemoveBlocks(raw, "reasoning", "thinking")
	start := strings.Index(cleaned, "{")
	if start < 0 {
		return nil, NewStructureParseError(raw, fmt.Errorf("no JSON object in output"))
	}
	obj := firstObject(controlChars.ReplaceAllString(cleaned[start:], ""))

	var list questionList
	if err := json.Unmarshal([]byte(obj), &list); err != nil {
		return nil, NewStructureParseError(raw, err)
	}
	return list.Questions, nil
}

// firstObject returns the prefix of s up to the brace closing its first
// character, or s unchanged when the braces never balance. Braces inside JSON
// strings are ignored.
func firstObject(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return s
}
