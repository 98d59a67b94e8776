package writeback

import (
	"fmt"

	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"go.uber.org/zap"
)

// Document is a write target exposing per-cell access and its merged ranges.
type Document interface {
	GetCellValue(cell string) (string, error)
	SetCellValue(cell, value string) error
	MergedRanges() ([]models.MergedRange, error)
}

// Stats summarises one merge pass.
type Stats struct {
	// Written lists the canonical cells that received a value, in input order.
	Written []string `json:"written"`
	// SkippedFilled counts cells left alone because they already held a value.
	SkippedFilled int `json:"skipped_filled"`
	// SkippedMalformed counts lines that were not valid assignments.
	SkippedMalformed int `json:"skipped_malformed"`
	// SkippedEmpty counts assignments with an empty value.
	SkippedEmpty int `json:"skipped_empty"`
	// Superseded counts proposals replaced by a later one for the same cell.
	Superseded int `json:"superseded"`
}

// Merger applies assignment lines to a Document.
type Merger struct {
	logger *zap.Logger
}

// NewMerger creates a Merger. A nil logger disables logging.
func NewMerger(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{logger: logger}
}

// Merge applies lines to doc in a single pass.
//
// Each line is resolved through the document's merged ranges to a canonical
// cell. Within the pass the last non-empty value proposed for a cell wins. A
// cell is written only when it is blank in the document as it was before the
// pass. Malformed lines and empty values are counted and skipped.
func (m *Merger) Merge(doc Document, lines []string) (Stats, error) {
	var stats Stats

	ranges, err := doc.MergedRanges()
	if err != nil {
		return stats, fmt.Errorf("read merged ranges: %w", err)
	}
	regions := BuildMergedRegionMap(ranges)

	var order []string
	proposals := make(map[string]string)
	for _, line := range lines {
		a, err := parser.ParseAssignment(line)
		if err != nil {
			stats.SkippedMalformed++
			m.logger.Debug("skipping malformed line", zap.String("line", line), zap.Error(err))
			continue
		}
		if a.Value == "" {
			stats.SkippedEmpty++
			continue
		}
		cell := regions.Resolve(a.Cell)
		if _, seen := proposals[cell]; seen {
			stats.Superseded++
		} else {
			order = append(order, cell)
		}
		proposals[cell] = a.Value
	}

	for _, cell := range order {
		current, err := doc.GetCellValue(cell)
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", cell, err)
		}
		if current != "" {
			stats.SkippedFilled++
			m.logger.Debug("keeping existing value", zap.String("cell", cell))
			continue
		}
		if err := doc.SetCellValue(cell, proposals[cell]); err != nil {
			return stats, fmt.Errorf("write %s: %w", cell, err)
		}
		stats.Written = append(stats.Written, cell)
	}

	m.logger.Info("merge complete",
		zap.Int("written", len(stats.Written)),
		zap.Int("skipped_filled", stats.SkippedFilled),
		zap.Int("skipped_malformed", stats.SkippedMalformed),
		zap.Int("skipped_empty", stats.SkippedEmpty),
		zap.Int("superseded", stats.Superseded))
	return stats, nil
}

// Merge applies lines to doc with a Merger that does not log.
func Merge(doc Document, lines []string) (Stats, error) {
	return NewMerger(nil).Merge(doc, lines)
}
