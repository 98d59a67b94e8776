package parser

import (
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/xuri/excelize/v2"
)

// ExtractMergedRanges returns the merged cell regions of a sheet.
func ExtractMergedRanges(f *excelize.File, sheetName string) ([]models.MergedRange, error) {
	mergeCells, err := f.GetMergeCells(sheetName)
	if err != nil {
		return nil, err
	}

	ranges := make([]models.MergedRange, 0, len(mergeCells))
	for _, mc := range mergeCells {
		if r := ParseRangeRef(mc.GetStartAxis() + ":" + mc.GetEndAxis()); r != nil {
			ranges = append(ranges, *r)
		}
	}
	return ranges, nil
}

// ParseRangeRef parses a range string like $A$1:$D$10 to MergedRange.
// A single cell reference yields a one-cell range. Corners are normalised so
// that R1 <= R2 and C1 <= C2.
func ParseRangeRef(rangeStr string) *models.MergedRange {
	// Remove $ signs
	rangeStr = strings.ReplaceAll(strings.TrimSpace(rangeStr), "$", "")

	parts := strings.Split(rangeStr, ":")
	if len(parts) == 1 {
		parts = append(parts, parts[0])
	}
	if len(parts) != 2 {
		return nil
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return nil
	}

	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return nil
	}

	return &models.MergedRange{
		R1: min(startRow, endRow),
		C1: min(startCol, endCol),
		R2: max(startRow, endRow),
		C2: max(startCol, endCol),
	}
}
