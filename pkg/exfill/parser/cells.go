package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractRowWise renders a sheet as row-wise extraction text.
// Every row with at least one non-empty cell becomes a `Row <N>` header
// followed by one `<Col><N> = "<text>"` line per non-empty cell.
func ExtractRowWise(f *excelize.File, sheetName string) (string, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return "", err
	}

	var out []string
	for rowIdx, row := range rows {
		rowNum := rowIdx + 1 // 1-based row index
		var lines []string

		for colIdx, cellValue := range row {
			text := flattenCellText(cellValue)
			if text == "" {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
			if err != nil {
				return "", err
			}
			lines = append(lines, fmt.Sprintf(`%s = "%s"`, cellName, text))
		}

		if len(lines) > 0 {
			out = append(out, fmt.Sprintf("Row %d", rowNum))
			out = append(out, lines...)
		}
	}

	return strings.Join(out, "\n"), nil
}

// flattenCellText collapses line breaks and surrounding whitespace so a cell
// always fits on one assignment line.
func flattenCellText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
