package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/xuri/excelize/v2"
)

// ErrMalformedAssignment indicates a line that is not `<cell> = "<value>"`.
var ErrMalformedAssignment = errors.New("malformed assignment line")

// ParseAssignment parses one `<cell> = "<value>"` line.
// The cell is canonicalised (upper case, no `$`); one pair of surrounding
// quotes is removed from the value.
func ParseAssignment(line string) (models.Assignment, error) {
	ref, value, ok := strings.Cut(line, "=")
	if !ok {
		return models.Assignment{}, fmt.Errorf("%w: missing '=' in %q", ErrMalformedAssignment, line)
	}
	cell, err := NormalizeCell(ref)
	if err != nil {
		return models.Assignment{}, fmt.Errorf("%w: %v", ErrMalformedAssignment, err)
	}
	return models.Assignment{Cell: cell, Value: unquote(strings.TrimSpace(value))}, nil
}

// NormalizeCell canonicalises a cell reference such as " d7" or "$D$7" to "D7".
func NormalizeCell(ref string) (string, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", err
	}
	return excelize.CoordinatesToCellName(col, row)
}

// SplitCell returns the column letters and row number of a cell reference.
func SplitCell(ref string) (string, int, error) {
	cell, err := NormalizeCell(ref)
	if err != nil {
		return "", 0, err
	}
	return excelize.SplitCellName(cell)
}

// unquote strips one pair of surrounding double quotes, or stray quotes at
// either end when they are unbalanced.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"`)
}
