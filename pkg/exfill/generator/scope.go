package generator

import (
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
)

// Scope is the set of cells a unit of work may propose values for.
type Scope struct {
	cells map[string]bool
	rows  map[int]bool
	cols  map[string]bool
}

// BatchScope allows every fillable column of the given rows.
func BatchScope(s *models.Structure, rows []int) Scope {
	scope := Scope{rows: make(map[int]bool), cols: make(map[string]bool)}
	for _, r := range rows {
		scope.rows[r] = true
	}
	for _, c := range s.FillableColumns() {
		scope.cols[c] = true
	}
	return scope
}

// CellScope allows a single cell.
func CellScope(cell string) Scope {
	scope := Scope{cells: make(map[string]bool)}
	if canonical, err := parser.NormalizeCell(cell); err == nil {
		scope.cells[canonical] = true
	}
	return scope
}

// Allows reports whether cell lies in the scope.
func (s Scope) Allows(cell string) bool {
	if s.cells != nil {
		canonical, err := parser.NormalizeCell(cell)
		return err == nil && s.cells[canonical]
	}
	col, row, err := parser.SplitCell(cell)
	return err == nil && s.rows[row] && s.cols[col]
}

// Filter splits lines into those to keep and well-formed assignments outside
// the scope. Malformed lines are kept.
func (s Scope) Filter(lines []string) (kept, dropped []string) {
	for _, line := range lines {
		a, err := parser.ParseAssignment(line)
		if err != nil || s.Allows(a.Cell) {
			kept = append(kept, line)
			continue
		}
		dropped = append(dropped, line)
	}
	return kept, dropped
}
