// Package writeback merges generated cell assignments into a document
// without overwriting cells that already hold a value.
package writeback

import (
	"github.com/ukaji3/exfill-go/pkg/exfill/models"
	"github.com/ukaji3/exfill-go/pkg/exfill/parser"
	"github.com/xuri/excelize/v2"
)

// MergedRegionMap maps every cell inside a merged range to the range's
// top-left cell. It is not modified after construction.
type MergedRegionMap struct {
	canonical map[string]string
}

// BuildMergedRegionMap indexes ranges. Single-cell ranges add no entries.
func BuildMergedRegionMap(ranges []models.MergedRange) MergedRegionMap {
	m := MergedRegionMap{canonical: make(map[string]string)}
	for _, r := range ranges {
		topLeft, err := excelize.CoordinatesToCellName(r.C1, r.R1)
		if err != nil {
			continue
		}
		for row := r.R1; row <= r.R2; row++ {
			for col := r.C1; col <= r.C2; col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil || cell == topLeft {
					continue
				}
				m.canonical[cell] = topLeft
			}
		}
	}
	return m
}

// Resolve returns the canonical coordinate of cell. Cells outside every
// merged range resolve to their own canonical form.
func (m MergedRegionMap) Resolve(cell string) string {
	if c, err := parser.NormalizeCell(cell); err == nil {
		cell = c
	}
	if topLeft, ok := m.canonical[cell]; ok {
		return topLeft
	}
	return cell
}

// Len returns the number of non-canonical cells covered by merged ranges.
func (m MergedRegionMap) Len() int {
	return len(m.canonical)
}
