// Package parser provides row-wise text and Excel parsing utilities.
package parser

import (
	"strconv"
	"strings"
)

// RowBlocks maps row numbers to the raw cell-assignment lines that follow each
// `Row <N>` header in row-wise extraction text.
type RowBlocks struct {
	order []int
	lines map[int][]string
}

// ParseRowWise parses row-wise extraction text.
// Lines before the first `Row <N>` header are ignored. A repeated header
// restarts that row's line list. Empty rows stay addressable.
func ParseRowWise(text string) *RowBlocks {
	blocks := &RowBlocks{lines: make(map[int][]string)}
	current := 0

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if row, ok := parseRowHeader(line); ok {
			if _, seen := blocks.lines[row]; !seen {
				blocks.order = append(blocks.order, row)
			}
			blocks.lines[row] = []string{}
			current = row
			continue
		}
		if current > 0 {
			blocks.lines[current] = append(blocks.lines[current], line)
		}
	}

	return blocks
}

// parseRowHeader recognises a `Row <N>` line with a positive row number.
func parseRowHeader(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "Row" {
		return 0, false
	}
	row, err := strconv.Atoi(fields[1])
	if err != nil || row < 1 {
		return 0, false
	}
	return row, true
}

// Rows returns the row numbers in order of first appearance.
func (b *RowBlocks) Rows() []int {
	return append([]int(nil), b.order...)
}

// Len returns the number of rows.
func (b *RowBlocks) Len() int {
	return len(b.order)
}

// Has reports whether row is present.
func (b *RowBlocks) Has(row int) bool {
	_, ok := b.lines[row]
	return ok
}

// Lines returns a copy of the lines recorded for row.
func (b *RowBlocks) Lines(row int) []string {
	return append([]string(nil), b.lines[row]...)
}

// Render reconstructs a row-wise sub-document for rows, in the given order.
// Rows that are not present are skipped.
func (b *RowBlocks) Render(rows []int) string {
	var out []string
	for _, row := range rows {
		lines, ok := b.lines[row]
		if !ok {
			continue
		}
		out = append(out, "Row "+strconv.Itoa(row))
		out = append(out, lines...)
	}
	return strings.Join(out, "\n")
}

// GetRows parses text and renders only the requested rows.
func GetRows(text string, rows []int) string {
	return ParseRowWise(text).Render(rows)
}
