// Package models defines data structures exchanged by the fill pipeline.
package models

import (
	"sort"
	"strings"
)

// Column roles recognised in Structure.Columns.
const (
	RoleQuestion = "Question"
	RoleAnswer   = "Answer"
	RoleComment  = "Comment"
)

// Batch groups rows answered together in one retrieval and generation round.
type Batch struct {
	// ID is the batch identifier assigned by the structure identifier.
	ID int `json:"batch_id"`
	// Rows lists the 1-based row numbers in the batch, in answer order.
	Rows []int `json:"rows"`
}

// Structure describes the logical layout of a questionnaire sheet.
type Structure struct {
	// SheetName is the sheet name reported by the generation service.
	SheetName string `json:"sheet_name"`
	// HeaderRow is the 1-based row that holds the column headers.
	HeaderRow int `json:"header_row"`
	// Columns maps a role (Question, Answer, Comment, ...) to a column letter.
	Columns map[string]string `json:"columns"`
	// Batches partitions the data rows. Overlaps are tolerated.
	Batches []Batch `json:"batches"`
}

// Column returns the column letter for role. Role names match case-insensitively.
func (s *Structure) Column(role string) (string, bool) {
	if s == nil {
		return "", false
	}
	if col, ok := s.Columns[role]; ok && strings.TrimSpace(col) != "" {
		return strings.ToUpper(strings.TrimSpace(col)), true
	}
	for r, col := range s.Columns {
		if strings.EqualFold(r, role) && strings.TrimSpace(col) != "" {
			return strings.ToUpper(strings.TrimSpace(col)), true
		}
	}
	return "", false
}

// FillableColumns returns the sorted, de-duplicated letters of every column
// whose role is not Question.
func (s *Structure) FillableColumns() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var cols []string
	for role, col := range s.Columns {
		col = strings.ToUpper(strings.TrimSpace(col))
		if col == "" || strings.EqualFold(role, RoleQuestion) || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
