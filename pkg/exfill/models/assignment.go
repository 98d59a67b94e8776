package models

import "fmt"

// Assignment is one parsed `<cell> = "<value>"` line.
type Assignment struct {
	// Cell is the canonical cell coordinate (e.g. "D7").
	Cell string `json:"cell"`
	// Value is the proposed value. Empty means considered but left blank.
	Value string `json:"value"`
}

// String renders the assignment in the line protocol.
func (a Assignment) String() string {
	return fmt.Sprintf(`%s = "%s"`, a.Cell, a.Value)
}
