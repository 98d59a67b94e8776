// Package output renders pipeline results for operators: JSON documents and
// the reasoning trace of every unit.
package output

import "encoding/json"

// ToJSON serializes v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
