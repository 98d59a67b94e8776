package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukaji3/exfill-go/pkg/exfill"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
)

const rule = "================================================================"

// WriteTrace writes one section per unit of result: its rows or cell, the
// retrieval query, evidence scores, the raw response with its reasoning
// trace and the lines kept for write-back.
func WriteTrace(w io.Writer, result *exfill.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s (%s) sheet %s\n", result.RunID, result.Strategy, result.Sheet)
	fmt.Fprintf(&b, "units: %d  lines: %d  calls: %d  est. cost: $%.6f\n",
		len(result.Units), len(result.Assignments), result.Usage.Calls, result.Usage.CostUSD)

	for _, u := range result.Units {
		b.WriteString("\n" + rule + "\n")
		if u.Cell != "" {
			fmt.Fprintf(&b, "%s (cell %s)\n", u.ID, u.Cell)
		} else {
			fmt.Fprintf(&b, "%s (rows %s)\n", u.ID, joinInts(u.Rows))
		}
		b.WriteString(rule + "\n")
		fmt.Fprintf(&b, "query:\n%s\n", u.Query)
		fmt.Fprintf(&b, "evidence: %d chunk(s), scores %v\n", len(u.Evidence), retrieval.Scores(u.Evidence))

		if u.Err != nil {
			fmt.Fprintf(&b, "error: %v\n", u.Err)
			continue
		}
		fmt.Fprintf(&b, "\nresponse:\n%s\n", strings.TrimSpace(u.Raw))
		fmt.Fprintf(&b, "\nlines:\n%s\n", strings.Join(u.Lines, "\n"))
		if len(u.Dropped) > 0 {
			fmt.Fprintf(&b, "\ndropped:\n%s\n", strings.Join(u.Dropped, "\n"))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTraceFile writes the trace of result to path, creating parent
// directories. A nil result or empty path writes nothing.
func WriteTraceFile(path string, result *exfill.Result) error {
	if path == "" || result == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTrace(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
