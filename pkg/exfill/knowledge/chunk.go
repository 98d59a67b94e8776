package knowledge

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var blankLines = regexp.MustCompile(`\n[ \t\r]*\n`)

// Chunk splits text into paragraphs separated by blank lines. Text is NFKC
// normalised, each chunk is trimmed and empty chunks are dropped.
func Chunk(text string) []string {
	text = norm.NFKC.String(strings.ReplaceAll(text, "\r\n", "\n"))

	var chunks []string
	for _, part := range blankLines.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}
