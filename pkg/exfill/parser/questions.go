package parser

import (
	"regexp"
	"strings"
)

// ExtractQuestions returns the quoted text of every `<column><N> = "<text>"`
// line for the given column, in line order. It returns nil when nothing matches.
func ExtractQuestions(text, column string) []string {
	column = strings.TrimSpace(column)
	if column == "" {
		return nil
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(column) + `\d+\s*=\s*"(.*)"$`)

	var questions []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if m := pattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			questions = append(questions, m[1])
		}
	}
	return questions
}
