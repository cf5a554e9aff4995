package pipeline

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize canonicalizes raw extracted text for pattern matching: inner
// whitespace runs collapse to a single space, lines are trimmed, empty
// lines are dropped, everything is lower-cased and lines are rejoined with
// newlines. Idempotent.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = whitespaceRun.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.ToLower(strings.Join(cleaned, "\n"))
}
