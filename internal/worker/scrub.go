package worker

import (
	"regexp"
	"strings"
)

var (
	csiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)
	oscEscape = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	ctrlChars = regexp.MustCompile(`[\x00-\x08\x0B-\x0C\x0E-\x1F\x7F]`)
)

// ScrubLine strips terminal control sequences from captured output.
// Carriage returns and backspaces corrupt text when replayed outside a
// terminal, and ANSI color or cursor sequences are noise in stored
// results. Newlines and tabs survive.
func ScrubLine(text string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\b", "")
	text = csiEscape.ReplaceAllString(text, "")
	text = oscEscape.ReplaceAllString(text, "")
	return ctrlChars.ReplaceAllString(text, "")
}
