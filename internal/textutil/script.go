package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	// Generation models decorate scripts with markdown emphasis, stage
	// directions in brackets, and parenthetical notes. None of that should
	// reach the narrator.
	bracketDirectionPattern = regexp.MustCompile(`\[[^\]]*\]`)
	parentheticalPattern    = regexp.MustCompile(`\([^)]*\)`)
	spaceRunPattern         = regexp.MustCompile(`[ \t]{2,}`)
	blankRunPattern         = regexp.MustCompile(`\n{2,}`)
)

// CleanScript normalizes raw generated script text into speakable prose:
// markdown markers, bracketed stage directions, and parentheticals are
// removed, runs of whitespace are collapsed, and the result is trimmed.
func CleanScript(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "#", "")
	text = bracketDirectionPattern.ReplaceAllString(text, "")
	text = parentheticalPattern.ReplaceAllString(text, "")
	text = spaceRunPattern.ReplaceAllString(text, " ")
	text = blankRunPattern.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ShortHash returns a short hex digest of text, used to tag cache entries
// and queue rows with the content they were produced from.
func ShortHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}
