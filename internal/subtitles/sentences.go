package subtitles

import "strings"

// sentenceBreaks are the characters that end a cue. Commas are included so
// long compound sentences become short readable cues, matching the pacing of
// the narration.
const sentenceBreaks = ".!?;:,…。！？；：，、"

// splitSentences cuts script text into cue-sized fragments. Break characters
// are dropped; empty fragments between consecutive breaks are skipped.
func splitSentences(text string) []string {
	var (
		sentences []string
		builder   strings.Builder
	)
	flush := func() {
		if fragment := strings.TrimSpace(builder.String()); fragment != "" {
			sentences = append(sentences, fragment)
		}
		builder.Reset()
	}
	for _, r := range text {
		if strings.ContainsRune(sentenceBreaks, r) {
			flush()
			continue
		}
		builder.WriteRune(r)
	}
	flush()
	return sentences
}

// sentenceWords counts the whitespace-separated words in a fragment.
func sentenceWords(fragment string) int {
	return len(strings.Fields(fragment))
}
