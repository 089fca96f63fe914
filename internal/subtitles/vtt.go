package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// wordTiming places a single spoken word on the narration timeline.
type wordTiming struct {
	start float64
	end   float64
	word  string
}

// readWordTimings loads the synthesizer's VTT file. A missing or unparsable
// file returns no timings; the caller falls back to proportional cues.
func readWordTimings(path string) []wordTiming {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return parseVTT(string(data))
}

// parseVTT extracts word timings from WebVTT content. edge-tts emits one cue
// per word boundary by default, but cues carrying several words are handled
// by spreading the cue interval evenly across them.
func parseVTT(content string) []wordTiming {
	lines := strings.Split(content, "\n")
	var timings []wordTiming
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.SplitN(line, "-->", 2)
		start, errStart := parseVTTTimestamp(parts[0])
		end, errEnd := parseVTTTimestamp(parts[1])
		if errStart != nil || errEnd != nil || end < start {
			continue
		}

		var text []string
		for i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" {
				break
			}
			i++
			text = append(text, next)
		}
		words := strings.Fields(strings.Join(text, " "))
		if len(words) == 0 {
			continue
		}

		step := (end - start) / float64(len(words))
		for index, word := range words {
			timings = append(timings, wordTiming{
				start: start + step*float64(index),
				end:   start + step*float64(index+1),
				word:  word,
			})
		}
	}
	return timings
}

// parseVTTTimestamp reads "HH:MM:SS.mmm" or "MM:SS.mmm".
func parseVTTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	parts := strings.Split(value, ":")
	var (
		hours, minutes int
		err            error
	)
	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		parts = parts[1:]
	case 2:
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600)+float64(minutes*60)+seconds, nil
}
