package subtitles

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"reelforge/internal/fileutil"
)

// Cue is a single subtitle entry on the narration timeline.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// renderSRT serializes cues in SubRip form: index, comma-millisecond time
// range, text, blank separator.
func renderSRT(cues []Cue) string {
	var builder strings.Builder
	for index, cue := range cues {
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n",
			index+1,
			formatSRTTimestamp(cue.Start),
			formatSRTTimestamp(cue.End),
			strings.TrimSpace(cue.Text))
	}
	return builder.String()
}

func writeSRT(path string, cues []Cue) error {
	return fileutil.WriteFileAtomic(path, []byte(renderSRT(cues)), 0o644)
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(math.Round(seconds * 1000))
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma before milliseconds; tolerate the period variant.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

func countSRTCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count, nil
}

func subtitleBounds(path string) (float64, float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read srt: %w", err)
	}
	first := math.Inf(1)
	var last float64
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		if start, err := parseSRTTimestamp(parts[0]); err == nil {
			if start < first {
				first = start
			}
			found = true
		}
		if end, err := parseSRTTimestamp(parts[1]); err == nil {
			if end > last {
				last = end
			}
		}
	}
	if !found {
		return 0, last, nil
	}
	return first, last, nil
}

// ValidateSRT checks a subtitle file for structural problems. The returned
// slice lists the issues found; empty means the file is usable. When
// audioSeconds is positive the final cue must land near the end of the
// narration.
func ValidateSRT(path string, audioSeconds float64) []string {
	var issues []string

	cues, err := countSRTCues(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("read_error: %v", err))
		return issues
	}
	if cues == 0 {
		issues = append(issues, "empty_subtitle_file")
		return issues
	}

	first, last, err := subtitleBounds(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("timestamp_parse_error: %v", err))
		return issues
	}
	if first == 0 && last == 0 {
		issues = append(issues, "no_valid_timestamps")
		return issues
	}

	if audioSeconds > 0 {
		if last > audioSeconds+subtitleDurationSlack {
			issues = append(issues, fmt.Sprintf("cues_exceed_audio: last=%.1fs audio=%.1fs", last, audioSeconds))
		}
		if last < audioSeconds*subtitleMinCoverage {
			issues = append(issues, fmt.Sprintf("cues_end_early: last=%.1fs audio=%.1fs", last, audioSeconds))
		}
	}
	return issues
}

const (
	// subtitleDurationSlack tolerates synthesizer timing drift past the
	// probed audio length.
	subtitleDurationSlack = 2.0
	// subtitleMinCoverage flags subtitle tracks that stop well short of the
	// narration, which points at truncated timing data.
	subtitleMinCoverage = 0.5
)
