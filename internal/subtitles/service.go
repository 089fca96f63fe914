package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
)

// SubtitleFileName is the SRT file written into the task directory.
const SubtitleFileName = "subtitle.srt"

// wordsPerMinute approximates narration pace when no audio duration is
// available to scale proportional cues against.
const wordsPerMinute = 130.0

// Service writes sentence-level SRT subtitles for a task. It implements
// pipeline.SubtitleWriter.
type Service struct {
	logger *slog.Logger
}

// NewService creates the subtitle writer.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{logger: logging.NewComponentLogger(logger, "subtitles")}
}

// Write produces dir/subtitle.srt from the script. Word timings from the
// synthesizer drive cue boundaries when they cover the whole script;
// otherwise the narration duration is split across sentences by word count.
// An existing valid subtitle file is reused as-is.
func (s *Service) Write(ctx context.Context, req pipeline.SubtitleRequest) (string, error) {
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return "", services.Wrap(services.ErrValidation, "subtitle", "write", "script is empty", nil)
	}
	if strings.TrimSpace(req.Dir) == "" {
		return "", services.Wrap(services.ErrValidation, "subtitle", "write", "output directory is empty", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(req.Dir, SubtitleFileName)
	if fileutil.NonEmpty(path) {
		if issues := ValidateSRT(path, req.AudioDuration); len(issues) == 0 {
			s.logger.Info("subtitles already present",
				logging.String(logging.FieldEventType, "subtitles_reused"),
				logging.String("path", path))
			return path, nil
		}
		// Broken or mistimed leftover from an earlier run.
		_ = os.Remove(path)
	}

	sentences := splitSentences(script)
	if len(sentences) == 0 {
		return "", services.Wrap(services.ErrValidation, "subtitle", "write", "script contains no sentences", nil)
	}

	cues, source := buildCues(sentences, req)
	if err := writeSRT(path, cues); err != nil {
		return "", fmt.Errorf("write subtitle file: %w", err)
	}
	if issues := ValidateSRT(path, req.AudioDuration); len(issues) > 0 {
		s.logger.Warn("subtitle validation reported issues",
			logging.String(logging.FieldEventType, "subtitles_suspect"),
			logging.String("path", path),
			logging.String("issues", strings.Join(issues, "; ")))
	}

	s.logger.Info("subtitles written",
		logging.String(logging.FieldEventType, "subtitles_written"),
		logging.String("path", path),
		logging.Int("cues", len(cues)),
		logging.String("timing_source", source))
	return path, nil
}

// buildCues picks the timing strategy. Word timings are only trusted when
// they cover every script word; a short timing file means the synthesizer
// was interrupted and its tail would drift badly.
func buildCues(sentences []string, req pipeline.SubtitleRequest) ([]Cue, string) {
	totalWords := 0
	for _, sentence := range sentences {
		totalWords += sentenceWords(sentence)
	}
	if timings := readWordTimings(req.TimingPath); totalWords > 0 && len(timings) >= totalWords {
		return timedCues(sentences, timings), "word_timings"
	}
	return proportionalCues(sentences, totalWords, req.AudioDuration), "proportional"
}

// timedCues spans each sentence from its first word's start to its last
// word's end. Callers guarantee the timing slice covers every word.
func timedCues(sentences []string, timings []wordTiming) []Cue {
	cues := make([]Cue, 0, len(sentences))
	next := 0
	for _, sentence := range sentences {
		count := sentenceWords(sentence)
		if count == 0 {
			continue
		}
		first := timings[next]
		last := timings[next+count-1]
		cues = append(cues, Cue{Start: first.start, End: last.end, Text: sentence})
		next += count
	}
	return cues
}

// proportionalCues allocates the narration duration across sentences by
// word count. The final cue is pinned to the narration end so rounding never
// leaves a gap.
func proportionalCues(sentences []string, totalWords int, audioDuration float64) []Cue {
	if totalWords == 0 {
		return nil
	}
	if audioDuration <= 0 {
		audioDuration = float64(totalWords) * 60.0 / wordsPerMinute
	}
	cues := make([]Cue, 0, len(sentences))
	cursor := 0.0
	for _, sentence := range sentences {
		count := sentenceWords(sentence)
		if count == 0 {
			continue
		}
		span := audioDuration * float64(count) / float64(totalWords)
		cues = append(cues, Cue{Start: cursor, End: cursor + span, Text: sentence})
		cursor += span
	}
	if len(cues) > 0 {
		cues[len(cues)-1].End = audioDuration
	}
	return cues
}
