package tts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/media/ffprobe"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
)

const (
	// AudioFileName is the narration file written into the task directory.
	AudioFileName = "audio.mp3"
	// TimingFileName is the word-boundary subtitle file edge-tts writes.
	TimingFileName = "audio.vtt"

	edgeTTSPackage = "edge-tts"
)

// Service synthesizes narration by shelling out to edge-tts via uvx.
type Service struct {
	uvxBinary     string
	ffprobeBinary string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
	probeDuration func(ctx context.Context, binary, path string) (float64, error)
}

// NewService creates a speech synthesis service from the tool configuration.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		uvxBinary:     cfg.UvxBinary(),
		ffprobeBinary: cfg.FFprobeBinary(),
		logger:        logging.NewComponentLogger(logger, "tts"),
		probeDuration: ffprobe.AudioDuration,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithDurationProber sets a custom audio duration prober (for testing).
func (s *Service) WithDurationProber(probe func(ctx context.Context, binary, path string) (float64, error)) {
	if probe != nil {
		s.probeDuration = probe
	}
}

// Synthesize narrates text into dir/audio.mp3 and reports the measured
// duration. An existing non-empty narration short-circuits the synthesis so
// re-running a task never spends synthesis time twice.
func (s *Service) Synthesize(ctx context.Context, text, voice, rate, dir string) (pipeline.SpeechResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pipeline.SpeechResult{}, services.Wrap(services.ErrValidation, "audio", "synthesize", "narration text is empty", nil)
	}
	if dir == "" {
		return pipeline.SpeechResult{}, services.Wrap(services.ErrValidation, "audio", "synthesize", "output directory is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pipeline.SpeechResult{}, fmt.Errorf("ensure audio directory: %w", err)
	}

	audioPath := filepath.Join(dir, AudioFileName)
	timingPath := filepath.Join(dir, TimingFileName)

	if fileutil.NonEmpty(audioPath) {
		duration, err := s.measure(ctx, audioPath)
		if err == nil {
			s.logger.Info("narration already present",
				logging.String(logging.FieldEventType, "tts_reused"),
				logging.String("audio", audioPath),
				logging.Float64("duration_seconds", duration))
			return pipeline.SpeechResult{
				AudioPath:  audioPath,
				Duration:   duration,
				TimingPath: existingTiming(timingPath),
			}, nil
		}
		// Unreadable leftover; regenerate from scratch.
		_ = os.Remove(audioPath)
		_ = os.Remove(timingPath)
	}

	resolvedVoice := NormalizeVoice(voice)
	resolvedRate := NormalizeRate(rate)
	args := buildArgs(text, resolvedVoice, resolvedRate, audioPath, timingPath)
	if err := s.run(ctx, s.uvxBinary, args...); err != nil {
		return pipeline.SpeechResult{}, services.Wrap(services.ErrExternalTool, "audio", "edge-tts", "synthesis failed", err)
	}
	if !fileutil.NonEmpty(audioPath) {
		return pipeline.SpeechResult{}, services.Wrap(services.ErrExternalTool, "audio", "edge-tts", "no audio produced", nil)
	}

	duration, err := s.measure(ctx, audioPath)
	if err != nil {
		return pipeline.SpeechResult{}, services.Wrap(services.ErrExternalTool, "audio", "ffprobe", "measure narration duration", err)
	}

	s.logger.Info("narration synthesized",
		logging.String(logging.FieldEventType, "tts_complete"),
		logging.String("voice", resolvedVoice),
		logging.String("rate", resolvedRate),
		logging.Float64("duration_seconds", duration))

	return pipeline.SpeechResult{
		AudioPath:  audioPath,
		Duration:   duration,
		TimingPath: existingTiming(timingPath),
	}, nil
}

func buildArgs(text, voice, rate, audioPath, timingPath string) []string {
	return []string{
		edgeTTSPackage,
		"--voice", voice,
		"--rate=" + rate,
		"--text", text,
		"--write-media", audioPath,
		"--write-subtitles", timingPath,
	}
}

// measure probes the narration and rounds up to whole seconds, matching how
// the assembly stage budgets footage.
func (s *Service) measure(ctx context.Context, path string) (float64, error) {
	duration, err := s.probeDuration(ctx, s.ffprobeBinary, path)
	if err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("narration reported zero duration")
	}
	return math.Ceil(duration), nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func existingTiming(path string) string {
	if fileutil.NonEmpty(path) {
		return path
	}
	return ""
}
