package assembly

import (
	"context"
	"fmt"
	"log/slog"
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
	"reelforge/internal/textutil"
)

// File names written into the task directory.
const (
	// MetadataFileName is the JSON sidecar describing a finished task.
	MetadataFileName = "metadata.json"
	// ThumbnailFileName is the frame grabbed from the first render.
	ThumbnailFileName = "thumbnail.jpg"
)

// normalizedClip is one aspect-corrected material clip with its probed
// duration.
type normalizedClip struct {
	path     string
	duration float64
}

// Service renders final videos with ffmpeg. It implements
// pipeline.Assembler.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	outputDir     string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
	probeDuration func(ctx context.Context, binary, path string) (float64, error)
}

// NewService creates the assembler from tool and path configuration.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		ffmpegBinary:  cfg.FFmpegBinary(),
		ffprobeBinary: cfg.FFprobeBinary(),
		outputDir:     cfg.Paths.OutputDir,
		logger:        logging.NewComponentLogger(logger, "assembly"),
		probeDuration: videoDuration,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithDurationProber sets a custom clip duration prober (for testing).
func (s *Service) WithDurationProber(probe func(ctx context.Context, binary, path string) (float64, error)) {
	if probe != nil {
		s.probeDuration = probe
	}
}

// Assemble renders req.Count candidate videos into the task directory and
// copies them to the output directory. Existing non-empty renders are kept,
// so re-running an interrupted task only renders what is missing.
func (s *Service) Assemble(ctx context.Context, req pipeline.AssemblyRequest) ([]string, error) {
	if len(req.MaterialPaths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "video", "assemble", "no material clips", nil)
	}
	if !fileutil.NonEmpty(req.AudioPath) {
		return nil, services.Wrap(services.ErrValidation, "video", "assemble", "narration audio missing", nil)
	}
	if strings.TrimSpace(req.Dir) == "" {
		return nil, services.Wrap(services.ErrValidation, "video", "assemble", "task directory is empty", nil)
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure task directory: %w", err)
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	clipDuration := req.ClipDuration
	if clipDuration < 1 {
		clipDuration = 1
	}

	clips, err := s.normalizeMaterials(ctx, req, clipDuration)
	if err != nil {
		return nil, err
	}

	finals := make([]string, 0, count)
	for candidate := 1; candidate <= count; candidate++ {
		final := filepath.Join(req.Dir, fmt.Sprintf("final-%d.mp4", candidate))
		if fileutil.NonEmpty(final) {
			s.logger.Info("render already present",
				logging.String(logging.FieldEventType, "render_reused"),
				logging.String("path", final))
			finals = append(finals, final)
			continue
		}

		entries := planEntries(rotateClips(clips, candidate-1), req.AudioDuration)
		concatPath := filepath.Join(req.Dir, fmt.Sprintf("concat-%d.txt", candidate))
		if err := fileutil.WriteFileAtomic(concatPath, []byte(concatFileContent(entries)), 0o644); err != nil {
			return nil, fmt.Errorf("write concat list: %w", err)
		}

		args := buildRenderArgs(concatPath, req.AudioPath, req.SubtitlePath, req.AudioDuration, final)
		if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "video", "ffmpeg", fmt.Sprintf("render candidate %d failed", candidate), err)
		}
		if !fileutil.NonEmpty(final) {
			return nil, services.Wrap(services.ErrExternalTool, "video", "ffmpeg", fmt.Sprintf("render candidate %d produced no output", candidate), nil)
		}

		s.logger.Info("candidate rendered",
			logging.String(logging.FieldEventType, "render_complete"),
			logging.String("path", final),
			logging.Int("playlist_clips", len(entries)),
			logging.Float64("duration_seconds", req.AudioDuration))
		finals = append(finals, final)
	}

	outputs, err := s.export(req.TaskID, req.Topic, finals)
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

// normalizeMaterials scales, crops, and trims every material clip once.
// Clips ffmpeg cannot read are dropped; assembly proceeds as long as one
// clip survives.
func (s *Service) normalizeMaterials(ctx context.Context, req pipeline.AssemblyRequest, clipDuration int) ([]normalizedClip, error) {
	clips := make([]normalizedClip, 0, len(req.MaterialPaths))
	for index, material := range req.MaterialPaths {
		target := filepath.Join(req.Dir, fmt.Sprintf("norm-%d.mp4", index))
		if !fileutil.NonEmpty(target) {
			args := buildNormalizeArgs(material, target, req.Width, req.Height, clipDuration)
			if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Warn("material clip rejected",
					logging.String(logging.FieldEventType, "clip_rejected"),
					logging.String("clip", material),
					logging.Error(err))
				_ = os.Remove(target)
				continue
			}
		}
		if !fileutil.NonEmpty(target) {
			_ = os.Remove(target)
			continue
		}
		duration, err := s.probeDuration(ctx, s.ffprobeBinary, target)
		if err != nil || duration <= 0 {
			// Trust the trim length when the probe fails; the playlist
			// planner only needs an approximation.
			duration = float64(clipDuration)
		}
		clips = append(clips, normalizedClip{path: target, duration: duration})
	}
	if len(clips) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "video", "normalize", "no material clips survived normalization", nil)
	}
	return clips, nil
}

// export copies finished renders into the output directory under a
// topic-derived name. The verified copy guards against torn writes on
// network mounts.
func (s *Service) export(taskID, topic string, finals []string) ([]string, error) {
	if strings.TrimSpace(s.outputDir) == "" {
		return finals, nil
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	base := strings.ReplaceAll(textutil.SanitizeFileName(topic), " ", "_")
	if base == "" {
		base = "video"
	}
	id := strings.TrimSpace(taskID)
	if len(id) > 8 {
		id = id[:8]
	}

	outputs := make([]string, 0, len(finals))
	for index, final := range finals {
		name := fmt.Sprintf("%s-%s-%d.mp4", base, id, index+1)
		target := filepath.Join(s.outputDir, name)
		if err := fileutil.CopyFileVerified(final, target); err != nil {
			return nil, fmt.Errorf("export %s: %w", filepath.Base(final), err)
		}
		outputs = append(outputs, target)
	}

	s.logger.Info("videos exported",
		logging.String(logging.FieldEventType, "videos_exported"),
		logging.Int("count", len(outputs)),
		logging.String("output_dir", s.outputDir))
	return outputs, nil
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

// videoDuration probes a clip's playable length.
func videoDuration(ctx context.Context, binary, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return 0, fmt.Errorf("clip reports zero duration")
	}
	return duration, nil
}
