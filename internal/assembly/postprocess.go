package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
)

// taskMetadata is the JSON sidecar written next to the renders.
type taskMetadata struct {
	TaskID      string           `json:"task_id"`
	Topic       string           `json:"topic"`
	Duration    float64          `json:"duration_seconds"`
	GeneratedAt string           `json:"generated_at"`
	Videos      []string         `json:"videos"`
	Settings    metadataSettings `json:"settings"`
}

type metadataSettings struct {
	Language     string `json:"language,omitempty"`
	Voice        string `json:"voice"`
	Aspect       string `json:"aspect"`
	Source       string `json:"source"`
	Paragraphs   int    `json:"paragraphs"`
	ClipDuration int    `json:"clip_duration"`
	Subtitles    bool   `json:"subtitles"`
}

// PostProcess writes the metadata sidecar and grabs a thumbnail frame from
// the first render. Both are best-effort; failures are logged and the task
// outcome is unaffected.
func (s *Service) PostProcess(ctx context.Context, req pipeline.PostProcessRequest) {
	if err := s.writeMetadata(req); err != nil {
		s.logger.Warn("metadata sidecar failed",
			logging.String(logging.FieldEventType, "postprocess_metadata_failed"),
			logging.String("task_id", req.TaskID),
			logging.Error(err))
	}
	if err := s.writeThumbnail(ctx, req); err != nil {
		s.logger.Warn("thumbnail failed",
			logging.String(logging.FieldEventType, "postprocess_thumbnail_failed"),
			logging.String("task_id", req.TaskID),
			logging.Error(err))
	}
}

func (s *Service) writeMetadata(req pipeline.PostProcessRequest) error {
	videos := make([]string, 0, len(req.VideoPaths))
	for _, path := range req.VideoPaths {
		videos = append(videos, filepath.Base(path))
	}
	meta := taskMetadata{
		TaskID:      req.TaskID,
		Topic:       req.Topic,
		Duration:    req.Duration,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Videos:      videos,
		Settings: metadataSettings{
			Language:     req.Params.Language,
			Voice:        req.Params.Voice,
			Aspect:       req.Params.Aspect,
			Source:       req.Params.MaterialSource,
			Paragraphs:   req.Params.Paragraphs,
			ClipDuration: req.Params.ClipDuration,
			Subtitles:    req.Params.Subtitles,
		},
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	target := filepath.Join(req.Dir, MetadataFileName)
	if err := fileutil.WriteFileAtomic(target, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *Service) writeThumbnail(ctx context.Context, req pipeline.PostProcessRequest) error {
	if len(req.VideoPaths) == 0 {
		return nil
	}
	target := filepath.Join(req.Dir, ThumbnailFileName)
	if fileutil.NonEmpty(target) {
		return nil
	}
	args := buildThumbnailArgs(req.VideoPaths[0], target)
	if err := s.run(ctx, s.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	return nil
}
