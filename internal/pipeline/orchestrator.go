package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/services"
)

// Progress milestones recorded at stage boundaries. Completion always lands
// on 100 regardless of which stage finished last.
const (
	progressValidated = 5
	progressScript    = 10
	progressTerms     = 20
	progressMedia     = 40
	progressSubtitle  = 50
)

// Narration pace used to estimate audio length before synthesis reports the
// real duration. The estimate feeds the material fetch budget so both stages
// can run concurrently.
const (
	estimateWordsPerMinute = 130.0
	estimatePadSeconds     = 5.0
)

// Collaborators bundles the stage services the orchestrator drives. Every
// field is required.
type Collaborators struct {
	Scripts   ScriptGenerator
	Speech    SpeechSynthesizer
	Materials MaterialFetcher
	Subtitles SubtitleWriter
	Assembler Assembler
}

// Orchestrator drives one task through the generation stages: script, search
// terms, the parallel audio/material phase, subtitles, and final assembly.
// It owns all task mutation; callers read the task only after Run returns.
type Orchestrator struct {
	cfg    *config.Config
	collab Collaborators
	logger *slog.Logger
}

// NewOrchestrator constructs the stage driver.
func NewOrchestrator(cfg *config.Config, collab Collaborators, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		collab: collab,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes the pipeline for one task. The task ends in StateComplete or
// StateFailed; the returned error carries the failing stage's cause. A
// Params.StopAt marker ends the run early with StateComplete after the named
// stage.
func (o *Orchestrator) Run(ctx context.Context, task *Task) error {
	if task == nil {
		return services.Wrap(services.ErrValidation, "pipeline", "run", "task is nil", nil)
	}
	logger := o.logger.With(logging.String(logging.FieldJobID, task.ID))
	started := time.Now()

	task.markProcessing()

	if err := o.validate(task); err != nil {
		return o.failStage(task, logger, "validate", err)
	}
	dir := o.cfg.TaskDir(task.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return o.failStage(task, logger, "validate", fmt.Errorf("ensure task directory: %w", err))
	}
	task.SetProgress(progressValidated)

	logger.Info("task started",
		logging.String(logging.FieldEventType, "task_started"),
		logging.String("topic", task.Params.Subject),
		logging.String("stop_at", task.Params.StopAt))

	artifact, _ := loadScriptArtifact(dir)

	// Script stage.
	script := strings.TrimSpace(artifact.Script)
	if script != "" {
		logger.Info("script restored from artifact",
			logging.String(logging.FieldEventType, "script_reused"),
			logging.String(logging.FieldStage, StopAtScript))
	} else {
		generated, err := o.collab.Scripts.Script(ctx, task.Params.Subject, task.Params.Language, task.Params.Paragraphs)
		if err != nil {
			return o.failStage(task, logger, StopAtScript, err)
		}
		script = strings.TrimSpace(generated)
		if script == "" {
			return o.failStage(task, logger, StopAtScript,
				services.Wrap(services.ErrValidation, StopAtScript, "generate", "stage produced no script", nil))
		}
	}
	task.Script = script
	task.SetProgress(progressScript)
	o.logStage(logger, StopAtScript, started)
	if task.Params.StopAt == StopAtScript {
		return o.complete(task, logger, started)
	}

	// Search terms stage.
	terms := artifact.Terms
	if len(terms) > 0 {
		logger.Info("terms restored from artifact",
			logging.String(logging.FieldEventType, "terms_reused"),
			logging.String(logging.FieldStage, StopAtTerms))
	} else {
		generated, err := o.collab.Scripts.Terms(ctx, task.Params.Subject, script, task.Params.TermsCount, task.Params.Faceless)
		if err != nil {
			return o.failStage(task, logger, StopAtTerms, err)
		}
		if len(generated) == 0 {
			return o.failStage(task, logger, StopAtTerms,
				services.Wrap(services.ErrValidation, StopAtTerms, "generate", "stage produced no search terms", nil))
		}
		terms = generated
	}
	task.Terms = terms
	if err := saveScriptArtifact(dir, scriptArtifact{Script: script, Terms: terms, Params: task.Params}); err != nil {
		logger.Warn("script artifact not saved",
			logging.String(logging.FieldEventType, "artifact_write_failed"),
			logging.Error(err))
	}
	task.SetProgress(progressTerms)
	o.logStage(logger, StopAtTerms, started)
	if task.Params.StopAt == StopAtTerms {
		return o.complete(task, logger, started)
	}

	// Parallel phase: narration synthesis and material download are fully
	// independent, so both run at once and the run blocks for both results.
	if err := o.runMediaPhase(ctx, task, dir, logger); err != nil {
		return err
	}
	task.SetProgress(progressMedia)
	if task.Params.StopAt == StopAtAudio || task.Params.StopAt == StopAtMaterials {
		return o.complete(task, logger, started)
	}

	// Subtitle stage. A failed subtitle degrades the render rather than
	// failing the task; the video still carries the narration.
	if task.Params.Subtitles {
		subtitlePath, err := o.collab.Subtitles.Write(ctx, SubtitleRequest{
			Script:        script,
			AudioDuration: task.AudioDuration,
			TimingPath:    task.timingPath,
			Dir:           dir,
		})
		if err != nil {
			if ctx.Err() != nil {
				return o.failStage(task, logger, StopAtSubtitle, err)
			}
			logger.Warn("subtitle generation failed, rendering without subtitles",
				logging.String(logging.FieldEventType, "subtitle_skipped"),
				logging.Error(err))
		} else {
			task.SubtitlePath = subtitlePath
		}
	}
	task.SetProgress(progressSubtitle)
	o.logStage(logger, StopAtSubtitle, started)
	if task.Params.StopAt == StopAtSubtitle {
		return o.complete(task, logger, started)
	}

	// Assembly stage.
	width, height := task.Params.Resolution()
	videos, err := o.collab.Assembler.Assemble(ctx, AssemblyRequest{
		TaskID:        task.ID,
		Topic:         task.Params.Subject,
		MaterialPaths: task.MaterialPaths,
		AudioPath:     task.AudioPath,
		AudioDuration: task.AudioDuration,
		SubtitlePath:  task.SubtitlePath,
		Width:         width,
		Height:        height,
		ClipDuration:  task.Params.ClipDuration,
		Count:         task.Params.VideoCount,
		Dir:           dir,
	})
	if err != nil {
		return o.failStage(task, logger, StopAtVideo, err)
	}
	if len(videos) == 0 {
		return o.failStage(task, logger, StopAtVideo,
			services.Wrap(services.ErrValidation, StopAtVideo, "assemble", "stage produced no video", nil))
	}
	task.VideoPaths = videos
	o.logStage(logger, StopAtVideo, started)

	if err := o.complete(task, logger, started); err != nil {
		return err
	}
	o.dispatchPostProcess(task, dir)
	return nil
}

func (o *Orchestrator) validate(task *Task) error {
	if strings.TrimSpace(task.Params.Subject) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "validate", "subject is empty", nil)
	}
	if o.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate", "configuration missing", nil)
	}
	missing := ""
	switch {
	case o.collab.Scripts == nil:
		missing = "script generator"
	case o.collab.Speech == nil:
		missing = "speech synthesizer"
	case o.collab.Materials == nil:
		missing = "material fetcher"
	case o.collab.Subtitles == nil:
		missing = "subtitle writer"
	case o.collab.Assembler == nil:
		missing = "assembler"
	}
	if missing != "" {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate", missing+" not configured", nil)
	}
	return nil
}

type speechOutcome struct {
	result SpeechResult
	err    error
}

type materialOutcome struct {
	paths []string
	err   error
}

// runMediaPhase forks narration synthesis and material download, then joins
// both. The audio result is inspected first, matching the stage order the
// progress milestones imply; both goroutines are always drained.
func (o *Orchestrator) runMediaPhase(ctx context.Context, task *Task, dir string, logger *slog.Logger) error {
	words := len(strings.Fields(task.Script))
	estimated := math.Floor(float64(words)/estimateWordsPerMinute*60) + estimatePadSeconds
	count := task.Params.VideoCount
	if count < 1 {
		count = 1
	}
	budget := estimated * float64(count)

	logger.Info("media phase started",
		logging.String(logging.FieldEventType, "media_phase_started"),
		logging.Int("script_words", words),
		logging.Float64("estimated_audio_seconds", estimated),
		logging.Float64("material_budget_seconds", budget))

	audioCh := make(chan speechOutcome, 1)
	materialCh := make(chan materialOutcome, 1)

	go func() {
		result, err := o.collab.Speech.Synthesize(ctx, task.Script, task.Params.Voice, task.Params.VoiceRate, dir)
		audioCh <- speechOutcome{result: result, err: err}
	}()
	go func() {
		paths, err := o.collab.Materials.Fetch(ctx, MaterialRequest{
			Terms:         task.Terms,
			Source:        task.Params.MaterialSource,
			Aspect:        task.Params.Aspect,
			AudioDuration: budget,
			ClipDuration:  task.Params.ClipDuration,
			Dir:           dir,
		})
		materialCh <- materialOutcome{paths: paths, err: err}
	}()

	audio := <-audioCh
	materials := <-materialCh

	if audio.err != nil {
		return o.failStage(task, logger, StopAtAudio, audio.err)
	}
	if audio.result.AudioPath == "" || audio.result.Duration <= 0 {
		return o.failStage(task, logger, StopAtAudio,
			services.Wrap(services.ErrValidation, StopAtAudio, "synthesize", "stage produced no narration", nil))
	}
	task.AudioPath = audio.result.AudioPath
	task.AudioDuration = audio.result.Duration
	task.timingPath = audio.result.TimingPath

	if materials.err != nil {
		return o.failStage(task, logger, StopAtMaterials, materials.err)
	}
	if len(materials.paths) == 0 {
		return o.failStage(task, logger, StopAtMaterials,
			services.Wrap(services.ErrValidation, StopAtMaterials, "fetch", "no material clips found", nil))
	}
	task.MaterialPaths = materials.paths

	logger.Info("media phase complete",
		logging.String(logging.FieldEventType, "media_phase_complete"),
		logging.Float64("audio_seconds", task.AudioDuration),
		logging.Int("material_clips", len(task.MaterialPaths)))
	return nil
}

func (o *Orchestrator) dispatchPostProcess(task *Task, dir string) {
	req := PostProcessRequest{
		TaskID:     task.ID,
		Topic:      task.Params.Subject,
		Params:     task.Params,
		VideoPaths: append([]string(nil), task.VideoPaths...),
		Duration:   task.AudioDuration,
		Dir:        dir,
	}
	go o.collab.Assembler.PostProcess(context.Background(), req)
}

func (o *Orchestrator) failStage(task *Task, logger *slog.Logger, stage string, err error) error {
	task.markFailed(err.Error())
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stage),
		logging.Error(err))
	return err
}

func (o *Orchestrator) complete(task *Task, logger *slog.Logger, started time.Time) error {
	task.markComplete()
	logger.Info("task complete",
		logging.String(logging.FieldEventType, "task_complete"),
		logging.Int("videos", len(task.VideoPaths)),
		logging.Duration("task_duration", time.Since(started)))
	return nil
}

func (o *Orchestrator) logStage(logger *slog.Logger, stage string, started time.Time) {
	logger.Info("stage complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, stage),
		logging.Duration("elapsed", time.Since(started)))
}
