package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reelforge/internal/daemonrun"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/respcache"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Generate a video for one topic without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(args[0])
			if topic == "" {
				return errors.New("topic is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			params, err := flags.buildParams(cmd, cfg, topic)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  ctx.resolvedLogLevel(),
				Format: "console",
			})
			if err != nil {
				return err
			}

			var cache *respcache.Cache
			if cfg.Cache.Enabled {
				cache, err = respcache.Open(cfg, respcache.WithLogger(logger))
				if err != nil {
					logger.Warn("response cache unavailable, continuing without it", logging.Error(err))
					cache = nil
				} else {
					defer cache.Close()
				}
			}

			collab, err := daemonrun.BuildCollaborators(cmd.Context(), cfg, cache, logger)
			if err != nil {
				return err
			}
			orchestrator := pipeline.NewOrchestrator(cfg, collab, logger)

			task := pipeline.NewTask(uuid.NewString(), params)
			started := time.Now()
			if err := orchestrator.Run(cmd.Context(), task); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s finished in %s\n", shortJobID(task.ID), time.Since(started).Round(time.Second))
			if task.AudioPath != "" {
				fmt.Fprintf(out, "Audio: %s\n", task.AudioPath)
			}
			if task.SubtitlePath != "" {
				fmt.Fprintf(out, "Subtitles: %s\n", task.SubtitlePath)
			}
			for _, video := range task.VideoPaths {
				fmt.Fprintf(out, "Video: %s\n", video)
			}
			if len(task.VideoPaths) == 0 && params.StopAt != "" {
				fmt.Fprintf(out, "Stopped after %s stage\n", params.StopAt)
			}
			return nil
		},
	}

	registerPipelineFlags(cmd, &flags)
	registerStopAtFlag(cmd, &flags)
	return cmd
}
