package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/ipc"
	"reelforge/internal/queueaccess"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var category string
	var promptHash string
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "enqueue <topic>",
		Short: "Queue a topic for video generation",
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
			return withAccess(ctx, func(access queueaccess.Access) error {
				job, err := access.Enqueue(cmd.Context(), ipc.EnqueueRequest{
					Topic:      topic,
					Category:   strings.TrimSpace(category),
					PromptHash: strings.TrimSpace(promptHash),
					MetaJSON:   string(params.Meta()),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %q as job %s (category %s)\n",
					job.Topic, shortJobID(job.ID), job.Category)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Job category (defaults to General)")
	cmd.Flags().StringVar(&promptHash, "prompt-hash", "", "Response cache key override for the script prompt")
	registerPipelineFlags(cmd, &flags)
	registerStopAtFlag(cmd, &flags)
	return cmd
}
