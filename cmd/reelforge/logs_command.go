package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/daemon"
	"reelforge/internal/ipc"
	"reelforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				lines = 0
			}
			client, err := ctx.dialClient()
			if err == nil {
				defer client.Close()
				return streamDaemonLogs(cmd, client, lines, follow)
			}
			// No daemon answering; read the current log file directly.
			return tailLogFile(cmd, ctx, lines, follow)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines")
	return cmd
}

func streamDaemonLogs(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	out := cmd.OutOrStdout()

	// Negative offset asks for the last N lines; subsequent calls resume
	// from the returned offset.
	offset := int64(0)
	if lines > 0 {
		offset = -1
	}
	limit := lines

	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return err
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(out, line)
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		default:
		}
	}
}

func tailLogFile(cmd *cobra.Command, ctx *commandContext, lines int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.LogDir, daemon.LogPointerName)
	out := cmd.OutOrStdout()

	offset := int64(0)
	if lines > 0 {
		offset = -1
	}
	limit := lines

	for {
		result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			fmt.Fprintln(out, line)
		}
		offset = result.Offset
		limit = 0
		if !follow {
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		default:
		}
	}
}
