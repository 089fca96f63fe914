package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelforge/internal/ipc"
	"reelforge/internal/queue"
	"reelforge/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueFailStuckCommand(ctx))
	queueCmd.AddCommand(newQueueDeleteCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

// withAccess runs fn against the queue, via the daemon when it answers and
// directly against the database otherwise.
func withAccess(ctx *commandContext, fn func(queueaccess.Access) error) error {
	session, err := ctx.openAccess()
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var listCategory string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range listStatuses {
				if _, ok := queue.ParseStatus(raw); !ok {
					return fmt.Errorf("unknown status %q (valid: pending, processing, success, failed)", raw)
				}
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), listStatuses, strings.TrimSpace(listCategory))
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Topic", "Category", "Status", "Attempts", "Created", "Error"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-status job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(ctx, func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(ctx, func(access queueaccess.Access) error {
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", health.SchemaVersion)
				fmt.Fprintf(out, "Jobs table: %s\n", yesNo(health.TableExists))
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				}
				integrity := "ok"
				if !health.IntegrityCheck {
					integrity = "FAILED"
				}
				fmt.Fprintf(out, "Integrity check: %s\n", integrity)
				fmt.Fprintf(out, "Total jobs: %d\n", health.TotalJobs)
				if strings.TrimSpace(health.Error) != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var retryCategory string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Return failed jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(ctx, func(access queueaccess.Access) error {
				reset, err := access.Retry(cmd.Context(), strings.TrimSpace(retryCategory))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed jobs\n", reset)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&retryCategory, "category", "", "Retry only jobs in this category")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <job-id>",
		Short: "Return one job to pending regardless of its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("job id is required")
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				if err := access.Reset(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s reset to pending\n", id)
				return nil
			})
		},
	}
}

func newQueueFailStuckCommand(ctx *commandContext) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "fail-stuck",
		Short: "Fail jobs stuck in processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeoutSeconds < 0 {
				return errors.New("--timeout must be zero or positive")
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				failed, err := access.FailStuck(cmd.Context(), timeoutSeconds)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if timeoutSeconds > 0 {
					fmt.Fprintf(out, "Failed %d jobs stuck in processing for more than %s\n",
						failed, time.Duration(timeoutSeconds)*time.Second)
				} else {
					fmt.Fprintf(out, "Failed %d processing jobs\n", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Only fail jobs processing longer than this many seconds (0 fails all)")
	return cmd
}

func newQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Remove one job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("job id is required")
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				removed, err := access.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s removed\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Job %s not found\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			status := ""
			label := "queue jobs"
			switch {
			case clearCompleted:
				status = string(queue.StatusSuccess)
				label = "completed jobs"
			case clearFailed:
				status = string(queue.StatusFailed)
				label = "failed jobs"
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only successfully completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func buildQueueListRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortJobID(job.ID),
			truncateCell(job.Topic, 40),
			job.Category,
			job.Status,
			strconv.Itoa(job.Attempts),
			formatJobTime(job.CreatedAt),
			truncateCell(job.ErrorMessage, 48),
		})
	}
	return rows
}

func shortJobID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncateCell(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func formatJobTime(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04")
}
