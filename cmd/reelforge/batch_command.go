package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/batch"
	"reelforge/internal/config"
	"reelforge/internal/ipc"
	"reelforge/internal/queueaccess"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var category string
	var resume bool
	var reportPath string

	cmd := &cobra.Command{
		Use:   "batch <topics-file>",
		Short: "Queue every topic in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return errors.New("topics file is required")
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				report, err := access.EnqueueBatch(cmd.Context(), ipc.EnqueueBatchRequest{
					Path:     expanded,
					Category: strings.TrimSpace(category),
					Resume:   resume,
				})
				if err != nil {
					return err
				}
				printBatchReport(cmd, report)
				if target := strings.TrimSpace(reportPath); target != "" {
					resolved, err := config.ExpandPath(target)
					if err != nil {
						return err
					}
					if err := report.WriteMarkdown(resolved); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", resolved)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category for topics without an explicit one")
	cmd.Flags().BoolVar(&resume, "resume", false, "Reset previously failed or stuck topics instead of skipping them")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a markdown report to this path")
	return cmd
}

func printBatchReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()
	mode := "enqueue"
	if report.Resume {
		mode = "resume"
	}
	fmt.Fprintf(out, "Processed %d topics from %s (%s mode) in %.1fs\n",
		len(report.Entries), report.File, mode, report.Elapsed.Seconds())

	summaryRows := [][]string{
		{"enqueued", strconv.Itoa(report.Count(batch.OutcomeEnqueued))},
		{"reset", strconv.Itoa(report.Count(batch.OutcomeReset))},
		{"skipped", strconv.Itoa(report.Count(batch.OutcomeSkipped))},
		{"failed", strconv.Itoa(report.Count(batch.OutcomeFailed))},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, summaryRows, []columnAlignment{alignLeft, alignRight}))

	rollups := report.Rollup()
	if len(rollups) > 1 {
		rows := make([][]string, 0, len(rollups))
		for _, rollup := range rollups {
			rows = append(rows, []string{
				rollup.Category,
				strconv.Itoa(rollup.Enqueued),
				strconv.Itoa(rollup.Reset),
				strconv.Itoa(rollup.Skipped),
				strconv.Itoa(rollup.Failed),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Category", "Enqueued", "Reset", "Skipped", "Failed"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	for _, entry := range report.Entries {
		if entry.Outcome != batch.OutcomeFailed {
			continue
		}
		fmt.Fprintf(out, "Failed: %s (%s)\n", entry.Topic, entry.Detail)
	}
}
