package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelforge/internal/queueaccess"
)

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <job-id> <rating>",
		Short: "Record a 1-5 quality rating for a finished job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("job id is required")
			}
			rating, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil || rating < 1 || rating > 5 {
				return fmt.Errorf("invalid rating %q (must be 1-5)", args[1])
			}
			return withAccess(ctx, func(access queueaccess.Access) error {
				if err := access.Rate(cmd.Context(), id, rating); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated job %s %d/5\n", id, rating)
				return nil
			})
		},
	}
}
