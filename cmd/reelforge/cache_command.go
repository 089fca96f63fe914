package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelforge/internal/queueaccess"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Response cache utilities",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear-expired",
		Short: "Evict expired response cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccess(ctx, func(access queueaccess.Access) error {
				removed, err := access.CacheClearExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d expired cache entries\n", removed)
				return nil
			})
		},
	})

	return cacheCmd
}
