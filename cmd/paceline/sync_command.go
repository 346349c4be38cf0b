package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paceline/internal/backfill"
	"paceline/internal/refresh"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch activities recorded since the newest stored one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			release, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer release()

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			client, err := ctx.stravaClient(logger)
			if err != nil {
				return err
			}

			runner := backfill.New(st, client, refresh.NewPolicy(cfg.RefreshMaxAge()), backfill.WithLogger(logger))
			fetched, err := runner.Sync(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("sync activities: %w", err)
			}

			if fetched == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Already up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d new activities\n", fetched)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of activities to fetch (0 for no limit)")
	return cmd
}
