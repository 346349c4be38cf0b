package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paceline/internal/backfill"
	"paceline/internal/refresh"
	"paceline/internal/store"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fill in missing effort and segment detail from the API",
	}

	backfillCmd.AddCommand(newBackfillEffortsCommand(ctx))
	backfillCmd.AddCommand(newBackfillSegmentsCommand(ctx))
	return backfillCmd
}

func newBackfillEffortsCommand(ctx *commandContext) *cobra.Command {
	var maxActivities int

	cmd := &cobra.Command{
		Use:   "efforts",
		Short: "Fetch segment efforts for activities that have none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, st, release, err := newRunner(ctx)
			if err != nil {
				return err
			}
			defer release()
			defer st.Close()

			processed, err := runner.Efforts(cmd.Context(), maxActivities)
			if err != nil {
				return fmt.Errorf("backfill efforts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d activities\n", processed)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxActivities, "max", 25, "Maximum number of activities to process")
	return cmd
}

func newBackfillSegmentsCommand(ctx *commandContext) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Fetch full detail for incomplete or stale segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, st, release, err := newRunner(ctx)
			if err != nil {
				return err
			}
			defer release()
			defer st.Close()

			refreshed, err := runner.Segments(cmd.Context(), batchSize)
			if err != nil {
				return fmt.Errorf("backfill segments: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d segments\n", refreshed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 50, "Maximum number of segments to refresh")
	return cmd
}

func newRunner(ctx *commandContext) (runner *backfill.Runner, st *store.Store, release func(), err error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := ctx.logger()
	if err != nil {
		return nil, nil, nil, err
	}

	release, err = ctx.acquireLock()
	if err != nil {
		return nil, nil, nil, err
	}

	dbStore, err := ctx.openStore()
	if err != nil {
		release()
		return nil, nil, nil, err
	}

	client, err := ctx.stravaClient(logger)
	if err != nil {
		release()
		_ = dbStore.Close()
		return nil, nil, nil, err
	}

	runner = backfill.New(dbStore, client, refresh.NewPolicy(cfg.RefreshMaxAge()), backfill.WithLogger(logger))
	return runner, dbStore, release, nil
}
