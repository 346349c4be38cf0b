package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paceline/internal/archive"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var fetchEfforts bool

	cmd := &cobra.Command{
		Use:   "import <archive.zip|directory>",
		Short: "Import a Strava account archive into the local database",
		Args:  cobra.ExactArgs(1),
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

			opts := []archive.Option{
				archive.WithLogger(logger),
				archive.WithExtractDir(cfg.Paths.ExtractDir),
			}
			if fetchEfforts {
				client, err := ctx.stravaClient(logger)
				if err != nil {
					return err
				}
				opts = append(opts, archive.WithEffortFetcher(client))
			}

			importer := archive.New(st, opts...)
			summary, err := importer.Import(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import archive: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d activities, %d efforts, %d segments\n",
				summary.Activities, summary.Efforts, summary.Segments)
			if summary.Skipped > 0 {
				fmt.Fprintf(out, "Skipped %d malformed records (see log for details)\n", summary.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetchEfforts, "fetch-efforts", false, "Fetch efforts from the API for ledger activities without any")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("fetch-efforts") {
			if cfg, err := ctx.ensureConfig(); err == nil {
				fetchEfforts = cfg.Import.FetchEfforts
			}
		}
	}
	return cmd
}
