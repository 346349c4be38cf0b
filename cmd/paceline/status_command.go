package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database location and stored record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			activities, segments, efforts, err := st.Counts(cmd.Context())
			if err != nil {
				return fmt.Errorf("count records: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:   %s\n", st.Path())
			fmt.Fprintf(out, "Activities: %s\n", formatCount(activities))
			fmt.Fprintf(out, "Segments:   %s\n", formatCount(segments))
			fmt.Fprintf(out, "Efforts:    %s\n", formatCount(efforts))
			return nil
		},
	}
}
