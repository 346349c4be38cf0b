package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newActivitiesCommand(ctx *commandContext) *cobra.Command {
	activitiesCmd := &cobra.Command{
		Use:   "activities",
		Short: "Inspect stored activities",
	}

	activitiesCmd.AddCommand(newActivitiesRecentCommand(ctx))
	return activitiesCmd
}

func newActivitiesRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			activities, err := st.LatestActivities(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list activities: %w", err)
			}
			if len(activities) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No activities stored")
				return nil
			}

			rows := make([]table.Row, 0, len(activities))
			for _, a := range activities {
				rows = append(rows, table.Row{
					a.ID,
					formatStartDate(a.StartDate),
					a.Name,
					a.Type,
					formatDistance(a.Distance),
					formatElapsed(a.MovingTime),
				})
			}
			header := table.Row{"ID", "Date", "Name", "Type", "Distance", "Moving"}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(header, rows, 1, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of activities to list")
	return cmd
}
