package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"paceline/internal/store"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	segmentsCmd := &cobra.Command{
		Use:   "segments",
		Short: "Inspect stored segments and efforts",
	}

	segmentsCmd.AddCommand(newSegmentsTopCommand(ctx))
	segmentsCmd.AddCommand(newSegmentsShowCommand(ctx))
	return segmentsCmd
}

func newSegmentsTopCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List segments ranked by stored effort count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			counts, err := st.TopSegments(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("rank segments: %w", err)
			}
			if len(counts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No efforts stored")
				return nil
			}

			rows := make([]table.Row, 0, len(counts))
			for _, c := range counts {
				name := c.Name
				if name == "" {
					name = fmt.Sprintf("Segment %d", c.SegmentID)
				}
				rows = append(rows, table.Row{c.SegmentID, name, formatCount(c.Efforts)})
			}
			header := table.Row{"ID", "Segment", "Efforts"}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(header, rows, 1, 3))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 15, "Maximum number of segments to list")
	return cmd
}

func newSegmentsShowCommand(ctx *commandContext) *cobra.Command {
	var best int

	cmd := &cobra.Command{
		Use:   "show <segment-id>",
		Short: "Show a segment with its fastest stored efforts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid segment id %q", args[0])
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			segment, err := st.Segment(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("segment %d is not stored", id)
				}
				return fmt.Errorf("load segment: %w", err)
			}

			out := cmd.OutOrStdout()
			writeSegmentHeader(out, segment)

			efforts, err := st.BestEfforts(cmd.Context(), id, best)
			if err != nil {
				return fmt.Errorf("load efforts: %w", err)
			}
			if len(efforts) == 0 {
				fmt.Fprintln(out, "No efforts stored for this segment")
				return nil
			}

			rows := make([]table.Row, 0, len(efforts))
			for i, e := range efforts {
				pr := ""
				if e.PRRank != nil {
					pr = fmt.Sprintf("PR %d", *e.PRRank)
				}
				rows = append(rows, table.Row{
					i + 1,
					formatStartDate(e.StartDate),
					formatElapsed(e.ElapsedTime),
					e.ActivityID,
					pr,
				})
			}
			header := table.Row{"#", "Date", "Time", "Activity", ""}
			fmt.Fprintln(out, renderTable(header, rows, 1, 3, 4))
			return nil
		},
	}

	cmd.Flags().IntVar(&best, "best", 10, "Number of fastest efforts to show")
	return cmd
}

func writeSegmentHeader(out io.Writer, segment *store.Segment) {
	name := segment.Name
	if name == "" {
		name = fmt.Sprintf("Segment %d", segment.ID)
	}
	fmt.Fprintf(out, "%s (%d)\n", name, segment.ID)

	location := joinNonEmpty(", ", segment.City, segment.State, segment.Country)
	if location != "" {
		fmt.Fprintf(out, "  %s\n", location)
	}
	fmt.Fprintf(out, "  %s at %.1f%% average grade\n", formatDistance(segment.Distance), segment.AverageGrade)
	if segment.Polyline == "" {
		fmt.Fprintln(out, "  Detail not fetched yet (run `paceline backfill segments`)")
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
