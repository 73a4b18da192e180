package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/tracker"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the processing history",
	}
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryExportCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	historyCmd.AddCommand(newHistoryResetCommand(ctx))
	return historyCmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	var status string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count processed files by batch, sequence, and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(_ *config.Config, tr *tracker.Tracker) error {
				stats := tr.Stats(status)
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "History: %s\n", tr.HistoryPath())
				fmt.Fprintf(out, "Total entries: %d\n", stats.Total)
				if stats.Total == 0 {
					return nil
				}
				for _, group := range []struct {
					title  string
					counts map[string]int
				}{
					{"Batch", stats.ByBatch},
					{"Sequence", stats.BySequence},
					{"Status", stats.ByStatus},
				} {
					rows := make([][]string, 0, len(group.counts))
					for _, key := range tracker.SortedKeys(group.counts) {
						rows = append(rows, []string{key, strconv.Itoa(group.counts[key])})
					}
					fmt.Fprintln(out, renderTable([]string{group.title, "Files"}, rows, []columnAlignment{alignLeft, alignRight}, nil))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only count entries with this status")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Write the history as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(_ *config.Config, tr *tracker.Tracker) error {
				target := ""
				if len(args) > 0 {
					expanded, err := config.ExpandPath(args[0])
					if err != nil {
						return err
					}
					target = expanded
				}
				written, err := tr.ExportHistory(target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(tr.Entries()), written)
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop the oldest entries beyond the retention bound",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(cfg *config.Config, tr *tracker.Tracker) error {
				limit := cfg.History.MaxItems
				if maxItems > 0 {
					limit = maxItems
				}
				removed, err := tr.PruneHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries; %d remain\n", removed, len(tr.Entries()))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxItems, "max", 0, "Entries to keep (defaults to history.max_items)")
	return cmd
}

func newHistoryResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every processed file and restart batch numbering",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("history reset is destructive; rerun with --yes to confirm")
			}
			return ctx.withTracker(cmd, func(_ *config.Config, tr *tracker.Tracker) error {
				out := cmd.OutOrStdout()
				if !noBackup {
					backup, err := tr.BackupHistory(cmd.Context())
					if err != nil {
						return fmt.Errorf("backup history: %w", err)
					}
					fmt.Fprintf(out, "Backed up history to %s\n", backup)
				}
				count := len(tr.Entries())
				if err := tr.ResetHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d entries\n", count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm the reset")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the backup copy")
	return cmd
}
