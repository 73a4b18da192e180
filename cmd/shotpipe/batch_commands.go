package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/tracker"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect or advance the output batch folder",
	}
	batchCmd.AddCommand(newBatchCurrentCommand(ctx))
	batchCmd.AddCommand(newBatchRotateCommand(ctx))
	return batchCmd
}

func newBatchCurrentCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(_ *config.Config, tr *tracker.Tracker) error {
				info := tr.Batch()
				if jsonOutput {
					return writeJSON(cmd, info)
				}
				out := cmd.OutOrStdout()
				if info.CurrentBatchName == "" {
					fmt.Fprintln(out, "No batch yet; the first processed file starts one")
					return nil
				}
				fmt.Fprintf(out, "Current batch: %s (number %d)\n", info.CurrentBatchName, info.LastBatchNumber)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newBatchRotateCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Start a new batch folder now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(cfg *config.Config, tr *tracker.Tracker) error {
				root, err := outputDir(cfg, output)
				if err != nil {
					return err
				}
				dir, err := tr.RotateBatch(cmd.Context(), root)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started batch %s\n", dir)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output root (defaults to paths.output_dir)")
	return cmd
}
