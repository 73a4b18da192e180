package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/pipeline"
	"shotpipe/internal/tracker"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Process new files as they appear until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(cfg *config.Config, tr *tracker.Tracker) error {
				opts, err := flags.options(cfg, args)
				if err != nil {
					return err
				}
				runner, err := ctx.newRunner(cfg, tr)
				if err != nil {
					return err
				}
				if debounce <= 0 {
					debounce = time.Duration(cfg.Processing.WatchDebounceMS) * time.Millisecond
				}
				out := cmd.OutOrStdout()
				opts.OnFileResult = func(result pipeline.FileResult) {
					printFileResult(out, result)
				}
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", opts.InputDir)
				return runner.Watch(cmd.Context(), opts, debounce, func(summary pipeline.Summary, err error) {
					switch {
					case errors.Is(err, pipeline.ErrLocked):
						fmt.Fprintln(out, "Output root busy; waiting for the next change")
					case err != nil:
						fmt.Fprintf(out, "Run failed: %v\n", err)
					case summary.Eligible > 0:
						printSummary(out, summary)
					}
				})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before processing (defaults to processing.watch_debounce_ms)")
	return cmd
}
