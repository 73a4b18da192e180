package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/pipeline"
	"shotpipe/internal/scanner"
	"shotpipe/internal/tracker"
)

type runFlags struct {
	output           string
	sequence         string
	shot             string
	task             string
	noRecursive      bool
	includeProcessed bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output root (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&f.sequence, "sequence", "", "Sequence for every file (e.g. s02, LIG)")
	cmd.Flags().StringVar(&f.shot, "shot", "", "Shot for every file (e.g. c010)")
	cmd.Flags().StringVar(&f.task, "task", "", "Task code for every file")
	cmd.Flags().BoolVar(&f.noRecursive, "no-recursive", false, "Only scan the top-level directory")
	cmd.Flags().BoolVar(&f.includeProcessed, "include-processed", false, "Process files already in the history again")
}

func (f *runFlags) options(cfg *config.Config, args []string) (pipeline.Options, error) {
	in, err := inputDir(cfg, args)
	if err != nil {
		return pipeline.Options{}, err
	}
	out, err := outputDir(cfg, f.output)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		InputDir:  in,
		OutputDir: out,
		Scan: scanner.Options{
			Recursive:        cfg.Processing.Recursive && !f.noRecursive,
			ExcludeProcessed: cfg.Processing.ExcludeProcessed && !f.includeProcessed,
			Workers:          cfg.Processing.Workers,
		},
		Hints: pipeline.Hints{Sequence: f.sequence, Shot: f.shot, Task: f.task},
	}, nil
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "process [dir]",
		Short: "Copy eligible files into the current batch folder with versioned names",
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

				stderr := cmd.ErrOrStderr()
				var bar *progressbar.ProgressBar
				if !jsonOutput && isTerminal(stderr) {
					opts.OnProgress = func(current, total int) {
						if bar == nil {
							bar = progressbar.NewOptions(total,
								progressbar.OptionSetWriter(stderr),
								progressbar.OptionSetDescription("processing"),
								progressbar.OptionShowCount(),
								progressbar.OptionClearOnFinish(),
							)
						}
						_ = bar.Set(current)
					}
				} else if !jsonOutput {
					out := cmd.OutOrStdout()
					opts.OnFileResult = func(result pipeline.FileResult) {
						printFileResult(out, result)
					}
				}

				summary, runErr := runner.Run(cmd.Context(), opts)
				if bar != nil {
					_ = bar.Finish()
				}
				if jsonOutput {
					if err := writeJSON(cmd, summary); err != nil {
						return err
					}
				} else {
					printSummary(cmd.OutOrStdout(), summary)
				}
				if runErr != nil {
					return runErr
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d file(s) failed; see log for details", summary.Failed)
				}
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run summary as JSON")
	return cmd
}

func printFileResult(out io.Writer, result pipeline.FileResult) {
	name := filepath.Base(result.SourcePath)
	switch result.Status {
	case pipeline.StatusProcessed:
		fmt.Fprintf(out, "processed %s -> %s/%s\n", name, result.Batch, filepath.Base(result.FinalPath))
	case pipeline.StatusSkipped:
		fmt.Fprintf(out, "skipped   %s (%s)\n", name, result.Reason)
	case pipeline.StatusFailed:
		fmt.Fprintf(out, "failed    %s: %s\n", name, result.Error)
	}
}

func printSummary(out io.Writer, summary pipeline.Summary) {
	fmt.Fprintf(out, "Run %s: %d processed (%s), %d skipped, %d failed in %s\n",
		summary.RunID,
		summary.Processed,
		formatBytes(summary.BytesCopied),
		summary.Skipped+len(summary.ScanSkipped),
		summary.Failed,
		summary.Duration.Round(time.Millisecond),
	)
}
