package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/media"
	"shotpipe/internal/scanner"
	"shotpipe/internal/tracker"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var noRecursive bool
	var includeProcessed bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List files eligible for processing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTracker(cmd, func(cfg *config.Config, tr *tracker.Tracker) error {
				dir, err := inputDir(cfg, args)
				if err != nil {
					return err
				}
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				classifier := media.NewClassifier(cfg.Processing.ImageExtensions, cfg.Processing.VideoExtensions)
				result, err := scanner.New(classifier, tr, logger).Scan(cmd.Context(), dir, scanner.Options{
					Recursive:        cfg.Processing.Recursive && !noRecursive,
					ExcludeProcessed: cfg.Processing.ExcludeProcessed && !includeProcessed,
					Workers:          cfg.Processing.Workers,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, scanOutput{
						Directory: dir,
						Result:    result,
						Processed: result.ProcessedSummary(),
					})
				}
				renderScan(cmd, dir, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noRecursive, "no-recursive", false, "Only scan the top-level directory")
	cmd.Flags().BoolVar(&includeProcessed, "include-processed", false, "List files already in the history as eligible")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type scanOutput struct {
	Directory string          `json:"directory"`
	Result    scanner.Result  `json:"result"`
	Processed scanner.Summary `json:"already_processed"`
}

func renderScan(cmd *cobra.Command, dir string, result scanner.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %s\n", dir)
	if len(result.Eligible) == 0 {
		fmt.Fprintln(out, "No eligible files")
	} else {
		rows := make([][]string, 0, len(result.Eligible))
		var total int64
		for _, rec := range result.Eligible {
			total += rec.SizeBytes
			rows = append(rows, []string{
				rec.Name,
				string(rec.Kind),
				formatBytes(rec.SizeBytes),
				dashIfEmpty(rec.SequenceGuess),
				dashIfEmpty(rec.ShotGuess),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"File", "Type", "Size", "Sequence", "Shot"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			[]string{fmt.Sprintf("%d eligible", len(rows)), "", formatBytes(total), "", ""},
		))
	}

	processed := result.ProcessedSummary()
	if processed.Count > 0 {
		exts := make([]string, 0, len(processed.Extensions))
		for ext, n := range processed.Extensions {
			exts = append(exts, fmt.Sprintf("%s×%d", ext, n))
		}
		sort.Strings(exts)
		fmt.Fprintf(out, "Skipped %d already processed (%s, %s)\n",
			processed.Count, formatBytes(processed.TotalBytes), strings.Join(exts, " "))
	}
	if unsupported := result.SkippedByReason(scanner.SkipUnsupportedExtension); len(unsupported) > 0 {
		fmt.Fprintf(out, "Skipped %d unsupported\n", len(unsupported))
	}
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
