package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shotpipe/internal/fingerprint"
	"shotpipe/internal/history"
	"shotpipe/internal/logging"
	"shotpipe/internal/media"
	"shotpipe/internal/metrics"
	"shotpipe/internal/naming"
	"shotpipe/internal/scanner"
	"shotpipe/internal/services"
	"shotpipe/internal/sink"
	"shotpipe/internal/tracker"
)

// LockName is the run lock file created in the output root.
const LockName = ".shotpipe.lock"

// Dependencies are the collaborators a Runner drives. Tracker is required;
// the rest fall back to defaults or no-ops.
type Dependencies struct {
	Tracker    *tracker.Tracker
	Classifier *media.Classifier
	Extractor  media.Extractor
	Sink       sink.Sink
	Metrics    *metrics.Recorder
	// MetricsPath receives a Prometheus textfile after each run when set.
	MetricsPath string
	Workers     int
	Now         func() time.Time
}

// Runner executes ingest runs.
type Runner struct {
	tracker     *tracker.Tracker
	scanner     *scanner.Scanner
	resolver    *naming.Resolver
	extractor   media.Extractor
	sink        sink.Sink
	metrics     *metrics.Recorder
	metricsPath string
	workers     int
	now         func() time.Time
	logger      *slog.Logger
}

// New builds a Runner.
func New(deps Dependencies, logger *slog.Logger) (*Runner, error) {
	if deps.Tracker == nil {
		return nil, errors.New("pipeline: tracker is required")
	}
	if deps.Classifier == nil {
		deps.Classifier = media.DefaultClassifier()
	}
	if deps.Sink == nil {
		deps.Sink = sink.Noop{}
	}
	if deps.Workers < 1 {
		deps.Workers = 1
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		tracker:     deps.Tracker,
		scanner:     scanner.New(deps.Classifier, deps.Tracker, logger),
		resolver:    naming.NewResolver(deps.Classifier, logger),
		extractor:   deps.Extractor,
		sink:        deps.Sink,
		metrics:     deps.Metrics,
		metricsPath: deps.MetricsPath,
		workers:     deps.Workers,
		now:         deps.Now,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// prepared is a scanned file after the concurrent phase.
type prepared struct {
	record   scanner.FileRecord
	hash     string
	metadata json.RawMessage
	err      error
}

// Run performs one ingest pass. On cancellation it returns the partial
// summary together with the context error; every file reported as processed
// was fully copied and recorded.
func (r *Runner) Run(ctx context.Context, opts Options) (summary Summary, err error) {
	summary = Summary{RunID: uuid.NewString(), StartedAt: r.now()}
	if opts.InputDir == "" || opts.OutputDir == "" {
		return summary, services.Wrap(services.ErrMalformedInput, "pipeline", "run", "input and output directories are required", nil)
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	unlock, err := acquireLock(opts.OutputDir)
	if err != nil {
		return summary, err
	}
	defer unlock()

	logger.Info("run started",
		logging.String("input_dir", opts.InputDir),
		logging.String("output_dir", opts.OutputDir),
		logging.Int("workers", r.workers),
	)
	defer func() {
		summary.Duration = r.now().Sub(summary.StartedAt)
		r.finishMetrics(logger, summary)
	}()

	if opts.Scan.Workers < 1 {
		opts.Scan.Workers = r.workers
	}
	scanResult, err := r.scanner.Scan(services.WithStage(ctx, "scan"), opts.InputDir, opts.Scan)
	if err != nil {
		return summary, err
	}
	summary.ScanSkipped = scanResult.Skipped
	for _, skip := range scanResult.Skipped {
		r.metrics.Skipped(string(skip.Reason))
	}

	records := dedupeByPath(scanResult.Eligible)
	summary.Eligible = len(records)
	if len(records) == 0 {
		logger.Info("no eligible files", logging.Int("skipped", len(scanResult.Skipped)))
		return summary, nil
	}

	jobs := make(chan prepared)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(jobs)
		return r.prepareAll(groupCtx, records, jobs)
	})

	seen := make(map[string]string, len(records))
	current := 0
	for item := range jobs {
		if ctx.Err() != nil {
			continue
		}
		result := r.handle(ctx, logger, opts, item, seen)
		summary.add(result)
		current++
		if opts.OnFileResult != nil {
			opts.OnFileResult(result)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(current, len(records))
		}
	}
	waitErr := group.Wait()
	if err := ctx.Err(); err != nil {
		logger.Info("run cancelled",
			logging.Int("processed", summary.Processed),
			logging.Int("remaining", len(records)-current),
		)
		return summary, err
	}
	if waitErr != nil {
		return summary, waitErr
	}

	logger.Info("run finished",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped+len(summary.ScanSkipped)),
		logging.Int("failed", summary.Failed),
		logging.Int64("bytes", summary.BytesCopied),
	)
	return summary, nil
}

// prepareAll fingerprints and probes records on the worker pool and hands
// each to the writer.
func (r *Runner) prepareAll(ctx context.Context, records []scanner.FileRecord, out chan<- prepared) error {
	workers, workerCtx := errgroup.WithContext(ctx)
	workers.SetLimit(r.workers)
	for _, record := range records {
		if workerCtx.Err() != nil {
			break
		}
		workers.Go(func() error {
			item := r.prepare(workerCtx, record)
			select {
			case out <- item:
				return nil
			case <-workerCtx.Done():
				return workerCtx.Err()
			}
		})
	}
	return workers.Wait()
}

func (r *Runner) prepare(ctx context.Context, record scanner.FileRecord) prepared {
	item := prepared{record: record}
	ctx = services.WithSourcePath(services.WithStage(ctx, "hash"), record.Path)
	item.hash, item.err = fingerprint.Compute(ctx, record.Path)
	if item.err != nil || r.extractor == nil {
		return item
	}
	meta, err := r.extractor.Extract(services.WithStage(ctx, "metadata"), record.Path)
	if err != nil {
		item.err = err
		return item
	}
	if encoded, err := json.Marshal(meta); err == nil {
		item.metadata = encoded
	}
	return item
}

// handle runs the serialized steps for one file: allocate, resolve, copy,
// record, deliver.
func (r *Runner) handle(ctx context.Context, logger *slog.Logger, opts Options, item prepared, seen map[string]string) FileResult {
	record := item.record
	result := FileResult{SourcePath: record.Path, SizeBytes: record.SizeBytes}
	fileLogger := logger.With(logging.String(logging.FieldSourcePath, record.Path))

	if item.err != nil {
		return r.fail(fileLogger, result, "hash", item.err)
	}
	if first, dup := seen[item.hash]; dup {
		result.Status = StatusSkipped
		result.Reason = SkipDuplicateInRun
		result.Detail = "content matches " + first
		r.metrics.Skipped(SkipDuplicateInRun)
		fileLogger.Info("skipping duplicate content within run", logging.String("original", first))
		return result
	}

	batchDir, err := r.tracker.AllocateBatchFolder(ctx, opts.OutputDir)
	if err != nil {
		return r.fail(fileLogger, result, "allocate", err)
	}
	resolution, err := r.resolver.Resolve(naming.FileInfo{
		SourcePath:   record.Path,
		SequenceHint: firstNonEmpty(opts.Hints.Sequence, record.SequenceGuess),
		ShotHint:     firstNonEmpty(opts.Hints.Shot, record.ShotGuess),
		TaskHint:     opts.Hints.Task,
	}, batchDir)
	if err != nil {
		return r.fail(fileLogger, result, "resolve", err)
	}
	result.Tuple = resolution.Tuple
	result.Reprocessed = resolution.Reprocessed

	finalPath, err := r.tracker.MoveToBatch(ctx, record.Path, resolution.Filename, opts.OutputDir)
	if err != nil {
		return r.fail(fileLogger, result, "move", err)
	}
	result.FinalPath = finalPath
	result.Batch = filepath.Base(filepath.Dir(finalPath))

	processedAt := r.now().UTC()
	details := history.Details{
		OriginalFilename:  record.Name,
		ProcessedFilename: resolution.Filename,
		ProcessedPath:     finalPath,
		Sequence:          resolution.Tuple.Sequence,
		Shot:              resolution.Tuple.Shot,
		Task:              resolution.Tuple.Task,
		Version:           resolution.Tuple.Version,
		Batch:             result.Batch,
		Status:            history.StatusProcessed,
		ProcessedAt:       processedAt,
		Extra:             item.metadata,
	}
	if _, err := r.tracker.RecordProcessed(ctx, record.Path, details); err != nil {
		// An unrecorded copy would be duplicated by the next run.
		if rmErr := os.Remove(finalPath); rmErr != nil {
			logging.WarnWithContext(fileLogger, "failed to remove unrecorded copy", "orphan_copy",
				logging.String("final_path", finalPath),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "delete the file manually before the next run"),
			)
		}
		result.FinalPath = ""
		return r.fail(fileLogger, result, "record", err)
	}
	seen[item.hash] = record.Path
	result.Status = StatusProcessed
	r.metrics.Processed(record.SizeBytes)

	runID, _ := services.RunIDFromContext(ctx)
	if err := r.sink.Deliver(ctx, sink.ProcessedFile{
		RunID:       runID,
		SourcePath:  record.Path,
		FinalPath:   finalPath,
		Sequence:    details.Sequence,
		Shot:        details.Shot,
		Task:        details.Task,
		Version:     details.Version,
		Batch:       details.Batch,
		ProcessedAt: processedAt,
		Metadata:    item.metadata,
	}); err != nil {
		result.SinkError = err.Error()
		logging.WarnWithContext(fileLogger, "sink delivery failed", "sink_delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file is processed locally but downstream was not notified"),
		)
	}
	fileLogger.Info("file processed",
		logging.String("final_path", finalPath),
		logging.String(logging.FieldBatch, details.Batch),
		logging.String("version", details.Version),
	)
	return result
}

// fail classifies err: vanished sources are skips, everything else a failure.
func (r *Runner) fail(logger *slog.Logger, result FileResult, stage string, err error) FileResult {
	result.Err = err
	result.Error = err.Error()
	if services.IsSkippable(err) {
		result.Status = StatusSkipped
		result.Reason = SkipVanished
		r.metrics.Skipped(SkipVanished)
		logger.Info("source vanished; skipping", logging.String(logging.FieldStage, stage))
		return result
	}
	result.Status = StatusFailed
	r.metrics.Failed()
	logging.ErrorWithContext(logger, "file failed", "file_failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(err),
		logging.String(logging.FieldImpact, "file left unprocessed; it will be retried on the next run"),
	)
	return result
}

func (r *Runner) finishMetrics(logger *slog.Logger, summary Summary) {
	if r.metrics == nil {
		return
	}
	r.metrics.RunFinished(summary.Duration, r.now())
	if err := r.metrics.WriteTextfile(r.metricsPath); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path"),
		)
	}
}

// acquireLock takes the output root's run lock and returns its release.
func acquireLock(outputDir string) (func(), error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIOFailure, "pipeline", "lock", "create output directory", err)
	}
	lock := flock.New(filepath.Join(outputDir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIOFailure, "pipeline", "lock", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return func() { _ = lock.Unlock() }, nil
}

// dedupeByPath drops records whose history key repeats, such as the same
// tree reached through two routes. Kept records retain their on-disk path;
// the key is only compared.
func dedupeByPath(records []scanner.FileRecord) []scanner.FileRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]scanner.FileRecord, 0, len(records))
	for _, record := range records {
		key := tracker.Key(record.Path)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, record)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
