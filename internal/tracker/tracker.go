package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"shotpipe/internal/fingerprint"
	"shotpipe/internal/history"
	"shotpipe/internal/logging"
	"shotpipe/internal/services"
)

const (
	DefaultMaxFilesPerBatch = 100
	DefaultMaxHistoryItems  = 5000

	processedDirName = "processed"
)

// Options configures a Tracker.
type Options struct {
	MaxFilesPerBatch int
	MaxHistoryItems  int
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Tracker wraps the history store with identity checks and batch management.
type Tracker struct {
	mu     sync.Mutex
	store  *history.Store
	opts   Options
	logger *slog.Logger
	hash   func(ctx context.Context, path string) (string, error)
}

// Open loads the history at storePath and prunes it to MaxHistoryItems.
func Open(ctx context.Context, storePath string, opts Options, logger *slog.Logger) (*Tracker, error) {
	store, err := history.Open(ctx, storePath, logger)
	if err != nil {
		return nil, err
	}
	t := New(store, opts, logger)
	if _, err := t.PruneHistory(ctx, t.opts.MaxHistoryItems); err != nil {
		logging.WarnWithContext(t.logger, "startup history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may exceed its retention bound until the next prune"),
		)
	}
	return t, nil
}

// New wraps an open store.
func New(store *history.Store, opts Options, logger *slog.Logger) *Tracker {
	if opts.MaxFilesPerBatch <= 0 {
		opts.MaxFilesPerBatch = DefaultMaxFilesPerBatch
	}
	if opts.MaxHistoryItems <= 0 {
		opts.MaxHistoryItems = DefaultMaxHistoryItems
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "tracker"),
		hash:   fingerprint.Compute,
	}
}

// Close releases the history store.
func (t *Tracker) Close() error {
	if t == nil || t.store == nil {
		return nil
	}
	return t.store.Close()
}

// HistoryPath returns the backing store file.
func (t *Tracker) HistoryPath() string {
	return t.store.Path()
}

// Batch returns the current batch counters.
func (t *Tracker) Batch() history.BatchInfo {
	return t.store.Batch()
}

// Entries returns the history ordered newest first.
func (t *Tracker) Entries() []history.Entry {
	return t.store.Entries()
}

// Key normalizes a path into a history key: absolute, cleaned, NFC. The key
// only identifies an entry; file access goes through localPath, since the
// filesystem may store the name decomposed.
func Key(path string) string {
	return norm.NFC.String(localPath(path))
}

// localPath is path made absolute and cleaned, bytes otherwise untouched.
func localPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// IsProcessed reports whether path, or a byte-identical copy of it, was
// recorded before. The reason names the evidence. Errors answer false.
func (t *Tracker) IsProcessed(ctx context.Context, path string) (bool, string) {
	key, local := Key(path), localPath(path)
	info, err := os.Stat(local)
	if err != nil || info.IsDir() {
		return false, ""
	}

	if entry, ok := t.store.Get(key); ok &&
		entry.SizeBytes == info.Size() &&
		entry.ModifiedTime.UnixNano() == info.ModTime().UnixNano() {
		return true, "unchanged since processed at " + entry.RecordedAt.UTC().Format(time.RFC3339)
	}

	hash, err := t.hash(ctx, local)
	if err != nil {
		t.logger.Debug("hash failed during processed check; treating as new",
			logging.String(logging.FieldSourcePath, key),
			logging.Error(err),
		)
		return false, ""
	}
	if match, ok := t.store.LookupHash(hash); ok {
		return true, "content matches " + match.SourcePath
	}
	return false, ""
}

// RecordProcessed fingerprints path and stores it with details, replacing
// any previous entry for the same path. It returns the entry key. A source
// that no longer exists is logged and reported as services.ErrNotFound with
// no state change.
func (t *Tracker) RecordProcessed(ctx context.Context, path string, details history.Details) (string, error) {
	key, local := Key(path), localPath(path)
	info, err := os.Stat(local)
	if err != nil {
		logging.WarnWithContext(t.logger, "source vanished before recording; history unchanged", "record_source_missing",
			logging.String(logging.FieldSourcePath, key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be considered unprocessed on the next scan"),
		)
		return "", services.Wrap(services.Classify(err), "tracker", "record", key, err)
	}
	hash, err := t.hash(ctx, local)
	if err != nil {
		return "", err
	}

	now := t.opts.Now().UTC()
	if details.OriginalFilename == "" {
		details.OriginalFilename = filepath.Base(key)
	}
	if details.Status == "" {
		details.Status = history.StatusProcessed
	}
	if details.ProcessedAt.IsZero() {
		details.ProcessedAt = now
	}
	entry := history.Entry{
		SourcePath:   key,
		SizeBytes:    info.Size(),
		ModifiedTime: info.ModTime(),
		ContentHash:  hash,
		Details:      details,
		RecordedAt:   now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Put(ctx, entry); err != nil {
		return "", err
	}
	t.logger.Debug("recorded processed file",
		logging.String(logging.FieldSourcePath, key),
		logging.String(logging.FieldBatch, details.Batch),
	)
	return key, nil
}

// PruneHistory drops the oldest entries beyond maxItems.
func (t *Tracker) PruneHistory(ctx context.Context, maxItems int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed, err := t.store.Prune(ctx, maxItems)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		t.logger.Info("history pruned",
			logging.Int("removed", removed),
			logging.Int("kept", t.store.Len()),
		)
	}
	return removed, nil
}

// ResetHistory clears all entries and batch counters and deletes the store file.
func (t *Tracker) ResetHistory(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Reset(ctx); err != nil {
		return err
	}
	t.logger.Info("history reset", logging.String("path", t.store.Path()))
	return nil
}

// BackupHistory snapshots the store to <history file>.backup-<unix seconds>
// and returns the backup path.
func (t *Tracker) BackupHistory(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dst := fmt.Sprintf("%s.backup-%d", t.store.Path(), t.opts.Now().Unix())
	if err := t.store.Backup(ctx, dst); err != nil {
		return "", err
	}
	t.logger.Info("history backed up", logging.String("path", dst))
	return dst, nil
}

func processedRoot(outputRoot string) string {
	return filepath.Join(outputRoot, processedDirName)
}

var errEmptyOutputRoot = errors.New("output root not set")

func checkOutputRoot(outputRoot string) error {
	if outputRoot == "" {
		return services.Wrap(services.ErrMalformedInput, "tracker", "batch", "", errEmptyOutputRoot)
	}
	return nil
}

func batchName(day time.Time, number int) string {
	return fmt.Sprintf("batch_%s_%02d", day.Format("2006-01-02"), number)
}
