package tracker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"shotpipe/internal/fileutil"
	"shotpipe/internal/history"
	"shotpipe/internal/logging"
	"shotpipe/internal/services"
)

// AllocateBatchFolder returns the current batch folder under
// outputRoot/processed, rotating first when it already holds
// MaxFilesPerBatch files.
func (t *Tracker) AllocateBatchFolder(ctx context.Context, outputRoot string) (string, error) {
	if err := checkOutputRoot(outputRoot); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocateLocked(ctx, outputRoot)
}

func (t *Tracker) allocateLocked(ctx context.Context, outputRoot string) (string, error) {
	current := t.store.Batch()
	if current.CurrentBatchName == "" {
		return t.rotateLocked(ctx, outputRoot)
	}
	dir := filepath.Join(processedRoot(outputRoot), current.CurrentBatchName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "allocate batch", dir, err)
	}
	count, err := countFiles(dir)
	if err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "allocate batch", "count files", err)
	}
	if count >= t.opts.MaxFilesPerBatch {
		t.logger.Info("batch full; rotating",
			logging.String(logging.FieldBatch, current.CurrentBatchName),
			logging.Int("files", count),
		)
		return t.rotateLocked(ctx, outputRoot)
	}
	return dir, nil
}

// RotateBatch starts a new batch folder and persists the counters.
func (t *Tracker) RotateBatch(ctx context.Context, outputRoot string) (string, error) {
	if err := checkOutputRoot(outputRoot); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rotateLocked(ctx, outputRoot)
}

func (t *Tracker) rotateLocked(ctx context.Context, outputRoot string) (string, error) {
	root := processedRoot(outputRoot)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "rotate batch", root, err)
	}
	day := t.opts.Now()
	next := t.store.Batch().LastBatchNumber + 1
	name := batchName(day, next)
	// Counters restart after a reset; never reuse a folder that is already on disk.
	for {
		if _, err := os.Lstat(filepath.Join(root, name)); errors.Is(err, fs.ErrNotExist) {
			break
		}
		next++
		name = batchName(day, next)
	}
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "rotate batch", dir, err)
	}
	if err := t.store.SetBatch(ctx, history.BatchInfo{LastBatchNumber: next, CurrentBatchName: name}); err != nil {
		_ = os.Remove(dir)
		return "", err
	}
	t.logger.Info("batch rotated", logging.String(logging.FieldBatch, name))
	return dir, nil
}

// MoveToBatch copies sourcePath into the current batch folder as filename
// and returns the final absolute path. The source is left in place.
func (t *Tracker) MoveToBatch(ctx context.Context, sourcePath, filename, outputRoot string) (string, error) {
	if err := checkOutputRoot(outputRoot); err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", services.Wrap(services.ErrMalformedInput, "tracker", "move", "invalid filename "+filename, nil)
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", services.Wrap(services.Classify(err), "tracker", "move", sourcePath, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	dir, err := t.allocateLocked(ctx, outputRoot)
	if err != nil {
		return "", err
	}
	if err := fileutil.EnsureWritable(dir); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "move", "batch folder", err)
	}
	if err := fileutil.EnsureCapacity(dir, info.Size()); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "move", "batch folder", err)
	}
	target := filepath.Join(dir, filename)
	if err := fileutil.CopyPreserving(ctx, sourcePath, target); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		marker := services.ErrIOFailure
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return "", services.Wrap(marker, "tracker", "move", target, err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target, nil
	}
	return abs, nil
}

// countFiles counts regular files under dir, ignoring hidden in-flight copies.
func countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		count++
		return nil
	})
	return count, err
}
