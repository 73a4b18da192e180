package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"shotpipe/internal/logging"
)

// DefaultDebounce is the quiet period Watch waits for before running.
const DefaultDebounce = 750 * time.Millisecond

// Watch runs once immediately and again each time the input directory has
// been quiet for debounce after a create, write, or rename. onRun receives
// every run's outcome. Watch returns nil when ctx is cancelled.
func (r *Runner) Watch(ctx context.Context, opts Options, debounce time.Duration, onRun func(Summary, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := r.addWatchDirs(watcher, opts.InputDir, opts.Scan.Recursive); err != nil {
		return err
	}

	run := func() {
		summary, err := r.Run(ctx, opts)
		if errors.Is(err, ErrLocked) {
			logging.WarnWithContext(r.logger, "watch run skipped; output root busy", "watch_locked",
				logging.String("output_dir", opts.OutputDir),
				logging.String(logging.FieldImpact, "changes are picked up on the next event"),
			)
		}
		if onRun != nil {
			onRun(summary, err)
		}
	}
	run()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	r.logger.Info("watching for new files", logging.String("input_dir", opts.InputDir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && opts.Scan.Recursive {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := r.addWatchDirs(watcher, event.Name, true); err != nil {
						r.logger.Debug("watch new directory failed", logging.String("path", event.Name), logging.Error(err))
					}
				}
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(r.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some changes may be missed until the next event"),
			)
		case <-timer.C:
			run()
		}
	}
}

func (r *Runner) addWatchDirs(watcher *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
