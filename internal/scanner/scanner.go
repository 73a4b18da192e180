package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"shotpipe/internal/logging"
	"shotpipe/internal/media"
)

// ProcessedChecker answers whether a file was handled before. It must not
// fail: unknown files report false.
type ProcessedChecker interface {
	IsProcessed(ctx context.Context, path string) (bool, string)
}

// Options controls a scan pass.
type Options struct {
	Recursive        bool
	ExcludeProcessed bool
	// Workers bounds concurrent processed checks. Values below 1 mean 1.
	Workers int
}

// Scanner enumerates candidate files.
type Scanner struct {
	classifier *media.Classifier
	checker    ProcessedChecker
	logger     *slog.Logger
}

// New builds a Scanner. checker may be nil when ExcludeProcessed is never used.
func New(classifier *media.Classifier, checker ProcessedChecker, logger *slog.Logger) *Scanner {
	if classifier == nil {
		classifier = media.DefaultClassifier()
	}
	return &Scanner{
		classifier: classifier,
		checker:    checker,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
}

type candidate struct {
	record    FileRecord
	processed bool
	reason    string
}

// Scan enumerates dir. Entries appear in walk order. The only error returned
// is the context's when the scan is cancelled.
func (s *Scanner) Scan(ctx context.Context, dir string, opts Options) (Result, error) {
	var result Result
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Info("scan directory unavailable; nothing to do", logging.String("dir", dir))
		return result, nil
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		root = dir
	}

	var candidates []*candidate
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable subtrees are skipped; a vanished entry is not a failure.
			if d != nil && d.IsDir() && path != root {
				s.logger.Debug("skipping unreadable directory", logging.String("dir", path), logging.Error(err))
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		kind := s.classifier.Kind(path)
		record := FileRecord{
			Path:         path,
			Name:         d.Name(),
			Extension:    strings.ToLower(filepath.Ext(path)),
			SizeBytes:    fi.Size(),
			ModifiedTime: fi.ModTime(),
			Kind:         kind,
		}
		if kind == media.KindUnknown {
			result.Skipped = append(result.Skipped, skipFrom(record, SkipUnsupportedExtension, ""))
			return nil
		}
		record.SequenceGuess = guessSequence(path, root)
		record.ShotGuess = guessShot(path)
		candidates = append(candidates, &candidate{record: record})
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return Result{}, walkErr
		}
		s.logger.Debug("walk ended early", logging.Error(walkErr))
	}

	if opts.ExcludeProcessed && s.checker != nil {
		if err := s.checkProcessed(ctx, candidates, opts.Workers); err != nil {
			return Result{}, err
		}
	}

	for _, c := range candidates {
		if c.processed {
			result.Skipped = append(result.Skipped, skipFrom(c.record, SkipAlreadyProcessed, c.reason))
			continue
		}
		result.Eligible = append(result.Eligible, c.record)
	}
	s.logger.Info("scan complete",
		logging.String("dir", root),
		logging.Int("eligible", len(result.Eligible)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *Scanner) checkProcessed(ctx context.Context, candidates []*candidate, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for _, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.processed, c.reason = s.checker.IsProcessed(gctx, c.record.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func skipFrom(record FileRecord, reason SkipReason, detail string) SkipEntry {
	return SkipEntry{
		Path:      record.Path,
		Name:      record.Name,
		Extension: record.Extension,
		SizeBytes: record.SizeBytes,
		Kind:      record.Kind,
		Reason:    reason,
		Detail:    detail,
	}
}
