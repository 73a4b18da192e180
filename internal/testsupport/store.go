package testsupport

import (
	"context"
	"testing"

	"shotpipe/internal/config"
	"shotpipe/internal/tracker"
)

// MustOpenTracker opens a tracker on the config's history file and registers cleanup.
func MustOpenTracker(t testing.TB, cfg *config.Config, opts ...func(*tracker.Options)) *tracker.Tracker {
	t.Helper()

	options := tracker.Options{
		MaxFilesPerBatch: cfg.Batch.MaxFiles,
		MaxHistoryItems:  cfg.History.MaxItems,
	}
	for _, opt := range opts {
		opt(&options)
	}
	tr, err := tracker.Open(context.Background(), cfg.Paths.HistoryFile, options, nil)
	if err != nil {
		t.Fatalf("tracker.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = tr.Close()
	})
	return tr
}
