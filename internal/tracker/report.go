package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"shotpipe/internal/services"
)

// ExportColumns is the fixed column order of ExportHistory.
var ExportColumns = []string{
	"Hash", "Original Filename", "Processed Filename",
	"Sequence", "Shot", "Task", "Version",
	"Processing Time", "Batch",
}

// DefaultExportPath returns shotpipe_history_<timestamp>.csv next to the history file.
func (t *Tracker) DefaultExportPath() string {
	name := fmt.Sprintf("shotpipe_history_%s.csv", t.opts.Now().Format("2006-01-02_15-04-05"))
	return filepath.Join(filepath.Dir(t.store.Path()), name)
}

// ExportHistory writes every entry as one CSV row, newest first. An empty
// path uses DefaultExportPath. It returns the written path.
func (t *Tracker) ExportHistory(path string) (string, error) {
	if path == "" {
		path = t.DefaultExportPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "export", "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "export", path, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := csv.NewWriter(tmp)
	_ = w.Write(ExportColumns)
	for _, entry := range t.store.Entries() {
		d := entry.Details
		processedAt := d.ProcessedAt
		if processedAt.IsZero() {
			processedAt = entry.RecordedAt
		}
		_ = w.Write([]string{
			entry.ContentHash,
			orDefault(d.OriginalFilename, filepath.Base(entry.SourcePath)),
			d.ProcessedFilename,
			d.Sequence,
			d.Shot,
			d.Task,
			d.Version,
			processedAt.UTC().Format(time.RFC3339),
			d.Batch,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return "", services.Wrap(services.ErrIOFailure, "tracker", "export", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "export", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "tracker", "export", path, err)
	}
	return path, nil
}

// Stats aggregates history counts.
type Stats struct {
	Total      int            `json:"total"`
	ByBatch    map[string]int `json:"by_batch"`
	BySequence map[string]int `json:"by_sequence"`
	ByStatus   map[string]int `json:"by_status"`
}

// Stats counts entries by batch, sequence, and status. A non-empty status
// restricts the count to entries with that status. Missing values count as
// "unknown".
func (t *Tracker) Stats(status string) Stats {
	stats := Stats{
		ByBatch:    map[string]int{},
		BySequence: map[string]int{},
		ByStatus:   map[string]int{},
	}
	for _, entry := range t.store.Entries() {
		entryStatus := orDefault(entry.Details.Status, "unknown")
		if status != "" && entryStatus != status {
			continue
		}
		stats.Total++
		stats.ByBatch[orDefault(entry.Details.Batch, "unknown")]++
		stats.BySequence[orDefault(entry.Details.Sequence, "unknown")]++
		stats.ByStatus[entryStatus]++
	}
	return stats
}

// SortedKeys returns m's keys in ascending order.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
