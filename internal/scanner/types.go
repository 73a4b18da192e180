package scanner

import (
	"sort"
	"time"

	"shotpipe/internal/media"
)

// SkipReason classifies why a file was excluded.
type SkipReason string

const (
	SkipAlreadyProcessed     SkipReason = "already_processed"
	SkipUnsupportedExtension SkipReason = "unsupported_extension"
)

// FileRecord describes an eligible file. Records are not mutated after Scan returns them.
type FileRecord struct {
	Path          string     `json:"path"`
	Name          string     `json:"name"`
	Extension     string     `json:"extension"`
	SizeBytes     int64      `json:"size_bytes"`
	ModifiedTime  time.Time  `json:"modified_time"`
	Kind          media.Kind `json:"file_type"`
	SequenceGuess string     `json:"sequence_guess,omitempty"`
	ShotGuess     string     `json:"shot_guess,omitempty"`
}

// SkipEntry describes an excluded file. Detail carries the checker's reason
// text for already-processed files.
type SkipEntry struct {
	Path      string     `json:"path"`
	Name      string     `json:"name"`
	Extension string     `json:"extension"`
	SizeBytes int64      `json:"size_bytes"`
	Kind      media.Kind `json:"file_type"`
	Reason    SkipReason `json:"skip_reason"`
	Detail    string     `json:"detail,omitempty"`
}

// Result holds one scan pass.
type Result struct {
	Eligible []FileRecord `json:"eligible"`
	Skipped  []SkipEntry  `json:"skipped"`
}

// SkippedByReason filters Skipped by reason.
func (r Result) SkippedByReason(reason SkipReason) []SkipEntry {
	var out []SkipEntry
	for _, entry := range r.Skipped {
		if entry.Reason == reason {
			out = append(out, entry)
		}
	}
	return out
}

// Summary aggregates the already-processed skips.
type Summary struct {
	Count      int            `json:"count"`
	Extensions map[string]int `json:"extensions"`
	TotalBytes int64          `json:"total_size"`
	Files      []string       `json:"file_list"`
}

// ProcessedSummary reports how many already-processed files were skipped,
// grouped by extension.
func (r Result) ProcessedSummary() Summary {
	summary := Summary{Extensions: map[string]int{}}
	for _, entry := range r.SkippedByReason(SkipAlreadyProcessed) {
		summary.Count++
		summary.Extensions[entry.Extension]++
		summary.TotalBytes += entry.SizeBytes
		summary.Files = append(summary.Files, entry.Name)
	}
	sort.Strings(summary.Files)
	return summary
}
