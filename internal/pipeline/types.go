package pipeline

import (
	"errors"
	"time"

	"shotpipe/internal/naming"
	"shotpipe/internal/scanner"
)

// ErrLocked reports that another run holds the output root.
var ErrLocked = errors.New("output root is locked by another shotpipe run")

// Status is the per-file outcome.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Skip reasons beyond those the scanner reports.
const (
	SkipVanished       = "source_vanished"
	SkipDuplicateInRun = "duplicate_in_run"
)

// FileResult describes one file the writer handled.
type FileResult struct {
	SourcePath  string              `json:"source_path"`
	FinalPath   string              `json:"final_path,omitempty"`
	Tuple       naming.VersionTuple `json:"version,omitzero"`
	Batch       string              `json:"batch,omitempty"`
	SizeBytes   int64               `json:"size_bytes"`
	Status      Status              `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	Detail      string              `json:"detail,omitempty"`
	Reprocessed bool                `json:"reprocessed,omitempty"`
	Err         error               `json:"-"`
	Error       string              `json:"error,omitempty"`
	SinkError   string              `json:"sink_error,omitempty"`
}

// Hints override the sequence, shot, and task of every file in a run. Empty
// fields fall back to the scanner's guesses and then to defaults.
type Hints struct {
	Sequence string
	Shot     string
	Task     string
}

// Options configures one run.
type Options struct {
	InputDir  string
	OutputDir string
	Scan      scanner.Options
	Hints     Hints
	// OnProgress is called on the writer after each file with the number
	// handled so far and the number eligible.
	OnProgress func(current, total int)
	// OnFileResult is called on the writer once per eligible file.
	OnFileResult func(FileResult)
}

// Summary is the outcome of a run.
type Summary struct {
	RunID       string              `json:"run_id"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
	Eligible    int                 `json:"eligible"`
	Processed   int                 `json:"processed"`
	Skipped     int                 `json:"skipped"`
	Failed      int                 `json:"failed"`
	BytesCopied int64               `json:"bytes_copied"`
	Results     []FileResult        `json:"results"`
	ScanSkipped []scanner.SkipEntry `json:"scan_skipped"`
}

func (s *Summary) add(result FileResult) {
	switch result.Status {
	case StatusProcessed:
		s.Processed++
		s.BytesCopied += result.SizeBytes
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
	s.Results = append(s.Results, result)
}
