package history

import (
	"encoding/json"
	"time"
)

// Status values recorded in Details.Status.
const (
	StatusProcessed = "processed"
	StatusUploaded  = "uploaded"
	StatusFailed    = "failed"
)

// Details is the result payload attached to a history entry. Extra carries
// collaborator-specific data (for example extracted metadata) verbatim.
type Details struct {
	OriginalFilename  string          `json:"original_filename,omitempty"`
	ProcessedFilename string          `json:"processed_filename,omitempty"`
	ProcessedPath     string          `json:"processed_path,omitempty"`
	Sequence          string          `json:"sequence,omitempty"`
	Shot              string          `json:"shot,omitempty"`
	Task              string          `json:"task,omitempty"`
	Version           string          `json:"version,omitempty"`
	Batch             string          `json:"batch,omitempty"`
	Status            string          `json:"status,omitempty"`
	ProcessedAt       time.Time       `json:"processed_at,omitzero"`
	Extra             json.RawMessage `json:"extra,omitempty"`
}

// Entry is one persisted history record keyed by SourcePath.
type Entry struct {
	SourcePath   string
	SizeBytes    int64
	ModifiedTime time.Time
	ContentHash  string
	Details      Details
	RecordedAt   time.Time
}

// BatchInfo holds the batch rotation counters.
type BatchInfo struct {
	LastBatchNumber  int
	CurrentBatchName string
}
