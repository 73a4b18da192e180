package sink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"shotpipe/internal/config"
	"shotpipe/internal/logging"
)

// ProcessedFile describes one file that landed in a batch folder.
type ProcessedFile struct {
	RunID       string          `json:"run_id,omitempty"`
	SourcePath  string          `json:"source_path"`
	FinalPath   string          `json:"final_path"`
	Sequence    string          `json:"sequence"`
	Shot        string          `json:"shot"`
	Task        string          `json:"task"`
	Version     string          `json:"version"`
	Batch       string          `json:"batch"`
	ProcessedAt time.Time       `json:"processed_at"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Sink receives processed files.
type Sink interface {
	Deliver(ctx context.Context, file ProcessedFile) error
}

// New builds the sink set described by cfg. Nil cfg yields a no-op sink.
func New(cfg *config.Config, logger *slog.Logger) Sink {
	if cfg == nil {
		return Noop{}
	}
	logger = logging.NewComponentLogger(logger, "sink")
	var sinks Multi
	if cfg.Sink.Manifest {
		sinks = append(sinks, NewManifest())
	}
	if cfg.Sink.WebhookURL != "" {
		timeout := time.Duration(cfg.Sink.RequestTimeoutSeconds) * time.Second
		sinks = append(sinks, NewWebhook(cfg.Sink.WebhookURL, &http.Client{Timeout: timeout}))
	}
	switch len(sinks) {
	case 0:
		return Noop{}
	case 1:
		return sinks[0]
	}
	logger.Debug("multiple sinks configured", logging.Int("count", len(sinks)))
	return sinks
}

// Noop discards every delivery.
type Noop struct{}

func (Noop) Deliver(context.Context, ProcessedFile) error { return nil }

// Multi fans a delivery out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, file ProcessedFile) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, file); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
