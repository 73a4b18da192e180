package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shotpipe"

// Recorder holds the run counters. A nil Recorder ignores every call.
type Recorder struct {
	registry     *prometheus.Registry
	processed    prometheus.Counter
	skipped      *prometheus.CounterVec
	failed       prometheus.Counter
	bytesCopied  prometheus.Counter
	runDuration  prometheus.Gauge
	lastRunStamp prometheus.Gauge
}

// New registers the shotpipe collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files copied into a batch folder and recorded in history.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Files skipped during scanning or processing, by reason.",
		}, []string{"reason"}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Files that failed to process.",
		}),
		bytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_copied_total",
			Help:      "Bytes copied into batch folders.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
		lastRunStamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished.",
		}),
	}
	r.registry.MustRegister(r.processed, r.skipped, r.failed, r.bytesCopied, r.runDuration, r.lastRunStamp)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Processed(bytes int64) {
	if r == nil {
		return
	}
	r.processed.Inc()
	if bytes > 0 {
		r.bytesCopied.Add(float64(bytes))
	}
}

func (r *Recorder) Skipped(reason string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *Recorder) Failed() {
	if r == nil {
		return
	}
	r.failed.Inc()
}

// RunFinished records the run's duration and completion time.
func (r *Recorder) RunFinished(duration time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	r.runDuration.Set(duration.Seconds())
	r.lastRunStamp.Set(float64(finished.Unix()))
}

// WriteTextfile atomically writes the registry to path in the Prometheus
// text exposition format. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: create directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
