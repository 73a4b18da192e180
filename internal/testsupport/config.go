package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shotpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose input, output, history, and log paths
// live under a per-test temp directory. Probes are disabled by default.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.HistoryFile = filepath.Join(base, "state", "history.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Processing.Workers = 2
	cfgVal.Metadata.Enabled = false

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := os.MkdirAll(cfgVal.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}
	return builder.cfg
}

// WithBatchSize overrides the batch capacity.
func WithBatchSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.MaxFiles = n
	}
}

// WithHistoryLimit overrides the history retention bound.
func WithHistoryLimit(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.MaxItems = n
	}
}

// WithStubbedBinaries writes stub executables that print stdout and prepends
// them to PATH for the duration of the test.
func WithStubbedBinaries(stdout string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\ncat <<'JSON'\n" + stdout + "\nJSON\n")
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.cfg.Metadata.Enabled = true
		b.cfg.Metadata.FFprobeBinary = filepath.Join(binDir, "ffprobe")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
