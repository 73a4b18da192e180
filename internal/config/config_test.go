package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shotpipe/internal/config"
)

func TestLoadDefaultConfigWhenMissing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config to be reported missing")
	}
	if want := filepath.Join(home, ".config", "shotpipe", "config.toml"); path != want {
		t.Fatalf("unexpected resolved path: got %q want %q", path, want)
	}
	if want := filepath.Join(home, ".local", "share", "shotpipe", "history.db"); cfg.Paths.HistoryFile != want {
		t.Fatalf("unexpected history file: %q", cfg.Paths.HistoryFile)
	}
	if cfg.Batch.MaxFiles != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.Batch.MaxFiles)
	}
	if cfg.History.MaxItems != 5000 {
		t.Fatalf("expected default history bound 5000, got %d", cfg.History.MaxItems)
	}
	if cfg.Processing.Workers < 1 || cfg.Processing.Workers > 8 || cfg.Processing.Workers > runtime.NumCPU() {
		t.Fatalf("unexpected default workers %d", cfg.Processing.Workers)
	}
	if len(cfg.Processing.ImageExtensions) == 0 || len(cfg.Processing.VideoExtensions) == 0 {
		t.Fatal("expected default extension sets")
	}
}

func TestLoadCustomPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	payload := struct {
		Paths struct {
			InputDir  string `toml:"input_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Batch struct {
			MaxFiles int `toml:"max_files"`
		} `toml:"batch"`
		Processing struct {
			ImageExtensions []string `toml:"image_extensions"`
		} `toml:"processing"`
	}{}
	payload.Paths.InputDir = "~/incoming"
	payload.Paths.OutputDir = "~/out"
	payload.Batch.MaxFiles = 12
	payload.Processing.ImageExtensions = []string{"PNG", ".Exr", "png"}

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	cfgPath := filepath.Join(t.TempDir(), "shotpipe.toml")
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.InputDir != filepath.Join(home, "incoming") {
		t.Fatalf("unexpected input dir %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Batch.MaxFiles != 12 {
		t.Fatalf("expected batch size 12, got %d", cfg.Batch.MaxFiles)
	}
	got := cfg.Processing.ImageExtensions
	if len(got) != 2 || got[0] != ".png" || got[1] != ".exr" {
		t.Fatalf("unexpected normalized extensions %v", got)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHOTPIPE_OUTPUT_DIR", "/tmp/shotpipe-out")
	t.Setenv("SHOTPIPE_LOG_LEVEL", "DEBUG")
	t.Setenv("SHOTPIPE_WORKERS", "3")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != "/tmp/shotpipe-out" {
		t.Fatalf("expected env override for output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override for log level, got %q", cfg.Logging.Level)
	}
	if cfg.Processing.Workers != 3 {
		t.Fatalf("expected env override for workers, got %d", cfg.Processing.Workers)
	}
}

func TestDotenvOverridesNextToConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHOTPIPE_INPUT_DIR=/srv/drop\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(filepath.Join(dir, "shotpipe.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.InputDir != "/srv/drop" {
		t.Fatalf("expected .env override, got %q", cfg.Paths.InputDir)
	}
	if _, set := os.LookupEnv("SHOTPIPE_INPUT_DIR"); set {
		t.Fatal(".env values must not leak into the process environment")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if cfg.Batch.MaxFiles != 100 {
		t.Fatalf("unexpected sample batch size %d", cfg.Batch.MaxFiles)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero batch", func(c *config.Config) { c.Batch.MaxFiles = 0 }},
		{"negative history", func(c *config.Config) { c.History.MaxItems = -1 }},
		{"overlap", func(c *config.Config) { c.Processing.VideoExtensions = append(c.Processing.VideoExtensions, ".png") }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"webhook scheme", func(c *config.Config) { c.Sink.WebhookURL = "ftp://example.com/hook" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.HistoryFile = "/tmp/history.db"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.HistoryFile = filepath.Join(base, "state", "history.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Paths.HistoryFile)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
