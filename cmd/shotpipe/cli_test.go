package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotpipe/internal/config"
	"shotpipe/internal/history"
	"shotpipe/internal/pipeline"
	"shotpipe/internal/sink"
	"shotpipe/internal/testsupport"
	"shotpipe/internal/tracker"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "shotpipe", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
input_dir = %q
output_dir = %q
history_file = %q
log_dir = %q

[processing]
workers = 2

[metadata]
enabled = false

[logging]
level = "error"
`,
		cfg.Paths.InputDir,
		cfg.Paths.OutputDir,
		cfg.Paths.HistoryFile,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func (env *cliTestEnv) writeInput(t *testing.T, name string, seed byte) {
	t.Helper()
	testsupport.WritePattern(t, filepath.Join(env.cfg.Paths.InputDir, name), 512, seed)
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.InputDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}

func TestScanListsEligibleFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeInput(t, "LIG_render_c010.png", 1)
	env.writeInput(t, "notes.txt", 2)

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "LIG_render_c010.png")
	requireContains(t, out, "s01")
	requireContains(t, out, "c010")
	requireContains(t, out, "Skipped 1 unsupported")
}

func TestProcessThenScanIsIdempotent(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeInput(t, "one.png", 1)
	env.writeInput(t, "two.mov", 2)

	out, _, err := runCLI(t, []string{"process", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var summary pipeline.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected 2 processed, got %+v", summary)
	}
	batchDir := filepath.Dir(summary.Results[0].FinalPath)
	if _, err := os.Stat(filepath.Join(batchDir, sink.ManifestName)); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}

	out, _, err = runCLI(t, []string{"scan", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var scanned scanOutput
	if err := json.Unmarshal([]byte(out), &scanned); err != nil {
		t.Fatalf("decode scan: %v", err)
	}
	if len(scanned.Result.Eligible) != 0 || scanned.Processed.Count != 2 {
		t.Fatalf("expected everything already processed, got %+v", scanned)
	}

	out, _, err = runCLI(t, []string{"process"}, env.configPath)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	requireContains(t, out, "0 processed")
}

func TestProcessAppliesHints(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeInput(t, "frame.png", 1)

	out, _, err := runCLI(t, []string{"process", "--json", "--sequence", "KIAP", "--shot", "5", "--task", "paint"}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var summary pipeline.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary.Results) != 1 || filepath.Base(summary.Results[0].FinalPath) != "s02_c005_paint_v0001.png" {
		t.Fatalf("unexpected results %+v", summary.Results)
	}
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeInput(t, "one.png", 1)
	if _, _, err := runCLI(t, []string{"process"}, env.configPath); err != nil {
		t.Fatalf("process: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history stats: %v", err)
	}
	var stats tracker.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 1 || stats.ByStatus[history.StatusProcessed] != 1 || stats.BySequence["s01"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	out, _, err = runCLI(t, []string{"history", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("history stats table: %v", err)
	}
	requireContains(t, out, "Total entries: 1")

	exportPath := filepath.Join(t.TempDir(), "history.csv")
	out, _, err = runCLI(t, []string{"history", "export", exportPath}, env.configPath)
	if err != nil {
		t.Fatalf("history export: %v", err)
	}
	requireContains(t, out, "Exported 1 entries")
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("export missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"history", "reset"}, env.configPath); err == nil {
		t.Fatal("reset without --yes must fail")
	}
	out, _, err = runCLI(t, []string{"history", "reset", "--yes"}, env.configPath)
	if err != nil {
		t.Fatalf("history reset: %v", err)
	}
	requireContains(t, out, "Backed up history to "+env.cfg.Paths.HistoryFile+".backup-")
	requireContains(t, out, "Cleared 1 entries")

	out, _, err = runCLI(t, []string{"history", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("history stats after reset: %v", err)
	}
	requireContains(t, out, "Total entries: 0")
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	for i := 0; i < 3; i++ {
		env.writeInput(t, fmt.Sprintf("f%d.png", i), byte(i+1))
	}
	if _, _, err := runCLI(t, []string{"process"}, env.configPath); err != nil {
		t.Fatalf("process: %v", err)
	}
	out, _, err := runCLI(t, []string{"history", "prune", "--max", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 2 entries; 1 remain")
}

func TestBatchCurrentAndRotate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"batch", "current"}, env.configPath)
	if err != nil {
		t.Fatalf("batch current: %v", err)
	}
	requireContains(t, out, "No batch yet")

	out, _, err = runCLI(t, []string{"batch", "rotate"}, env.configPath)
	if err != nil {
		t.Fatalf("batch rotate: %v", err)
	}
	requireContains(t, out, filepath.Join(env.cfg.Paths.OutputDir, "processed", "batch_"))

	out, _, err = runCLI(t, []string{"batch", "current", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("batch current json: %v", err)
	}
	var info history.BatchInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode batch info: %v", err)
	}
	if info.LastBatchNumber != 1 || !strings.HasPrefix(info.CurrentBatchName, "batch_") {
		t.Fatalf("unexpected batch info %+v", info)
	}
}
