package deps

import (
	"os"
	"path/filepath"
	"testing"

	"shotpipe/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	results := CheckBinaries([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Empty", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected status for present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for empty command: %#v", results[2])
	}
}

func TestRequirementsFollowMetadataSetting(t *testing.T) {
	cfg := config.Default()
	if reqs := Requirements(&cfg); len(reqs) != 1 || reqs[0].Command != "ffprobe" || !reqs[0].Optional {
		t.Fatalf("unexpected requirements %+v", reqs)
	}
	cfg.Metadata.Enabled = false
	if reqs := Requirements(&cfg); len(reqs) != 0 {
		t.Fatalf("expected no requirements with metadata disabled, got %+v", reqs)
	}
}
