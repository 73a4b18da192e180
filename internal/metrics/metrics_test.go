package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func gatheredValue(t *testing.T, r *Recorder, name, label string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" {
				matched := false
				for _, lp := range m.GetLabel() {
					if lp.GetValue() == label {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Processed(100)
	r.Processed(50)
	r.Skipped("already_processed")
	r.Skipped("already_processed")
	r.Skipped("unsupported_extension")
	r.Failed()
	r.RunFinished(1500*time.Millisecond, time.Unix(1700000000, 0))

	checks := []struct {
		name  string
		label string
		want  float64
	}{
		{"shotpipe_files_processed_total", "", 2},
		{"shotpipe_bytes_copied_total", "", 150},
		{"shotpipe_files_skipped_total", "already_processed", 2},
		{"shotpipe_files_skipped_total", "unsupported_extension", 1},
		{"shotpipe_files_failed_total", "", 1},
		{"shotpipe_last_run_duration_seconds", "", 1.5},
		{"shotpipe_last_run_timestamp_seconds", "", 1700000000},
	}
	for _, c := range checks {
		if got := gatheredValue(t, r, c.name, c.label); got != c.want {
			t.Fatalf("%s{%s} = %v, want %v", c.name, c.label, got, c.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Processed(10)
	path := filepath.Join(t.TempDir(), "collector", "shotpipe.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "shotpipe_files_processed_total 1") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Processed(1)
	r.Skipped("x")
	r.Failed()
	r.RunFinished(time.Second, time.Now())
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil recorder write returned %v", err)
	}
}
