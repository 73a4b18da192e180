package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"shotpipe/internal/media"
	"shotpipe/internal/scanner"
)

type fakeChecker struct {
	mu        sync.Mutex
	processed map[string]string
	calls     int
}

func (f *fakeChecker) IsProcessed(_ context.Context, path string) (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	reason, ok := f.processed[filepath.Base(path)]
	return ok, reason
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func names(records []scanner.FileRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	sort.Strings(out)
	return out
}

func TestScanClassifiesEntries(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.png", "b.MOV", "notes.txt", "done.jpg", "sub/c.exr")
	checker := &fakeChecker{processed: map[string]string{"done.jpg": "content matches /old/done.jpg"}}

	res, err := scanner.New(nil, checker, nil).Scan(context.Background(), root, scanner.Options{ExcludeProcessed: true, Workers: 4})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := strings.Join(names(res.Eligible), ","); got != "a.png,b.MOV" {
		t.Fatalf("unexpected eligible set %q", got)
	}
	unsupported := res.SkippedByReason(scanner.SkipUnsupportedExtension)
	if len(unsupported) != 1 || unsupported[0].Name != "notes.txt" || unsupported[0].Kind != media.KindUnknown {
		t.Fatalf("unexpected unsupported skips %+v", unsupported)
	}
	processed := res.SkippedByReason(scanner.SkipAlreadyProcessed)
	if len(processed) != 1 || processed[0].Name != "done.jpg" || processed[0].Detail == "" {
		t.Fatalf("unexpected processed skips %+v", processed)
	}
	for _, r := range res.Eligible {
		if r.Name == "b.MOV" && (r.Kind != media.KindVideo || r.Extension != ".mov") {
			t.Fatalf("unexpected video record %+v", r)
		}
	}
}

func TestScanRecursive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.png", "deep/er/b.png")

	res, err := scanner.New(nil, nil, nil).Scan(context.Background(), root, scanner.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := strings.Join(names(res.Eligible), ","); got != "a.png,b.png" {
		t.Fatalf("unexpected eligible set %q", got)
	}
}

func TestScanWithoutExclusionSkipsChecker(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.png")
	checker := &fakeChecker{processed: map[string]string{"a.png": "x"}}

	res, err := scanner.New(nil, checker, nil).Scan(context.Background(), root, scanner.Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Eligible) != 1 || checker.calls != 0 {
		t.Fatalf("expected checker unused, eligible=%d calls=%d", len(res.Eligible), checker.calls)
	}
}

func TestScanMissingDirectoryIsEmpty(t *testing.T) {
	res, err := scanner.New(nil, nil, nil).Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), scanner.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(res.Eligible) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}

	file := filepath.Join(t.TempDir(), "file.png")
	writeFiles(t, filepath.Dir(file), "file.png")
	res, err = scanner.New(nil, nil, nil).Scan(context.Background(), file, scanner.Options{})
	if err != nil || len(res.Eligible) != 0 {
		t.Fatalf("expected empty result for a file path, got %+v %v", res, err)
	}
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scanner.New(nil, nil, nil).Scan(ctx, root, scanner.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScanGuessesSequenceAndShot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "KIAP/render_c12.png", "misc/s04_take.png", "LIG_KIAP_c3.mov", "plain.png")

	res, err := scanner.New(nil, nil, nil).Scan(context.Background(), root, scanner.Options{Recursive: true})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := map[string][2]string{
		"render_c12.png":  {"s02", "c012"},
		"s04_take.png":    {"s04", ""},
		"LIG_KIAP_c3.mov": {"s03", "c003"},
		"plain.png":       {"", ""},
	}
	for _, r := range res.Eligible {
		w := want[r.Name]
		if r.SequenceGuess != w[0] || r.ShotGuess != w[1] {
			t.Fatalf("%s: got sequence %q shot %q, want %q %q", r.Name, r.SequenceGuess, r.ShotGuess, w[0], w[1])
		}
	}
}

func TestProcessedSummary(t *testing.T) {
	res := scanner.Result{Skipped: []scanner.SkipEntry{
		{Name: "b.png", Extension: ".png", SizeBytes: 10, Reason: scanner.SkipAlreadyProcessed},
		{Name: "a.mov", Extension: ".mov", SizeBytes: 5, Reason: scanner.SkipAlreadyProcessed},
		{Name: "x.txt", Extension: ".txt", SizeBytes: 1, Reason: scanner.SkipUnsupportedExtension},
	}}
	summary := res.ProcessedSummary()
	if summary.Count != 2 || summary.TotalBytes != 15 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Extensions[".png"] != 1 || summary.Extensions[".mov"] != 1 {
		t.Fatalf("unexpected extension counts %v", summary.Extensions)
	}
	if strings.Join(summary.Files, ",") != "a.mov,b.png" {
		t.Fatalf("unexpected file list %v", summary.Files)
	}
}
