package fileutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyPreservingKeepsContentAndMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "out", "dst.png")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("frame bytes")
	if err := os.WriteFile(src, content, 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := CopyPreserving(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyPreserving failed: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime not preserved: got %v want %v", info.ModTime(), mtime)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode not preserved: %v", info.Mode().Perm())
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must remain: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(dst), ".*tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("temporary files left behind: %v", matches)
	}
}

func TestCopyPreservingRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := CopyPreserving(context.Background(), src, dst)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected ErrExist, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Fatalf("existing file clobbered: %q", got)
	}
}

func TestCopyPreservingMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyPreserving(context.Background(), filepath.Join(dir, "gone"), filepath.Join(dir, "dst"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestEnsureCapacity(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureCapacity(dir, 1); err != nil {
		t.Fatalf("EnsureCapacity(1 byte) failed: %v", err)
	}
	if err := EnsureCapacity(dir, 1<<62); !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("expected ErrInsufficientSpace, got %v", err)
	}
}

func TestEnsureWritable(t *testing.T) {
	if err := EnsureWritable(t.TempDir()); err != nil {
		t.Fatalf("EnsureWritable failed: %v", err)
	}
	if err := EnsureWritable(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
