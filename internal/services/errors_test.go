package services_test

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"shotpipe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrIOFailure, "tracker", "move", "copy failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrIOFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"tracker", "move", "copy failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToIOFailure(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrIOFailure) {
		t.Fatalf("expected io failure marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "operation failed") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	missing := fmt.Errorf("stat: %w", fs.ErrNotExist)
	if got := services.Classify(missing); got != services.ErrNotFound {
		t.Fatalf("expected not found, got %v", got)
	}
	if got := services.Classify(fs.ErrPermission); got != services.ErrIOFailure {
		t.Fatalf("expected io failure, got %v", got)
	}
	if services.Classify(nil) != nil {
		t.Fatal("expected nil classification for nil error")
	}
	if !services.IsSkippable(missing) {
		t.Fatal("expected missing file to be skippable")
	}
	if services.IsSkippable(services.Wrap(services.ErrIOFailure, "tracker", "persist", "", nil)) {
		t.Fatal("io failures must surface")
	}
}
