package services_test

import (
	"context"
	"testing"

	"shotpipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "naming")
	ctx = services.WithSourcePath(ctx, "/in/a.png")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "naming" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if path, ok := services.SourcePathFromContext(ctx); !ok || path != "/in/a.png" {
		t.Fatalf("unexpected source path: %v %v", path, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(services.WithRunID(ctx, "")); ok {
		t.Fatal("expected no run id value")
	}
}
