package media

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"shotpipe/internal/media/ffprobe"
	"shotpipe/internal/services"
)

func TestClassifierKinds(t *testing.T) {
	c := NewClassifier([]string{"PNG", ".exr"}, []string{"mov"})
	tests := []struct {
		path string
		want Kind
	}{
		{"/a/b/frame.PNG", KindImage},
		{"plate.exr", KindImage},
		{"clip.MOV", KindVideo},
		{"notes.txt", KindUnknown},
		{"noext", KindUnknown},
	}
	for _, tt := range tests {
		if got := c.Kind(tt.path); got != tt.want {
			t.Fatalf("Kind(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if c.Supported("notes.txt") {
		t.Fatal("txt must not be supported")
	}
}

func TestTaskFor(t *testing.T) {
	if TaskFor(KindImage) != "txtToImage" || TaskFor(KindVideo) != "imgToVideo" || TaskFor(KindUnknown) != "comp" {
		t.Fatal("unexpected task mapping")
	}
}

func TestProbeImageDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	img := imaging.New(64, 32, color.NRGBA{R: 200, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save png: %v", err)
	}

	meta, err := NewProbe(nil, ProbeOptions{}, nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if meta.FileType != KindImage || meta.Width != 64 || meta.Height != 32 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Format != "png" || meta.ProbeError != "" {
		t.Fatalf("unexpected format/error %q %q", meta.Format, meta.ProbeError)
	}
}

func TestProbeRecordsUndecodableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.exr")
	if err := os.WriteFile(path, []byte("exr"), 0o644); err != nil {
		t.Fatal(err)
	}
	meta, err := NewProbe(nil, ProbeOptions{}, nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if meta.ProbeError == "" || meta.SizeBytes != 3 {
		t.Fatalf("expected probe error with basic attributes, got %+v", meta)
	}
}

func TestProbeVideoUsesInspector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mov")
	if err := os.WriteFile(path, []byte("mov"), 0o644); err != nil {
		t.Fatal(err)
	}
	probe := NewProbe(nil, ProbeOptions{}, nil)
	probe.inspect = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "prores", Width: 2048, Height: 858, RFrameRate: "24/1"}},
			Format:  ffprobe.Format{FormatName: "mov,mp4", Duration: "2.5"},
		}, nil
	}
	meta, err := probe.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if meta.Codec != "prores" || meta.Width != 2048 || meta.FrameRate != 24 || meta.DurationSeconds != 2.5 {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	probe.inspect = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("ffprobe missing")
	}
	meta, err = probe.Extract(context.Background(), path)
	if err != nil || meta.ProbeError != "ffprobe missing" {
		t.Fatalf("expected recorded probe error, got %+v %v", meta, err)
	}
}

func TestProbeMissingFile(t *testing.T) {
	_, err := NewProbe(nil, ProbeOptions{}, nil).Extract(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

