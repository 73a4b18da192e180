package ffprobe

import (
	"math"
	"testing"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio"},
    {"index": 1, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "r_frame_rate": "24000/1001", "duration": "4.004"}
  ],
  "format": {"filename": "clip.mov", "nb_streams": 2, "format_name": "mov,mp4", "duration": "4.010", "size": "1000"}
}`

func TestParseAndHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	video, ok := result.VideoStream()
	if !ok || video.CodecName != "h264" || video.Width != 1920 {
		t.Fatalf("unexpected video stream %+v", video)
	}
	if rate := video.FrameRate(); math.Abs(rate-23.976) > 0.001 {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	if got := result.DurationSeconds(); got != 4.010 {
		t.Fatalf("unexpected duration %v", got)
	}
}

func TestHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN duration, got %v", result.DurationSeconds())
	}
	if rate := (Stream{RFrameRate: "0/0"}).FrameRate(); rate != 0 {
		t.Fatalf("expected unknown rate, got %v", rate)
	}
	if rate := (Stream{RFrameRate: "25"}).FrameRate(); rate != 25 {
		t.Fatalf("expected plain rate, got %v", rate)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
