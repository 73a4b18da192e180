package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies a file by extension.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// Task codes derived from Kind.
const (
	TaskImage   = "txtToImage"
	TaskVideo   = "imgToVideo"
	TaskGeneric = "comp"
)

var (
	DefaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".gif", ".bmp", ".webp", ".exr", ".dpx"}
	DefaultVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".mxf", ".m4v", ".webm"}
)

// Classifier maps file extensions to kinds. The zero value knows no
// extensions; use NewClassifier or DefaultClassifier.
type Classifier struct {
	image map[string]struct{}
	video map[string]struct{}
}

// NewClassifier builds a classifier from extension lists. Entries are
// case-insensitive and may omit the leading dot.
func NewClassifier(imageExts, videoExts []string) *Classifier {
	return &Classifier{image: extSet(imageExts), video: extSet(videoExts)}
}

// DefaultClassifier recognizes DefaultImageExtensions and DefaultVideoExtensions.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultImageExtensions, DefaultVideoExtensions)
}

func extSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		ext := strings.ToLower(strings.TrimSpace(v))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Kind returns the kind for path's extension.
func (c *Classifier) Kind(path string) Kind {
	if c == nil {
		return KindUnknown
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := c.image[ext]; ok {
		return KindImage
	}
	if _, ok := c.video[ext]; ok {
		return KindVideo
	}
	return KindUnknown
}

// Supported reports whether path has a configured image or video extension.
func (c *Classifier) Supported(path string) bool {
	return c.Kind(path) != KindUnknown
}

// TaskFor returns the default task code for a kind.
func TaskFor(kind Kind) string {
	switch kind {
	case KindImage:
		return TaskImage
	case KindVideo:
		return TaskVideo
	default:
		return TaskGeneric
	}
}
