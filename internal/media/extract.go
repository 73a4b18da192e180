package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"shotpipe/internal/logging"
	"shotpipe/internal/media/ffprobe"
	"shotpipe/internal/services"
)

// Metadata is the descriptive record attached to a processed file. The
// pipeline stores it verbatim and never inspects it.
type Metadata struct {
	FileName        string    `json:"file_name"`
	Extension       string    `json:"file_extension"`
	SizeBytes       int64     `json:"file_size"`
	ModifiedTime    time.Time `json:"modified_time"`
	FileType        Kind      `json:"file_type"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	Format          string    `json:"format,omitempty"`
	Codec           string    `json:"codec,omitempty"`
	FrameRate       float64   `json:"frame_rate,omitempty"`
	DurationSeconds float64   `json:"duration,omitempty"`
	ProbeError      string    `json:"probe_error,omitempty"`
}

// Extractor produces metadata for a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (Metadata, error)
}

// ProbeOptions configures Probe.
type ProbeOptions struct {
	FFprobeBinary string
	Timeout       time.Duration
	// DisableProbes limits extraction to filesystem attributes.
	DisableProbes bool
}

// Probe extracts metadata with imaging for stills and ffprobe for video.
// Probe failures are recorded in Metadata.ProbeError; only a missing or
// unreadable source file is returned as an error.
type Probe struct {
	classifier *Classifier
	opts       ProbeOptions
	logger     *slog.Logger
	inspect    func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// NewProbe builds a Probe. A nil classifier falls back to DefaultClassifier.
func NewProbe(classifier *Classifier, opts ProbeOptions, logger *slog.Logger) *Probe {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Probe{
		classifier: classifier,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "metadata"),
		inspect:    ffprobe.Inspect,
	}
}

// Extract implements Extractor.
func (p *Probe) Extract(ctx context.Context, path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, services.Wrap(services.Classify(err), "metadata", "stat", path, err)
	}
	meta := Metadata{
		FileName:     filepath.Base(path),
		Extension:    strings.ToLower(filepath.Ext(path)),
		SizeBytes:    info.Size(),
		ModifiedTime: info.ModTime().UTC(),
		FileType:     p.classifier.Kind(path),
	}
	if p.opts.DisableProbes {
		return meta, nil
	}

	switch meta.FileType {
	case KindImage:
		p.probeImage(path, &meta)
	case KindVideo:
		p.probeVideo(ctx, path, &meta)
	}
	if meta.ProbeError != "" {
		p.logger.Debug("metadata probe incomplete",
			logging.String(logging.FieldSourcePath, path),
			logging.String("probe_error", meta.ProbeError),
		)
	}
	return meta, nil
}

func (p *Probe) probeImage(path string, meta *Metadata) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		meta.ProbeError = "no decoder for " + meta.Extension
		return
	}
	meta.Format = strings.ToLower(format.String())
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		meta.ProbeError = err.Error()
		return
	}
	bounds := img.Bounds()
	meta.Width = bounds.Dx()
	meta.Height = bounds.Dy()
}

func (p *Probe) probeVideo(ctx context.Context, path string, meta *Metadata) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	result, err := p.inspect(ctx, p.opts.FFprobeBinary, path)
	if err != nil {
		meta.ProbeError = err.Error()
		return
	}
	meta.Format = result.Format.FormatName
	if d := result.DurationSeconds(); d > 0 {
		meta.DurationSeconds = d
	}
	if stream, ok := result.VideoStream(); ok {
		meta.Width = stream.Width
		meta.Height = stream.Height
		meta.Codec = stream.CodecName
		meta.FrameRate = stream.FrameRate()
	}
}
