package naming

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"shotpipe/internal/logging"
	"shotpipe/internal/media"
	"shotpipe/internal/services"
)

// outputPattern matches a pipeline name at the start of a stem. Trailing
// text after the version, such as a suffix added by a later tool, is allowed.
var outputPattern = regexp.MustCompile(`^([a-zA-Z0-9]+)_c([0-9]+)_([a-zA-Z0-9]+)_v([0-9]+)`)

// VersionTuple is the identity embedded in an output filename.
type VersionTuple struct {
	Sequence string `json:"sequence"`
	Shot     string `json:"shot"`
	Task     string `json:"task"`
	Version  string `json:"version"`
}

// Base returns sequence_shot_task_version without an extension.
func (v VersionTuple) Base() string {
	return strings.Join([]string{v.Sequence, v.Shot, v.Task, v.Version}, "_")
}

func (v VersionTuple) prefix() string {
	return strings.Join([]string{v.Sequence, v.Shot, v.Task}, "_") + "_v"
}

// FileInfo describes a file to be named. Hints are optional.
type FileInfo struct {
	SourcePath     string
	SequenceHint   string
	ShotHint       string
	TaskHint       string
	PreviousOutput string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Tuple       VersionTuple
	FinalPath   string
	Filename    string
	Reprocessed bool
}

// ParseName parses a filename (with or without extension) that starts with
// <sequence>_c<shot>_<task>_v<version>.
func ParseName(name string) (VersionTuple, bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := outputPattern.FindStringSubmatch(norm.NFC.String(stem))
	if m == nil {
		return VersionTuple{}, false
	}
	return VersionTuple{
		Sequence: m[1],
		Shot:     formatNumber("c", m[2], 3),
		Task:     m[3],
		Version:  formatVersion(parseDigits(m[4])),
	}, true
}

// VersionNumber returns the numeric part of a vNNNN string.
func VersionNumber(version string) int {
	return parseDigits(strings.TrimPrefix(strings.ToLower(version), "v"))
}

func parseDigits(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatVersion(n int) string {
	return fmt.Sprintf("v%04d", n)
}

// Resolver computes collision-free output names.
type Resolver struct {
	classifier *media.Classifier
	logger     *slog.Logger
}

// NewResolver builds a Resolver. A nil classifier uses media.DefaultClassifier.
func NewResolver(classifier *media.Classifier, logger *slog.Logger) *Resolver {
	if classifier == nil {
		classifier = media.DefaultClassifier()
	}
	return &Resolver{classifier: classifier, logger: logging.NewComponentLogger(logger, "naming")}
}

// Resolve assigns a VersionTuple and final path under outputDir, creating
// outputDir when missing.
func (r *Resolver) Resolve(info FileInfo, outputDir string) (Resolution, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Resolution{}, services.Wrap(services.ErrIOFailure, "naming", "resolve", "create output directory", err)
	}

	source := info.SourcePath
	ext := filepath.Ext(source)
	own, ownOK := ParseName(source)

	// Hints left empty inherit from a source that already carries a pipeline name.
	sequenceHint, shotHint, taskHint := info.SequenceHint, info.ShotHint, info.TaskHint
	if ownOK {
		if strings.TrimSpace(sequenceHint) == "" {
			sequenceHint = own.Sequence
		}
		if strings.TrimSpace(shotHint) == "" {
			shotHint = own.Shot
		}
	}
	tuple := VersionTuple{
		Sequence: NormalizeSequence(sequenceHint),
		Shot:     NormalizeShot(shotHint),
	}
	if ownOK && strings.TrimSpace(taskHint) == "" {
		tuple.Task = own.Task
	} else {
		tuple.Task = NormalizeTask(taskHint, r.classifier.Kind(source))
	}

	reprocessed := false
	if prev, ok := ParseName(info.PreviousOutput); ok {
		reprocessed = true
		tuple.Version = formatVersion(VersionNumber(prev.Version) + 1)
	} else if ownOK {
		reprocessed = true
		tuple.Version = formatVersion(VersionNumber(own.Version) + 1)
	} else {
		tuple.Version = formatVersion(r.highestVersion(outputDir, tuple) + 1)
	}

	filename := tuple.Base() + ext
	target := filepath.Join(outputDir, filename)
	if existing, err := os.Stat(target); err == nil && !sameFile(existing, source) {
		next := max(VersionNumber(tuple.Version), r.highestVersion(outputDir, tuple)) + 1
		r.logger.Info("version collision; advancing",
			logging.String("existing", filename),
			logging.String("version", formatVersion(next)),
		)
		tuple.Version = formatVersion(next)
		filename = tuple.Base() + ext
		target = filepath.Join(outputDir, filename)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return Resolution{}, services.Wrap(services.ErrIOFailure, "naming", "resolve", "absolute path", err)
	}
	return Resolution{Tuple: tuple, FinalPath: absTarget, Filename: filename, Reprocessed: reprocessed}, nil
}

// NextVersion scans dir for sequence_shot_task_v<N>.* and returns the next
// version string. A missing directory yields v0001.
func (r *Resolver) NextVersion(dir string, tuple VersionTuple) string {
	return formatVersion(r.highestVersion(dir, tuple) + 1)
}

func (r *Resolver) highestVersion(dir string, tuple VersionTuple) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Debug("version scan failed", logging.String("dir", dir), logging.Error(err))
		}
		return 0
	}
	prefix := tuple.prefix()
	highest := 0
	for _, entry := range entries {
		name := norm.NFC.String(entry.Name())
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		parsed, ok := ParseName(name)
		if !ok || parsed.Sequence != tuple.Sequence || parsed.Shot != tuple.Shot || parsed.Task != tuple.Task {
			continue
		}
		highest = max(highest, VersionNumber(parsed.Version))
	}
	return highest
}

func sameFile(existing os.FileInfo, sourcePath string) bool {
	src, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return os.SameFile(existing, src)
}
