package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

func (c *Config) normalize(env envLookup) error {
	c.applyEnv(env)
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProcessing()
	c.normalizeMetadata()
	c.normalizeLogging()
	c.normalizeSink()
	return nil
}

func (c *Config) applyEnv(env envLookup) {
	if value, ok := env.lookup("SHOTPIPE_INPUT_DIR"); ok && value != "" {
		c.Paths.InputDir = value
	}
	if value, ok := env.lookup("SHOTPIPE_OUTPUT_DIR"); ok && value != "" {
		c.Paths.OutputDir = value
	}
	if value, ok := env.lookup("SHOTPIPE_HISTORY_FILE"); ok && value != "" {
		c.Paths.HistoryFile = value
	}
	if value, ok := env.lookup("SHOTPIPE_WEBHOOK_URL"); ok && value != "" {
		c.Sink.WebhookURL = value
	}
	if value, ok := env.lookup("SHOTPIPE_LOG_LEVEL"); ok && value != "" {
		c.Logging.Level = value
	}
	if value, ok := env.lookup("SHOTPIPE_WORKERS"); ok {
		if n, err := strconv.Atoi(value); err == nil {
			c.Processing.Workers = n
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryFile) == "" {
		c.Paths.HistoryFile = defaultHistoryFile
	}
	if c.Paths.HistoryFile, err = expandPath(c.Paths.HistoryFile); err != nil {
		return fmt.Errorf("paths.history_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeProcessing() {
	if c.Processing.Workers <= 0 {
		c.Processing.Workers = defaultWorkers()
	}
	if c.Processing.WatchDebounceMS <= 0 {
		c.Processing.WatchDebounceMS = defaultWatchDebounce
	}
	c.Processing.ImageExtensions = normalizeExtensions(c.Processing.ImageExtensions, defaultImageExtensions)
	c.Processing.VideoExtensions = normalizeExtensions(c.Processing.VideoExtensions, defaultVideoExtensions)
}

func (c *Config) normalizeMetadata() {
	c.Metadata.FFprobeBinary = strings.TrimSpace(c.Metadata.FFprobeBinary)
	if c.Metadata.FFprobeBinary == "" {
		c.Metadata.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Metadata.TimeoutSeconds <= 0 {
		c.Metadata.TimeoutSeconds = defaultProbeTimeout
	}
}

func (c *Config) normalizeSink() {
	c.Sink.WebhookURL = strings.TrimSpace(c.Sink.WebhookURL)
	if c.Sink.RequestTimeoutSeconds <= 0 {
		c.Sink.RequestTimeoutSeconds = defaultSinkTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeExtensions lowercases, dot-prefixes, and deduplicates extensions.
func normalizeExtensions(values []string, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(norm.NFC.String(value)))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
