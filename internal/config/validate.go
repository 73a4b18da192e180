package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateExtensions(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSink(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSink() error {
	url := strings.TrimSpace(c.Sink.WebhookURL)
	if url == "" {
		return nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("sink.webhook_url: must be an http(s) URL, got %q", url)
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Batch.MaxFiles <= 0 {
		return errors.New("batch.max_files must be positive")
	}
	if c.History.MaxItems <= 0 {
		return errors.New("history.max_items must be positive")
	}
	if c.Processing.Workers <= 0 {
		return errors.New("processing.workers must be positive")
	}
	if strings.TrimSpace(c.Paths.HistoryFile) == "" {
		return errors.New("paths.history_file must be set")
	}
	return nil
}

func (c *Config) validateExtensions() error {
	images := make(map[string]struct{}, len(c.Processing.ImageExtensions))
	for _, ext := range c.Processing.ImageExtensions {
		images[ext] = struct{}{}
	}
	for _, ext := range c.Processing.VideoExtensions {
		if _, dup := images[ext]; dup {
			return fmt.Errorf("processing: extension %q listed as both image and video", ext)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
