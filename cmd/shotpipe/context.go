package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"shotpipe/internal/config"
	"shotpipe/internal/logging"
	"shotpipe/internal/media"
	"shotpipe/internal/metrics"
	"shotpipe/internal/pipeline"
	"shotpipe/internal/sink"
	"shotpipe/internal/tracker"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withTracker opens the history for the duration of fn.
func (c *commandContext) withTracker(cmd *cobra.Command, fn func(*config.Config, *tracker.Tracker) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	tr, err := tracker.Open(cmd.Context(), cfg.Paths.HistoryFile, tracker.Options{
		MaxFilesPerBatch: cfg.Batch.MaxFiles,
		MaxHistoryItems:  cfg.History.MaxItems,
	}, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer tr.Close()
	return fn(cfg, tr)
}

func (c *commandContext) newRunner(cfg *config.Config, tr *tracker.Tracker) (*pipeline.Runner, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	classifier := media.NewClassifier(cfg.Processing.ImageExtensions, cfg.Processing.VideoExtensions)
	probe := media.NewProbe(classifier, media.ProbeOptions{
		FFprobeBinary: cfg.Metadata.FFprobeBinary,
		Timeout:       time.Duration(cfg.Metadata.TimeoutSeconds) * time.Second,
		DisableProbes: !cfg.Metadata.Enabled,
	}, logger)
	var recorder *metrics.Recorder
	if cfg.Metrics.TextfilePath != "" {
		recorder = metrics.New()
	}
	return pipeline.New(pipeline.Dependencies{
		Tracker:     tr,
		Classifier:  classifier,
		Extractor:   probe,
		Sink:        sink.New(cfg, logger),
		Metrics:     recorder,
		MetricsPath: cfg.Metrics.TextfilePath,
		Workers:     cfg.Processing.Workers,
	}, logger)
}

// inputDir returns the first argument or the configured input directory.
func inputDir(cfg *config.Config, args []string) (string, error) {
	dir := cfg.Paths.InputDir
	if len(args) > 0 {
		dir = args[0]
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("no input directory: pass one or set paths.input_dir")
	}
	return config.ExpandPath(dir)
}

func outputDir(cfg *config.Config, flag string) (string, error) {
	dir := cfg.Paths.OutputDir
	if strings.TrimSpace(flag) != "" {
		dir = flag
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("no output directory: pass --output or set paths.output_dir")
	}
	return config.ExpandPath(dir)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
