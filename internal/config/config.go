package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the locations shotpipe reads from and writes to.
type Paths struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	HistoryFile string `toml:"history_file"`
	LogDir      string `toml:"log_dir"`
}

// Processing contains scanner and worker settings.
type Processing struct {
	Recursive        bool     `toml:"recursive"`
	ExcludeProcessed bool     `toml:"exclude_processed"`
	Workers          int      `toml:"workers"`
	ImageExtensions  []string `toml:"image_extensions"`
	VideoExtensions  []string `toml:"video_extensions"`
	WatchDebounceMS  int      `toml:"watch_debounce_ms"`
}

// History contains retention settings for the processing history.
type History struct {
	MaxItems int `toml:"max_items"`
}

// Batch contains output batch folder settings.
type Batch struct {
	MaxFiles int `toml:"max_files"`
}

// Metadata contains settings for the external metadata probe.
type Metadata struct {
	Enabled        bool   `toml:"enabled"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Sink contains delivery targets for processed files.
type Sink struct {
	Manifest              bool   `toml:"manifest"`
	WebhookURL            string `toml:"webhook_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for shotpipe.
//
// Configuration sections by subsystem:
//   - Paths: input, output, history store, and log locations
//   - Processing: scan behaviour, worker count, supported extensions
//   - History: retention bound for processed-file history
//   - Batch: capacity of each output batch folder
//   - Metadata: ffprobe/image probe settings
//   - Logging: log format and level
//   - Metrics: optional Prometheus textfile export
//   - Sink: manifest and webhook delivery of processed files
type Config struct {
	Paths      Paths      `toml:"paths"`
	Processing Processing `toml:"processing"`
	History    History    `toml:"history"`
	Batch      Batch      `toml:"batch"`
	Metadata   Metadata   `toml:"metadata"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
	Sink       Sink       `toml:"sink"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	env := newEnvLookup(filepath.Dir(resolvedPath))
	if err := cfg.normalize(env); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shotpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// envLookup resolves SHOTPIPE_* overrides. Process environment wins over .env files.
type envLookup struct {
	dotenv map[string]string
}

func newEnvLookup(configDir string) envLookup {
	merged := map[string]string{}
	candidates := []string{".env"}
	if strings.TrimSpace(configDir) != "" {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		values, err := godotenv.Read(candidate)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}
	return envLookup{dotenv: merged}
}

func (e envLookup) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value), true
	}
	if value, ok := e.dotenv[key]; ok {
		return strings.TrimSpace(value), true
	}
	return "", false
}

// EnsureDirectories creates the log directory and the history file's parent.
// The output directory is created lazily by the batch allocator.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.HistoryFile) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryFile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
