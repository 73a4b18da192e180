package config

import "runtime"

const (
	defaultConfigPath     = "~/.config/shotpipe/config.toml"
	defaultHistoryFile    = "~/.local/share/shotpipe/history.db"
	defaultLogDir         = "~/.local/share/shotpipe/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultMaxFiles       = 100
	defaultMaxHistory     = 5000
	defaultMaxWorkers     = 8
	defaultWatchDebounce  = 750
	defaultFFprobeBinary  = "ffprobe"
	defaultProbeTimeout   = 30
	defaultMetricsPattern = ""
	defaultSinkTimeout    = 10
)

var (
	defaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".gif", ".bmp", ".webp", ".exr", ".dpx"}
	defaultVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".mxf", ".m4v", ".webm"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			HistoryFile: defaultHistoryFile,
			LogDir:      defaultLogDir,
		},
		Processing: Processing{
			Recursive:        true,
			ExcludeProcessed: true,
			Workers:          defaultWorkers(),
			ImageExtensions:  append([]string(nil), defaultImageExtensions...),
			VideoExtensions:  append([]string(nil), defaultVideoExtensions...),
			WatchDebounceMS:  defaultWatchDebounce,
		},
		History: History{
			MaxItems: defaultMaxHistory,
		},
		Batch: Batch{
			MaxFiles: defaultMaxFiles,
		},
		Metadata: Metadata{
			Enabled:        true,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			TextfilePath: defaultMetricsPattern,
		},
		Sink: Sink{
			Manifest:              true,
			RequestTimeoutSeconds: defaultSinkTimeout,
		},
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > defaultMaxWorkers {
		return defaultMaxWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}
