// Package logging assembles structured slog loggers for shotpipe.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag log lines with the run ID, stage, and source path
// carried on a context. A no-op logger is provided for tests and for
// components constructed without one.
package logging
