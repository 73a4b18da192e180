// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs the binary; Parse decodes a captured report. Helpers on
// Result and Stream expose the first video stream, duration, and frame rate.
package ffprobe
