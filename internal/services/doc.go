// Package services defines shared utilities consumed by the pipeline
// components and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging.
//   - Structured error markers (not found, io failure, malformed input,
//     corrupt store) plus the Wrap helper so callers can tell "skipped" from
//     "failed" with errors.Is.
package services
