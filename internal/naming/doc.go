// Package naming assigns sequence_shot_task_version names to ingested files.
//
// Hints are normalized with fixed fallback rules and never rejected. The
// version is negotiated against the target directory: a source that is
// itself a previous output (by its own name or a supplied previous output
// path) increments from its own version, otherwise the directory is scanned
// for the highest existing version of the same sequence, shot, and task.
// A final collision check guarantees the returned path does not name an
// existing file other than the source.
package naming
