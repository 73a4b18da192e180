// Package pipeline runs ingest passes: scan the input directory, fingerprint
// and probe eligible files on a worker pool, then name, copy, record, and
// deliver each file on a single writer goroutine.
//
// All tracker mutations happen on the writer, so per-file results reach
// callers in the order the writer finished them. A run holds an exclusive
// lock file in the output root for its whole duration; a second process
// targeting the same root fails fast with ErrLocked.
//
// Watch repeats Run whenever the input directory settles after changes.
package pipeline
