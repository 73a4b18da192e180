// Package tracker decides whether a file was already processed and owns the
// processing history and batch folder lifecycle.
//
// IsProcessed checks path, size, and mtime against the history first and
// only hashes the file when that fast path misses; the hash is then looked
// up across every recorded entry so renamed or moved copies are recognized.
// Any error on this path answers "not processed".
//
// Mutating operations (RecordProcessed, AllocateBatchFolder, RotateBatch,
// MoveToBatch, PruneHistory, ResetHistory) are serialized by one mutex and
// persist synchronously before returning. Reads may run concurrently.
//
// Check-then-record is not atomic: callers must not submit the same path
// twice concurrently.
package tracker
