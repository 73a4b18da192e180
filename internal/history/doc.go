// Package history persists the processed-file history and batch counters.
//
// The store is a single SQLite file holding a schema version tag, one row per
// original source path, and the batch counters. Rows are mirrored into an
// in-memory primary map plus a content-hash index that is rebuilt on load and
// updated after every committed write. Each mutation runs in one transaction
// and the in-memory view changes only after commit, so the two never
// disagree. A file that cannot be opened or read is moved aside and replaced
// by an empty store.
//
// One process owns a store file at a time; there is no cross-process locking.
package history
