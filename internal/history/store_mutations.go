package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"shotpipe/internal/services"
)

// Put inserts or overwrites the entry keyed by entry.SourcePath. The in-memory
// map and hash index change only after the row is committed.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	ctx = ensureContext(ctx)
	if entry.SourcePath == "" {
		return services.Wrap(services.ErrMalformedInput, "history", "put", "empty source path", nil)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry.Details)
	if err != nil {
		return services.Wrap(services.ErrMalformedInput, "history", "put", "encode details", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDB(ctx); err != nil {
		return services.Wrap(services.ErrIOFailure, "history", "put", "open store", err)
	}

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO history_entries (source_path, size_bytes, modified_ns, content_hash, details_json, recorded_at)
             VALUES (?, ?, ?, ?, ?, ?)
             ON CONFLICT(source_path) DO UPDATE SET
                size_bytes = excluded.size_bytes,
                modified_ns = excluded.modified_ns,
                content_hash = excluded.content_hash,
                details_json = excluded.details_json,
                recorded_at = excluded.recorded_at`,
			entry.SourcePath,
			entry.SizeBytes,
			entry.ModifiedTime.UnixNano(),
			entry.ContentHash,
			string(payload),
			formatTime(entry.RecordedAt),
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrIOFailure, "history", "put", entry.SourcePath, err)
	}

	if previous, ok := s.entries[entry.SourcePath]; ok && previous.ContentHash != entry.ContentHash {
		s.unindex(previous)
	}
	s.entries[entry.SourcePath] = entry
	s.byHash[entry.ContentHash] = entry.SourcePath
	return nil
}

// unindex drops previous from the hash index, handing the hash to another
// entry that shares it when one exists. Caller holds s.mu.
func (s *Store) unindex(previous Entry) {
	if s.byHash[previous.ContentHash] != previous.SourcePath {
		return
	}
	delete(s.byHash, previous.ContentHash)
	for key, other := range s.entries {
		if key != previous.SourcePath && other.ContentHash == previous.ContentHash {
			s.byHash[other.ContentHash] = key
			return
		}
	}
}

// SetBatch persists new batch counters.
func (s *Store) SetBatch(ctx context.Context, info BatchInfo) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDB(ctx); err != nil {
		return services.Wrap(services.ErrIOFailure, "history", "set batch", "open store", err)
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO batch_info (id, last_batch_number, current_batch_name) VALUES (1, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                last_batch_number = excluded.last_batch_number,
                current_batch_name = excluded.current_batch_name`,
			info.LastBatchNumber, info.CurrentBatchName,
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrIOFailure, "history", "set batch", info.CurrentBatchName, err)
	}
	s.batch = info
	return nil
}

// Prune keeps the maxItems most recently recorded entries and deletes the
// rest in one transaction. It returns the number of entries removed.
func (s *Store) Prune(ctx context.Context, maxItems int) (int, error) {
	ctx = ensureContext(ctx)
	if maxItems < 0 {
		maxItems = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) <= maxItems {
		return 0, nil
	}
	if err := s.ensureDB(ctx); err != nil {
		return 0, services.Wrap(services.ErrIOFailure, "history", "prune", "open store", err)
	}

	ordered := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		ordered = append(ordered, entry)
	}
	sortNewestFirst(ordered)
	doomed := ordered[maxItems:]

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM history_entries WHERE source_path = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, entry := range doomed {
			if _, err := stmt.ExecContext(ctx, entry.SourcePath); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, services.Wrap(services.ErrIOFailure, "history", "prune", fmt.Sprintf("delete %d entries", len(doomed)), err)
	}

	for _, entry := range doomed {
		delete(s.entries, entry.SourcePath)
	}
	s.rebuildIndex()
	return len(doomed), nil
}

func (s *Store) rebuildIndex() {
	s.byHash = make(map[string]string, len(s.entries))
	for key, entry := range s.entries {
		s.byHash[entry.ContentHash] = key
	}
}

// Reset clears every entry and the batch counters and deletes the store file.
// The next write recreates an empty store at the same path.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return services.Wrap(services.ErrIOFailure, "history", "reset", "close store", err)
		}
		s.db = nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrIOFailure, "history", "reset", s.path, err)
	}
	removeSidecars(s.path)
	s.entries = make(map[string]Entry)
	s.byHash = make(map[string]string)
	s.batch = BatchInfo{}
	return nil
}

// Backup writes a consistent snapshot of the store to dst. An existing dst
// is never overwritten.
func (s *Store) Backup(ctx context.Context, dst string) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Lstat(dst); err == nil {
		return services.Wrap(services.ErrIOFailure, "history", "backup", dst, fs.ErrExist)
	}
	if err := s.ensureDB(ctx); err != nil {
		return err
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `VACUUM INTO ?`, dst)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrIOFailure, "history", "backup", dst, err)
	}
	return nil
}
