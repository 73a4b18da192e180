package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"shotpipe/internal/logging"
	"shotpipe/internal/services"
)

// Store is the durable history map. Methods are safe for concurrent use;
// callers that need read-modify-write sequences serialize them externally.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	logger  *slog.Logger
	entries map[string]Entry
	byHash  map[string]string
	batch   BatchInfo

	quarantined string
}

// Open loads the store at path, creating it when absent. A file that is not
// a readable history is renamed to <path>.corrupt-<timestamp> and replaced
// with an empty store. Any other failure, such as a lock held past the busy
// timeout or a store from a newer release, is returned as
// services.ErrIOFailure and leaves the file untouched.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	ctx = ensureContext(ctx)
	s := &Store{
		path:    path,
		logger:  logging.NewComponentLogger(logger, "history"),
		entries: make(map[string]Entry),
		byHash:  make(map[string]string),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrIOFailure, "history", "open", "create store directory", err)
	}

	err := s.openAndLoad(ctx)
	if err == nil {
		return s, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !isUnreadable(err) {
		return nil, services.Wrap(services.ErrIOFailure, "history", "open", path, err)
	}

	quarantine := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
	if renameErr := os.Rename(path, quarantine); renameErr != nil {
		if !errors.Is(renameErr, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrIOFailure, "history", "open", "move unreadable store aside", errors.Join(err, renameErr))
		}
		quarantine = ""
	}
	removeSidecars(path)
	logging.WarnWithContext(s.logger, "history store unreadable; starting empty", "history_store_corrupt",
		logging.String("path", path),
		logging.String("moved_to", quarantine),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the moved file if the history matters"),
		logging.String(logging.FieldImpact, "previously processed files may be processed again"),
	)

	s.entries = make(map[string]Entry)
	s.byHash = make(map[string]string)
	s.batch = BatchInfo{}
	s.quarantined = quarantine
	if err := s.openAndLoad(ctx); err != nil {
		return nil, services.Wrap(services.ErrStoreCorrupt, "history", "open", "reinitialize store", err)
	}
	return s, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Quarantined returns where an unreadable store was moved during Open, or "".
func (s *Store) Quarantined() string {
	return s.quarantined
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) openAndLoad(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	if err := s.load(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Store) load(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT source_path, size_bytes, modified_ns, content_hash, details_json, recorded_at
         FROM history_entries`)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry       Entry
			modifiedNS  int64
			detailsJSON sql.NullString
			recordedRaw string
		)
		if err := rows.Scan(&entry.SourcePath, &entry.SizeBytes, &modifiedNS, &entry.ContentHash, &detailsJSON, &recordedRaw); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		entry.ModifiedTime = time.Unix(0, modifiedNS)
		if t, err := parseTimeString(recordedRaw); err == nil {
			entry.RecordedAt = t
		}
		entry.Details = decodeDetails(detailsJSON.String)
		s.entries[entry.SourcePath] = entry
		s.byHash[entry.ContentHash] = entry.SourcePath
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entries: %w", err)
	}

	var (
		last sql.NullInt64
		name sql.NullString
	)
	err = db.QueryRowContext(ctx, "SELECT last_batch_number, current_batch_name FROM batch_info WHERE id = 1").Scan(&last, &name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read batch info: %w", err)
	}
	s.batch = BatchInfo{LastBatchNumber: int(last.Int64), CurrentBatchName: name.String}
	return nil
}

// decodeDetails keeps rows readable when the payload no longer matches
// Details; the raw text survives in Extra.
func decodeDetails(raw string) Details {
	var details Details
	if raw == "" {
		return details
	}
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return Details{Extra: json.RawMessage(raw)}
	}
	return details
}

func (s *Store) ensureDB(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	return s.openAndLoad(ctx)
}

// Get returns the entry stored under key.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// LookupHash returns an entry whose content hash equals hash.
func (s *Store) LookupHash(hash string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byHash[hash]
	if !ok {
		return Entry{}, false
	}
	entry, ok := s.entries[key]
	return entry, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a snapshot of all entries ordered newest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// Batch returns the persisted batch counters.
func (s *Store) Batch() BatchInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].RecordedAt.After(entries[j].RecordedAt)
		}
		return entries[i].SourcePath < entries[j].SourcePath
	})
}

func removeSidecars(path string) {
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(path + suffix)
	}
}
