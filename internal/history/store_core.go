package history

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	sqliteErrorCode         = 1
	sqliteBusyCode          = 5
	sqliteLockedCode        = 6
	sqliteCorruptCode       = 11
	sqliteNotADBCode        = 26
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// busyTimeout bounds how long a connection waits on another writer's lock.
var busyTimeout = 5 * time.Second

// sqliteCode returns the primary result code carried by err, if any.
func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && (code == sqliteBusyCode || code == sqliteLockedCode) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// isUnreadable reports whether err means the store content cannot be
// interpreted: not a database, a damaged image, or tables that do not
// match what the schema check expects. Busy, permission, and version
// errors are not in this class.
func isUnreadable(err error) bool {
	if err == nil || errors.Is(err, ErrSchemaMismatch) || isSQLiteBusy(err) {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqliteNotADBCode, sqliteCorruptCode, sqliteErrorCode:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "file is not a database") || strings.Contains(msg, "malformed")
}

// retryOnBusy reruns op with exponential backoff while SQLite reports busy.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
