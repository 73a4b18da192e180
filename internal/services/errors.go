package services

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrNotFound marks a source file that vanished between enumeration and use.
	ErrNotFound = errors.New("not found")
	// ErrIOFailure marks disk, permission, or persistence failures.
	ErrIOFailure = errors.New("io failure")
	// ErrMalformedInput marks unparseable hints. Callers normalize instead of failing.
	ErrMalformedInput = errors.New("malformed input")
	// ErrStoreCorrupt marks an unreadable history store.
	ErrStoreCorrupt = errors.New("history store corrupt")
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIOFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify picks the taxonomy marker for a raw filesystem error.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	default:
		return ErrIOFailure
	}
}

// IsSkippable reports whether a per-file failure should be treated as
// "skip and continue" rather than a surfaced failure.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
