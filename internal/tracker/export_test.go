package tracker

import "context"

// SetHashFunc replaces the fingerprint function for tests.
func (t *Tracker) SetHashFunc(fn func(ctx context.Context, path string) (string, error)) {
	t.hash = fn
}
