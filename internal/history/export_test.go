package history

import (
	"testing"
	"time"
)

func SetBusyTimeout(t testing.TB, d time.Duration) {
	t.Helper()
	prev := busyTimeout
	busyTimeout = d
	t.Cleanup(func() { busyTimeout = prev })
}
