package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"recipeforge/internal/config"
	"recipeforge/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup. The store
// runs on a stepping clock so consecutive writes get distinct timestamps.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	st.SetClock(NewClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)).Now)
	t.Cleanup(func() {
		_ = st.Close()
	})
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("store ping: %v", err)
	}
	return st
}

// Clock is a deterministic time source that advances by one millisecond on
// every read.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at the given instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(time.Millisecond)
	return current
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
