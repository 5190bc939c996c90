package conversation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/garcom-bot/garcom/internal/testutil"
)

func (c *Cache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) has(chatUserID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[chatUserID]
	return ok
}

func TestCache_ExpiredIdleEntriesAreEvicted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewCache(store, log, time.Millisecond)

	unlock := cache.Lock(1)
	if _, err := cache.Get(ctx, 1); err != nil {
		t.Fatalf("Get: %v", err)
	}
	unlock()

	time.Sleep(10 * time.Millisecond)

	// The next turn, for any user, sweeps the expired idle entry.
	unlock = cache.Lock(2)
	defer unlock()

	if cache.has(1) {
		t.Error("expired entry for user 1 was not evicted")
	}
	if got := cache.size(); got != 1 {
		t.Errorf("cache holds %d entries, want only the active user", got)
	}
}

func TestCache_EntryHeldByTurnIsNotEvicted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := NewCache(store, log, time.Millisecond)

	unlock1 := cache.Lock(1)
	if _, err := cache.Get(ctx, 1); err != nil {
		t.Fatalf("Get: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	// User 1's turn is still in flight; the sweep must leave its entry
	// (and the lock serializing that turn) alone.
	unlock2 := cache.Lock(2)
	defer unlock2()

	if !cache.has(1) {
		t.Fatal("entry held by an in-flight turn was evicted")
	}
	unlock1()
}
