package conversation_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/garcom-bot/garcom/internal/conversation"
	"github.com/garcom-bot/garcom/internal/testutil"
)

func TestCache_CreatesConversationOnFirstContact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := conversation.NewCache(store, log, time.Minute)

	unlock := cache.Lock(1)
	defer unlock()

	conv, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conv.State != conversation.StateNew {
		t.Errorf("state = %q, want new", conv.State)
	}
	if conv.ID == 0 {
		t.Error("conversation not persisted")
	}
}

func TestCache_ServesCachedCopyWithinTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := conversation.NewCache(store, log, time.Minute)

	unlock := cache.Lock(1)
	first, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	unlock()

	// A fresh entry must not hit the store again.
	store.FailOn["GetConversationByUser"] = errors.New("store down")

	unlock = cache.Lock(1)
	defer unlock()
	second, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if first != second {
		t.Error("expected the cached conversation pointer")
	}
}

func TestCache_SaveFailureForcesResync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := conversation.NewCache(store, log, time.Minute)

	unlock := cache.Lock(1)
	defer unlock()

	conv, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	store.FailOn["UpdateConversation"] = errors.New("store down")
	conv.State = conversation.StateGreeted
	if err := cache.Save(ctx, conv); err == nil {
		t.Fatal("Save should propagate the store failure")
	}
	delete(store.FailOn, "UpdateConversation")

	// The stale copy was dropped; the next Get resyncs from the store,
	// which still holds the pre-failure state.
	resynced, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("resync Get: %v", err)
	}
	if resynced.State != conversation.StateNew {
		t.Errorf("resynced state = %q, want the store's new", resynced.State)
	}
}
