package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/garcom-bot/garcom/internal/database"
)

// Cache is a write-through conversation cache keyed by chat user ID.
// Each entry carries its own mutex: Lock serializes turns for the same
// user so context updates never race, while different users proceed
// concurrently. Entries expire after the TTL; expired entries no turn
// is using are evicted on the next Lock, so the map tracks active users
// rather than everyone ever seen.
type Cache struct {
	store database.Store
	log   *slog.Logger
	ttl   time.Duration

	mu      sync.Mutex
	entries map[int64]*cacheEntry
}

type cacheEntry struct {
	turnMu    sync.Mutex
	refs      int // turns holding or waiting on turnMu, guarded by Cache.mu
	conv      *database.Conversation
	fetchedAt time.Time
}

// NewCache creates a conversation cache over the store.
func NewCache(store database.Store, log *slog.Logger, ttl time.Duration) *Cache {
	return &Cache{
		store:   store,
		log:     log.With("component", "conversation_cache"),
		ttl:     ttl,
		entries: map[int64]*cacheEntry{},
	}
}

func (c *Cache) entry(chatUserID int64) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[chatUserID]
	if !ok {
		e = &cacheEntry{}
		c.entries[chatUserID] = e
	}
	return e
}

// Lock acquires the per-user turn lock and returns the unlock func.
// Hold it for the whole turn.
func (c *Cache) Lock(chatUserID int64) func() {
	c.mu.Lock()
	c.evictExpired()
	e, ok := c.entries[chatUserID]
	if !ok {
		e = &cacheEntry{}
		c.entries[chatUserID] = e
	}
	e.refs++
	c.mu.Unlock()

	e.turnMu.Lock()
	return func() {
		e.turnMu.Unlock()
		c.mu.Lock()
		e.refs--
		c.mu.Unlock()
	}
}

// evictExpired drops entries past the TTL that no turn holds. The refs
// guard keeps an in-flight turn's entry (and its lock) in the map.
// Callers hold c.mu.
func (c *Cache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	for id, e := range c.entries {
		if e.refs == 0 && (e.conv == nil || time.Since(e.fetchedAt) > c.ttl) {
			delete(c.entries, id)
		}
	}
}

// Get returns the user's conversation, from cache when fresh, otherwise
// from the store, creating it in the initial state on first contact.
// Callers must hold the user's turn lock.
func (c *Cache) Get(ctx context.Context, chatUserID int64) (*database.Conversation, error) {
	e := c.entry(chatUserID)
	if e.conv != nil && (c.ttl <= 0 || time.Since(e.fetchedAt) <= c.ttl) {
		return e.conv, nil
	}

	conv, err := c.store.GetConversationByUser(ctx, chatUserID)
	if errors.Is(err, database.ErrNotFound) {
		conv = &database.Conversation{ChatUserID: chatUserID, State: StateNew, Context: "{}"}
		if err := c.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation for user %d: %w", chatUserID, err)
		}
		c.log.DebugContext(ctx, "Conversation created", "chat_user_id", chatUserID, "conversation_id", conv.ID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load conversation for user %d: %w", chatUserID, err)
	}

	e.conv = conv
	e.fetchedAt = time.Now()
	return conv, nil
}

// Save writes the conversation through to the store and refreshes the
// cached copy. Callers must hold the user's turn lock.
func (c *Cache) Save(ctx context.Context, conv *database.Conversation) error {
	if err := c.store.UpdateConversation(ctx, conv); err != nil {
		// Drop the stale cached copy so the next turn resyncs.
		e := c.entry(conv.ChatUserID)
		e.conv = nil
		return fmt.Errorf("failed to persist conversation %d: %w", conv.ID, err)
	}

	e := c.entry(conv.ChatUserID)
	e.conv = conv
	e.fetchedAt = time.Now()
	return nil
}
