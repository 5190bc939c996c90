// Package conversation implements the per-customer state machine: the
// context scratchpad, a write-through conversation cache with per-user
// locking, and the turn engine that routes classified intents to the
// order manager, advisor, completion client, and dispatcher.
package conversation

import (
	"encoding/json"
	"fmt"

	"github.com/garcom-bot/garcom/internal/intent"
)

// Conversation states. "new" is initial; there is no terminal state.
const (
	StateNew                = "new"
	StateGreeted            = "greeted"
	StateBrowsingCategories = "browsing_categories"
	StateBrowsingItems      = "browsing_items"
	StateOrdering           = "ordering"
	StateConfirmingReorder  = "confirming_reorder"
)

// ReorderItem is the snapshot of one historical order line kept in the
// context while a reorder awaits confirmation. Items are re-added by
// menu item ID at current prices, never by reference to the old lines.
type ReorderItem struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
	Customizations      string `json:"customizations,omitempty"`
}

// ItemRef is a menu item candidate stored while the user browses a
// category.
type ItemRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Context is the conversation scratchpad persisted as JSON in the
// conversations.context column. The named slots carry the machine's
// working memory between turns; keys written by other producers are
// preserved verbatim across load/store cycles in extra, so a context
// update never drops data it does not understand.
type Context struct {
	PendingAddItem      string               `json:"pendingAddItem,omitempty"`
	PendingItemID       int64                `json:"pendingItemId,omitempty"`
	PendingInstructions string               `json:"pendingInstructions,omitempty"`
	ReorderItems        []ReorderItem        `json:"reorderItems,omitempty"`
	LastOrderID         int64                `json:"lastOrderId,omitempty"`
	CurrentCategory     string               `json:"currentCategory,omitempty"`
	Categories          []intent.CategoryRef `json:"categories,omitempty"`
	Items               []ItemRef            `json:"items,omitempty"`

	extra map[string]json.RawMessage
}

// knownContext mirrors Context for plain JSON (de)serialization without
// recursing into the custom methods.
type knownContext Context

// ParseContext decodes a stored context document. An empty document
// yields a zero context.
func ParseContext(raw string) (*Context, error) {
	c := &Context{}
	if raw == "" || raw == "{}" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), c); err != nil {
		return nil, fmt.Errorf("failed to parse conversation context: %w", err)
	}
	return c, nil
}

// UnmarshalJSON fills the named slots and stashes every other key
// untouched.
func (c *Context) UnmarshalJSON(data []byte) error {
	var known knownContext
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range knownContextKeys {
		delete(all, key)
	}
	if len(all) == 0 {
		all = nil
	}

	*c = Context(known)
	c.extra = all
	return nil
}

// MarshalJSON emits the named slots merged with the preserved foreign
// keys. Named slots win on collision.
func (c Context) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(knownContext(c))
	if err != nil {
		return nil, err
	}

	if len(c.extra) == 0 {
		return raw, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// knownContextKeys are the JSON names owned by the named slots, used to
// separate foreign keys during unmarshalling.
var knownContextKeys = []string{
	"pendingAddItem",
	"pendingItemId",
	"pendingInstructions",
	"reorderItems",
	"lastOrderId",
	"currentCategory",
	"categories",
	"items",
}

// Encode serializes the context for storage.
func (c *Context) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode conversation context: %w", err)
	}
	return string(raw), nil
}

// HasPendingItem reports whether a single-item confirmation is armed.
func (c *Context) HasPendingItem() bool {
	return c.PendingItemID != 0
}

// SetPendingItem arms the single pending-item slot, silently replacing
// any previous pending item.
func (c *Context) SetPendingItem(name string, id int64, instructions string) {
	c.PendingAddItem = name
	c.PendingItemID = id
	c.PendingInstructions = instructions
}

// ClearPendingItem disarms the pending-item slot.
func (c *Context) ClearPendingItem() {
	c.PendingAddItem = ""
	c.PendingItemID = 0
	c.PendingInstructions = ""
}

// ClearReorder drops the reorder snapshot.
func (c *Context) ClearReorder() {
	c.ReorderItems = nil
}
