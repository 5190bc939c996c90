// Package advisor derives reorder suggestions and menu recommendations
// from a customer's order history. The heuristics are cheap aggregates
// over the store, not a trained model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/garcom-bot/garcom/internal/database"
)

// Suggestion is a reorder candidate: the source order plus its line items,
// ready to feed into the order manager's reorder path.
type Suggestion struct {
	Order *database.Order
	Items []database.OrderItem
}

// Advisor answers "what did they have last time" and "what would they
// like" questions for the conversation engine.
type Advisor struct {
	store   database.Store
	log     *slog.Logger
	recency time.Duration
}

// New creates an advisor. recency bounds how old a completed order may be
// to still count as a reorder suggestion.
func New(store database.Store, log *slog.Logger, recency time.Duration) *Advisor {
	return &Advisor{
		store:   store,
		log:     log.With("component", "advisor"),
		recency: recency,
	}
}

// ReorderSuggestion returns the owner's most recent completed order with
// its items, or nil when there is none. When within is true the order
// also falls inside the recency window, making it a good greeting-time
// suggestion.
func (a *Advisor) ReorderSuggestion(ctx context.Context, owner database.OrderOwner) (sug *Suggestion, within bool, err error) {
	last, err := a.store.GetLastCompletedOrder(ctx, owner)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up last completed order: %w", err)
	}

	items, err := a.store.ListOrderItems(ctx, last.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list items of order %d: %w", last.ID, err)
	}
	if len(items) == 0 {
		return nil, false, nil
	}

	within = a.recency <= 0 || time.Since(last.UpdatedAt) <= a.recency
	return &Suggestion{Order: last, Items: items}, within, nil
}

// Recommend returns up to n menu items ranked by how often the owner has
// ordered them across completed orders. When the owner has no history it
// falls back to the globally popular items.
func (a *Advisor) Recommend(ctx context.Context, owner database.OrderOwner, n int) ([]database.MenuItem, error) {
	if n <= 0 {
		n = 3
	}

	orders, err := a.store.ListCompletedOrders(ctx, owner, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed orders: %w", err)
	}

	counts := map[int64]int{}
	for _, o := range orders {
		items, err := a.store.ListOrderItems(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list items of order %d: %w", o.ID, err)
		}
		for _, it := range items {
			counts[it.MenuItemID] += it.Quantity
		}
	}

	if len(counts) == 0 {
		a.log.DebugContext(ctx, "No order history, falling back to popular items", "channel", owner.Channel)
		return a.store.ListPopularMenuItems(ctx, n)
	}

	type ranked struct {
		id    int64
		count int
	}
	order := make([]ranked, 0, len(counts))
	for id, c := range counts {
		order = append(order, ranked{id, c})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].id < order[j].id
	})

	var out []database.MenuItem
	for _, r := range order {
		if len(out) == n {
			break
		}
		item, err := a.store.GetMenuItem(ctx, r.id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve recommended item %d: %w", r.id, err)
		}
		if item.IsAvailable {
			out = append(out, *item)
		}
	}
	return out, nil
}
