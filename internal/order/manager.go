// Package order implements the order aggregate manager: creation and
// mutation of a customer's active order with strict recompute-from-scratch
// totals and the at-most-one-active-order-per-owner invariant.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
)

// ErrItemNotFound is returned when a referenced menu item does not resolve.
var ErrItemNotFound = errors.New("menu item not found")

// Manager mutates order aggregates through the store. Totals are always
// recomputed from the full set of order items, never adjusted
// incrementally.
type Manager struct {
	store            database.Store
	log              *slog.Logger
	deliveryFeeCents int64
}

// NewManager creates an order manager. deliveryFeeCents is the flat fee
// applied to delivery orders.
func NewManager(store database.Store, log *slog.Logger, deliveryFeeCents int64) *Manager {
	return &Manager{
		store:            store,
		log:              log.With("component", "order_manager"),
		deliveryFeeCents: deliveryFeeCents,
	}
}

// GetOrCreateActive returns the owner's active order, creating a pending
// one with zero totals and pickup defaults if none exists. Two sequential
// calls for the same owner return the same order.
func (m *Manager) GetOrCreateActive(ctx context.Context, owner database.OrderOwner) (*database.Order, error) {
	existing, err := m.store.GetActiveOrder(ctx, owner)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up active order: %w", err)
	}

	order := &database.Order{
		Reference:        uuid.NewString(),
		Status:           database.OrderStatusPending,
		DeliveryFeeCents: m.deliveryFeeCents,
		IsDelivery:       false,
	}
	switch owner.Channel {
	case channel.Telegram:
		order.TelegramUserID = sql.NullString{String: owner.ExternalID, Valid: true}
	case channel.Instagram:
		order.InstagramUserID = sql.NullString{String: owner.ExternalID, Valid: true}
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", database.ErrValidation, owner.Channel)
	}

	if err := m.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	m.log.InfoContext(ctx, "Created new active order", "order_id", order.ID, "channel", owner.Channel)
	return order, nil
}

// AddItem snapshots the menu item's current price onto a new order line
// and recomputes the order total. Returns ErrItemNotFound when the menu
// item does not resolve.
func (m *Manager) AddItem(ctx context.Context, orderID, menuItemID int64, quantity int, instructions string, customizations map[string]string) (*database.OrderItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	menuItem, err := m.store.GetMenuItem(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to resolve menu item %d: %w", menuItemID, err)
	}

	customJSON := "{}"
	if len(customizations) > 0 {
		raw, err := json.Marshal(customizations)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid customizations: %v", database.ErrValidation, err)
		}
		customJSON = string(raw)
	}

	item := &database.OrderItem{
		OrderID:             orderID,
		MenuItemID:          menuItem.ID,
		Quantity:            quantity,
		PriceCents:          menuItem.PriceCents,
		SpecialInstructions: instructions,
		Customizations:      customJSON,
	}
	if err := m.store.AddOrderItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add order item: %w", err)
	}

	if err := m.Recompute(ctx, orderID); err != nil {
		return nil, err
	}

	m.log.DebugContext(ctx, "Item added to order", "order_id", orderID, "menu_item", menuItem.Name, "quantity", quantity)
	return item, nil
}

// RemoveItem deletes an order line and recomputes the total.
func (m *Manager) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	if err := m.store.DeleteOrderItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to remove order item %d: %w", itemID, err)
	}
	return m.Recompute(ctx, orderID)
}

// UpdateItemQuantity changes a line's quantity and recomputes the total.
func (m *Manager) UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int) error {
	if err := m.store.UpdateOrderItemQuantity(ctx, itemID, quantity); err != nil {
		return fmt.Errorf("failed to update order item %d: %w", itemID, err)
	}
	return m.Recompute(ctx, orderID)
}

// Clear removes every line of an order and recomputes the total.
func (m *Manager) Clear(ctx context.Context, orderID int64) error {
	if err := m.store.DeleteOrderItems(ctx, orderID); err != nil {
		return fmt.Errorf("failed to clear order %d: %w", orderID, err)
	}
	return m.Recompute(ctx, orderID)
}

// ReorderFrom creates (or reuses) the owner's active order and re-adds
// each snapshot item by its original menu item ID, quantity, and
// customizations. The source order and its items are untouched; prices
// are re-snapshotted at current menu values. Items that no longer resolve
// are skipped. Returns the order and the number of items added.
func (m *Manager) ReorderFrom(ctx context.Context, owner database.OrderOwner, snapshot []database.OrderItem) (*database.Order, int, error) {
	order, err := m.GetOrCreateActive(ctx, owner)
	if err != nil {
		return nil, 0, err
	}

	added := 0
	for _, src := range snapshot {
		var customizations map[string]string
		if src.Customizations != "" && src.Customizations != "{}" {
			if err := json.Unmarshal([]byte(src.Customizations), &customizations); err != nil {
				m.log.WarnContext(ctx, "Skipping unparseable customizations on reorder", "order_item_id", src.ID, "error", err)
				customizations = nil
			}
		}

		if _, err := m.AddItem(ctx, order.ID, src.MenuItemID, src.Quantity, src.SpecialInstructions, customizations); err != nil {
			if errors.Is(err, ErrItemNotFound) {
				m.log.WarnContext(ctx, "Skipping unavailable item on reorder", "menu_item_id", src.MenuItemID)
				continue
			}
			return nil, added, err
		}
		added++
	}

	return order, added, nil
}

// Recompute derives the order total from all current order items plus the
// delivery fee when the order is for delivery, and writes it back. This is
// the only path that sets total_cents.
func (m *Manager) Recompute(ctx context.Context, orderID int64) error {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %d for recompute: %w", orderID, err)
	}

	items, err := m.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to list items for recompute: %w", err)
	}

	var total int64
	for _, it := range items {
		total += it.LineTotalCents()
	}
	if order.IsDelivery {
		total += order.DeliveryFeeCents
	}

	if err := m.store.SetOrderTotal(ctx, orderID, total); err != nil {
		return fmt.Errorf("failed to persist recomputed total: %w", err)
	}

	m.log.DebugContext(ctx, "Order total recomputed", "order_id", orderID, "total_cents", total, "items", len(items))
	return nil
}
