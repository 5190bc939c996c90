package order_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
	"github.com/garcom-bot/garcom/internal/order"
	"github.com/garcom-bot/garcom/internal/testutil"
)

func newManager(t *testing.T) (*order.Manager, *testutil.FakeStore) {
	t.Helper()
	store := testutil.NewFakeStore()
	store.SeedMenu("Burgers",
		database.MenuItem{Name: "Classic Cheeseburger", PriceCents: 1290, IsAvailable: true},
		database.MenuItem{Name: "Veggie Burger", PriceCents: 1190, IsAvailable: true},
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return order.NewManager(store, log, 500), store
}

func menuItemID(t *testing.T, store *testutil.FakeStore, name string) int64 {
	t.Helper()
	it, err := store.GetMenuItemByName(context.Background(), name)
	if err != nil {
		t.Fatalf("menu item %q not seeded: %v", name, err)
	}
	return it.ID
}

func owner() database.OrderOwner {
	return database.OrderOwner{Channel: channel.Telegram, ExternalID: "12345"}
}

func TestGetOrCreateActive_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newManager(t)

	first, err := m.GetOrCreateActive(ctx, owner())
	if err != nil {
		t.Fatalf("first GetOrCreateActive: %v", err)
	}
	second, err := m.GetOrCreateActive(ctx, owner())
	if err != nil {
		t.Fatalf("second GetOrCreateActive: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same order, got %d then %d", first.ID, second.ID)
	}
	if first.Status != database.OrderStatusPending {
		t.Errorf("new order status = %q, want pending", first.Status)
	}
	if first.TotalCents != 0 {
		t.Errorf("new order total = %d, want 0", first.TotalCents)
	}
}

func TestAddItem_SnapshotsPriceAndRecomputesTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newManager(t)

	o, err := m.GetOrCreateActive(ctx, owner())
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}

	cheeseburgerID := menuItemID(t, store, "Classic Cheeseburger")
	item, err := m.AddItem(ctx, o.ID, cheeseburgerID, 2, "no pickles", map[string]string{"cheese": "extra"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.PriceCents != 1290 {
		t.Errorf("snapshot price = %d, want 1290", item.PriceCents)
	}

	// Menu price changes must not affect existing lines or totals.
	store.MenuItems[cheeseburgerID].PriceCents = 9999

	veggieID := menuItemID(t, store, "Veggie Burger")
	if _, err := m.AddItem(ctx, o.ID, veggieID, 1, "", nil); err != nil {
		t.Fatalf("AddItem veggie: %v", err)
	}

	got, err := store.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	want := int64(2*1290 + 1190) // pickup order, no delivery fee
	if got.TotalCents != want {
		t.Errorf("total = %d, want %d", got.TotalCents, want)
	}
}

func TestAddItem_UnknownMenuItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newManager(t)

	o, err := m.GetOrCreateActive(ctx, owner())
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}
	if _, err := m.AddItem(ctx, o.ID, 99999, 1, "", nil); !errors.Is(err, order.ErrItemNotFound) {
		t.Errorf("AddItem unknown item error = %v, want ErrItemNotFound", err)
	}
}

func TestMutations_AlwaysRecomputeFromScratch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newManager(t)

	o, _ := m.GetOrCreateActive(ctx, owner())
	cheeseburgerID := menuItemID(t, store, "Classic Cheeseburger")
	veggieID := menuItemID(t, store, "Veggie Burger")

	a, _ := m.AddItem(ctx, o.ID, cheeseburgerID, 1, "", nil)
	b, _ := m.AddItem(ctx, o.ID, veggieID, 1, "", nil)

	assertTotal := func(want int64) {
		t.Helper()
		got, err := store.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatalf("GetOrder: %v", err)
		}
		if got.TotalCents != want {
			t.Errorf("total = %d, want %d", got.TotalCents, want)
		}
	}

	assertTotal(1290 + 1190)

	if err := m.UpdateItemQuantity(ctx, o.ID, a.ID, 3); err != nil {
		t.Fatalf("UpdateItemQuantity: %v", err)
	}
	assertTotal(3*1290 + 1190)

	if err := m.RemoveItem(ctx, o.ID, b.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	assertTotal(3 * 1290)

	if err := m.Clear(ctx, o.ID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	assertTotal(0)
}

func TestRecompute_AddsDeliveryFee(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newManager(t)

	o, _ := m.GetOrCreateActive(ctx, owner())
	store.Orders[o.ID].IsDelivery = true

	cheeseburgerID := menuItemID(t, store, "Classic Cheeseburger")
	if _, err := m.AddItem(ctx, o.ID, cheeseburgerID, 1, "", nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	got, _ := store.GetOrder(ctx, o.ID)
	if want := int64(1290 + 500); got.TotalCents != want {
		t.Errorf("delivery total = %d, want %d", got.TotalCents, want)
	}
}

func TestReorderFrom_LeavesSourceUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newManager(t)

	cheeseburgerID := menuItemID(t, store, "Classic Cheeseburger")

	// Build and complete a historical order.
	src, _ := m.GetOrCreateActive(ctx, owner())
	srcItem, _ := m.AddItem(ctx, src.ID, cheeseburgerID, 2, "no onions", nil)
	if err := store.UpdateOrderStatus(ctx, src.ID, database.OrderStatusCompleted); err != nil {
		t.Fatalf("complete source order: %v", err)
	}
	srcBefore, _ := store.GetOrder(ctx, src.ID)

	snapshot, _ := store.ListOrderItems(ctx, src.ID)
	fresh, added, err := m.ReorderFrom(ctx, owner(), snapshot)
	if err != nil {
		t.Fatalf("ReorderFrom: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if fresh.ID == src.ID {
		t.Error("reorder reused the source order id")
	}

	srcAfter, _ := store.GetOrder(ctx, src.ID)
	if srcAfter.TotalCents != srcBefore.TotalCents || srcAfter.Status != database.OrderStatusCompleted {
		t.Errorf("source order mutated: before %+v after %+v", srcBefore, srcAfter)
	}
	srcItems, _ := store.ListOrderItems(ctx, src.ID)
	if len(srcItems) != 1 || srcItems[0].ID != srcItem.ID {
		t.Errorf("source items changed: %+v", srcItems)
	}

	freshItems, _ := store.ListOrderItems(ctx, fresh.ID)
	if len(freshItems) != 1 {
		t.Fatalf("fresh order items = %d, want 1", len(freshItems))
	}
	if freshItems[0].MenuItemID != cheeseburgerID || freshItems[0].Quantity != 2 {
		t.Errorf("fresh item = %+v, want menu item %d x2", freshItems[0], cheeseburgerID)
	}
	if freshItems[0].SpecialInstructions != "no onions" {
		t.Errorf("instructions = %q, want carried over", freshItems[0].SpecialInstructions)
	}

	freshOrder, _ := store.GetOrder(ctx, fresh.ID)
	if freshOrder.TotalCents != 2*1290 {
		t.Errorf("fresh total = %d, want %d", freshOrder.TotalCents, 2*1290)
	}
}

func TestReorderFrom_SkipsVanishedItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newManager(t)

	snapshot := []database.OrderItem{
		{MenuItemID: 424242, Quantity: 1, Customizations: "{}"},
	}
	o, added, err := m.ReorderFrom(ctx, owner(), snapshot)
	if err != nil {
		t.Fatalf("ReorderFrom: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
	if o == nil {
		t.Fatal("expected an order even when all items vanished")
	}
}

func TestOrderOwnerColumns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, store := newManager(t)

	igOwner := database.OrderOwner{Channel: channel.Instagram, ExternalID: "ig-77"}
	o, err := m.GetOrCreateActive(ctx, igOwner)
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}

	stored, _ := store.GetOrder(ctx, o.ID)
	if stored.TelegramUserID.Valid {
		t.Error("telegram owner column set for instagram order")
	}
	if stored.InstagramUserID != (sql.NullString{String: "ig-77", Valid: true}) {
		t.Errorf("instagram owner = %+v", stored.InstagramUserID)
	}
	if got := stored.Owner(); got != igOwner {
		t.Errorf("Owner() = %+v, want %+v", got, igOwner)
	}
}
