package advisor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/garcom-bot/garcom/internal/advisor"
	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
	"github.com/garcom-bot/garcom/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T) *testutil.FakeStore {
	t.Helper()
	store := testutil.NewFakeStore()
	store.SeedMenu("Burgers",
		database.MenuItem{Name: "Classic Cheeseburger", PriceCents: 1290, IsAvailable: true},
		database.MenuItem{Name: "Veggie Burger", PriceCents: 1190, IsAvailable: true},
		database.MenuItem{Name: "French Fries", PriceCents: 490, IsAvailable: true},
	)
	return store
}

func completedOrder(t *testing.T, store *testutil.FakeStore, owner database.OrderOwner, lines map[string]int) *database.Order {
	t.Helper()
	ctx := context.Background()

	o := &database.Order{Reference: "test", Status: database.OrderStatusCompleted}
	if owner.Channel == channel.Telegram {
		o.TelegramUserID.String, o.TelegramUserID.Valid = owner.ExternalID, true
	} else {
		o.InstagramUserID.String, o.InstagramUserID.Valid = owner.ExternalID, true
	}
	if err := store.CreateOrder(ctx, o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	for name, qty := range lines {
		it, err := store.GetMenuItemByName(ctx, name)
		if err != nil {
			t.Fatalf("menu item %q: %v", name, err)
		}
		err = store.AddOrderItem(ctx, &database.OrderItem{
			OrderID: o.ID, MenuItemID: it.ID, Quantity: qty, PriceCents: it.PriceCents,
		})
		if err != nil {
			t.Fatalf("AddOrderItem: %v", err)
		}
	}
	return o
}

func TestReorderSuggestion_NoHistory(t *testing.T) {
	t.Parallel()
	store := seedStore(t)
	a := advisor.New(store, discard(), time.Hour)

	owner := database.OrderOwner{Channel: channel.Telegram, ExternalID: "1"}
	sug, within, err := a.ReorderSuggestion(context.Background(), owner)
	if err != nil {
		t.Fatalf("ReorderSuggestion: %v", err)
	}
	if sug != nil || within {
		t.Errorf("expected no suggestion, got %+v within=%v", sug, within)
	}
}

func TestReorderSuggestion_ReturnsLastCompletedOrder(t *testing.T) {
	t.Parallel()
	store := seedStore(t)
	owner := database.OrderOwner{Channel: channel.Telegram, ExternalID: "1"}

	completedOrder(t, store, owner, map[string]int{"French Fries": 1})
	latest := completedOrder(t, store, owner, map[string]int{"Classic Cheeseburger": 2})
	// Make the latest order clearly newer.
	store.Orders[latest.ID].UpdatedAt = time.Now().UTC().Add(time.Minute)

	a := advisor.New(store, discard(), 24*time.Hour)
	sug, within, err := a.ReorderSuggestion(context.Background(), owner)
	if err != nil {
		t.Fatalf("ReorderSuggestion: %v", err)
	}
	if sug == nil || sug.Order.ID != latest.ID {
		t.Fatalf("suggestion = %+v, want order %d", sug, latest.ID)
	}
	if !within {
		t.Error("fresh order should be within the recency window")
	}
	if len(sug.Items) != 1 || sug.Items[0].Quantity != 2 {
		t.Errorf("suggestion items = %+v", sug.Items)
	}
}

func TestReorderSuggestion_OutsideRecencyWindow(t *testing.T) {
	t.Parallel()
	store := seedStore(t)
	owner := database.OrderOwner{Channel: channel.Instagram, ExternalID: "ig-9"}

	o := completedOrder(t, store, owner, map[string]int{"Veggie Burger": 1})
	store.Orders[o.ID].UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)

	a := advisor.New(store, discard(), time.Hour)
	sug, within, err := a.ReorderSuggestion(context.Background(), owner)
	if err != nil {
		t.Fatalf("ReorderSuggestion: %v", err)
	}
	if sug == nil {
		t.Fatal("expected a suggestion even outside the window")
	}
	if within {
		t.Error("stale order should not count as within the recency window")
	}
}

func TestRecommend_RanksByFrequency(t *testing.T) {
	t.Parallel()
	store := seedStore(t)
	owner := database.OrderOwner{Channel: channel.Telegram, ExternalID: "1"}

	completedOrder(t, store, owner, map[string]int{"French Fries": 1, "Classic Cheeseburger": 2})
	completedOrder(t, store, owner, map[string]int{"Classic Cheeseburger": 1})

	a := advisor.New(store, discard(), time.Hour)
	items, err := a.Recommend(context.Background(), owner, 2)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(items))
	}
	if items[0].Name != "Classic Cheeseburger" {
		t.Errorf("top recommendation = %q, want Classic Cheeseburger", items[0].Name)
	}
}

func TestRecommend_FallsBackToPopular(t *testing.T) {
	t.Parallel()
	store := seedStore(t)

	// Someone else's history makes fries globally popular.
	other := database.OrderOwner{Channel: channel.Telegram, ExternalID: "other"}
	completedOrder(t, store, other, map[string]int{"French Fries": 5})

	newcomer := database.OrderOwner{Channel: channel.Instagram, ExternalID: "new"}
	a := advisor.New(store, discard(), time.Hour)
	items, err := a.Recommend(context.Background(), newcomer, 3)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(items) == 0 || items[0].Name != "French Fries" {
		t.Errorf("popular fallback = %+v, want French Fries first", items)
	}
}
