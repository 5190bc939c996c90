// Package testutil provides an in-memory database.Store implementation
// for package tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
)

// FakeStore is an in-memory Store. It is safe for concurrent use and
// supports per-method error injection through FailOn.
type FakeStore struct {
	mu sync.Mutex

	// FailOn maps a method name to an error that method should return.
	FailOn map[string]error

	nextID int64

	Users         map[int64]*database.ChatUser
	Conversations map[int64]*database.Conversation
	Messages      []*database.ConversationMessage
	Categories    []database.Category
	MenuItems     map[int64]*database.MenuItem
	Orders        map[int64]*database.Order
	OrderItems    map[int64]*database.OrderItem
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		FailOn:        map[string]error{},
		Users:         map[int64]*database.ChatUser{},
		Conversations: map[int64]*database.Conversation{},
		MenuItems:     map[int64]*database.MenuItem{},
		Orders:        map[int64]*database.Order{},
		OrderItems:    map[int64]*database.OrderItem{},
	}
}

func (s *FakeStore) fail(method string) error {
	if err, ok := s.FailOn[method]; ok {
		return err
	}
	return nil
}

func (s *FakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

// SeedMenu registers a category and its items, assigning IDs.
func (s *FakeStore) SeedMenu(categoryName string, items ...database.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat := database.Category{ID: s.id(), Name: categoryName, SortOrder: len(s.Categories) + 1}
	s.Categories = append(s.Categories, cat)
	for i := range items {
		it := items[i]
		it.ID = s.id()
		it.CategoryID = cat.ID
		if !it.IsAvailable {
			it.IsAvailable = true
		}
		s.MenuItems[it.ID] = &it
	}
}

func (s *FakeStore) Ping(ctx context.Context) error { return s.fail("Ping") }

func (s *FakeStore) GetChatUser(ctx context.Context, ch channel.Kind, externalID string) (*database.ChatUser, error) {
	if err := s.fail("GetChatUser"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if u.Channel == ch && u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *FakeStore) CreateChatUser(ctx context.Context, user *database.ChatUser) error {
	if err := s.fail("CreateChatUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.Users[user.ID] = &cp
	return nil
}

func (s *FakeStore) TouchChatUser(ctx context.Context, userID int64, at time.Time) error {
	if err := s.fail("TouchChatUser"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[userID]
	if !ok {
		return database.ErrNotFound
	}
	u.LastInteractionAt = at
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *FakeStore) GetConversationByUser(ctx context.Context, chatUserID int64) (*database.Conversation, error) {
	if err := s.fail("GetConversationByUser"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Conversations {
		if c.ChatUserID == chatUserID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *FakeStore) CreateConversation(ctx context.Context, conv *database.Conversation) error {
	if err := s.fail("CreateConversation"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = s.id()
	if conv.State == "" {
		conv.State = "new"
	}
	if conv.Context == "" {
		conv.Context = "{}"
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	cp := *conv
	s.Conversations[conv.ID] = &cp
	return nil
}

func (s *FakeStore) UpdateConversation(ctx context.Context, conv *database.Conversation) error {
	if err := s.fail("UpdateConversation"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.Conversations[conv.ID]
	if !ok {
		return database.ErrNotFound
	}
	stored.State = conv.State
	stored.Context = conv.Context
	stored.UpdatedAt = time.Now().UTC()
	conv.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *FakeStore) AppendMessage(ctx context.Context, msg *database.ConversationMessage) error {
	if err := s.fail("AppendMessage"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.id()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.CreatedAt = time.Now().UTC()
	cp := *msg
	s.Messages = append(s.Messages, &cp)
	return nil
}

func (s *FakeStore) GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*database.ConversationMessage, error) {
	if err := s.fail("GetRecentMessages"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*database.ConversationMessage
	for _, m := range s.Messages {
		if m.ConversationID == conversationID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *FakeStore) ListCategories(ctx context.Context) ([]database.Category, error) {
	if err := s.fail("ListCategories"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]database.Category(nil), s.Categories...), nil
}

func (s *FakeStore) GetMenuItem(ctx context.Context, id int64) (*database.MenuItem, error) {
	if err := s.fail("GetMenuItem"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.MenuItems[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *FakeStore) GetMenuItemByName(ctx context.Context, name string) (*database.MenuItem, error) {
	if err := s.fail("GetMenuItemByName"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.MenuItems {
		if strings.EqualFold(it.Name, name) && it.IsAvailable {
			cp := *it
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *FakeStore) ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]database.MenuItem, error) {
	if err := s.fail("ListMenuItemsByCategory"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.MenuItem
	for _, it := range s.MenuItems {
		if it.CategoryID == categoryID && it.IsAvailable {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FakeStore) ListPopularMenuItems(ctx context.Context, limit int) ([]database.MenuItem, error) {
	if err := s.fail("ListPopularMenuItems"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[int64]int{}
	for _, oi := range s.OrderItems {
		if o, ok := s.Orders[oi.OrderID]; ok && o.Status == database.OrderStatusCompleted {
			counts[oi.MenuItemID] += oi.Quantity
		}
	}
	var out []database.MenuItem
	for id, it := range s.MenuItems {
		if counts[id] > 0 && it.IsAvailable {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i].ID] != counts[out[j].ID] {
			return counts[out[i].ID] > counts[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FakeStore) GetOrder(ctx context.Context, id int64) (*database.Order, error) {
	if err := s.fail("GetOrder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func ownerMatches(o *database.Order, owner database.OrderOwner) bool {
	switch owner.Channel {
	case channel.Telegram:
		return o.TelegramUserID.Valid && o.TelegramUserID.String == owner.ExternalID
	case channel.Instagram:
		return o.InstagramUserID.Valid && o.InstagramUserID.String == owner.ExternalID
	}
	return false
}

func (s *FakeStore) GetActiveOrder(ctx context.Context, owner database.OrderOwner) (*database.Order, error) {
	if err := s.fail("GetActiveOrder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *database.Order
	for _, o := range s.Orders {
		if ownerMatches(o, owner) && o.Active() {
			if best == nil || o.ID > best.ID {
				best = o
			}
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *FakeStore) CreateOrder(ctx context.Context, order *database.Order) error {
	if err := s.fail("CreateOrder"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = s.id()
	if order.Status == "" {
		order.Status = database.OrderStatusPending
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	cp := *order
	s.Orders[order.ID] = &cp
	return nil
}

func (s *FakeStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if err := s.fail("UpdateOrderStatus"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[orderID]
	if !ok {
		return database.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *FakeStore) SetOrderTotal(ctx context.Context, orderID int64, totalCents int64) error {
	if err := s.fail("SetOrderTotal"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[orderID]
	if !ok {
		return database.ErrNotFound
	}
	o.TotalCents = totalCents
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *FakeStore) GetLastCompletedOrder(ctx context.Context, owner database.OrderOwner) (*database.Order, error) {
	if err := s.fail("GetLastCompletedOrder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *database.Order
	for _, o := range s.Orders {
		if ownerMatches(o, owner) && o.Status == database.OrderStatusCompleted {
			if best == nil || o.UpdatedAt.After(best.UpdatedAt) || (o.UpdatedAt.Equal(best.UpdatedAt) && o.ID > best.ID) {
				best = o
			}
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *FakeStore) ListCompletedOrders(ctx context.Context, owner database.OrderOwner, limit int) ([]database.Order, error) {
	if err := s.fail("ListCompletedOrders"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Order
	for _, o := range s.Orders {
		if ownerMatches(o, owner) && o.Status == database.OrderStatusCompleted {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FakeStore) CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.fail("CancelStaleOrders"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.Orders {
		if o.Status == database.OrderStatusPending && o.UpdatedAt.Before(cutoff) {
			o.Status = database.OrderStatusCancelled
			o.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *FakeStore) AddOrderItem(ctx context.Context, item *database.OrderItem) error {
	if err := s.fail("AddOrderItem"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	if item.Customizations == "" {
		item.Customizations = "{}"
	}
	cp := *item
	s.OrderItems[item.ID] = &cp
	return nil
}

func (s *FakeStore) DeleteOrderItem(ctx context.Context, itemID int64) error {
	if err := s.fail("DeleteOrderItem"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.OrderItems[itemID]; !ok {
		return database.ErrNotFound
	}
	delete(s.OrderItems, itemID)
	return nil
}

func (s *FakeStore) UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	if err := s.fail("UpdateOrderItemQuantity"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.OrderItems[itemID]
	if !ok {
		return database.ErrNotFound
	}
	it.Quantity = quantity
	return nil
}

func (s *FakeStore) ListOrderItems(ctx context.Context, orderID int64) ([]database.OrderItem, error) {
	if err := s.fail("ListOrderItems"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.OrderItem
	for _, it := range s.OrderItems {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FakeStore) DeleteOrderItems(ctx context.Context, orderID int64) error {
	if err := s.fail("DeleteOrderItems"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.OrderItems {
		if it.OrderID == orderID {
			delete(s.OrderItems, id)
		}
	}
	return nil
}

func (s *FakeStore) RunSQLMaintenance(ctx context.Context) error {
	return s.fail("RunSQLMaintenance")
}

var _ database.Store = (*FakeStore)(nil)
