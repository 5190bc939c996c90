package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/garcom-bot/garcom/internal/channel"
)

// Store defines the typed CRUD facade over the bot's entities. All methods
// take a context for cancellation and timeouts; lookups that find nothing
// return ErrNotFound.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetChatUser retrieves a user by channel-qualified identity.
	GetChatUser(ctx context.Context, ch channel.Kind, externalID string) (*ChatUser, error)

	// CreateChatUser inserts a new chat user and fills in its ID.
	CreateChatUser(ctx context.Context, user *ChatUser) error

	// TouchChatUser stamps last_interaction_at for an existing user.
	TouchChatUser(ctx context.Context, userID int64, at time.Time) error

	// GetConversationByUser retrieves the single conversation of a user.
	GetConversationByUser(ctx context.Context, chatUserID int64) (*Conversation, error)

	// CreateConversation inserts a new conversation and fills in its ID.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// UpdateConversation persists state and context, stamping updated_at.
	UpdateConversation(ctx context.Context, conv *Conversation) error

	// AppendMessage inserts an immutable conversation log entry.
	AppendMessage(ctx context.Context, msg *ConversationMessage) error

	// GetRecentMessages returns the most recent 'limit' messages of a
	// conversation in chronological order.
	GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*ConversationMessage, error)

	// ListCategories returns all menu categories in display order.
	ListCategories(ctx context.Context) ([]Category, error)

	// GetMenuItem retrieves a menu item by ID.
	GetMenuItem(ctx context.Context, id int64) (*MenuItem, error)

	// GetMenuItemByName retrieves an available menu item by exact name,
	// case-insensitively.
	GetMenuItemByName(ctx context.Context, name string) (*MenuItem, error)

	// ListMenuItemsByCategory returns the available items of a category.
	ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]MenuItem, error)

	// ListPopularMenuItems returns available items ranked by how often
	// they appear in completed orders.
	ListPopularMenuItems(ctx context.Context, limit int) ([]MenuItem, error)

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// GetActiveOrder returns the owner's pending or processing order.
	GetActiveOrder(ctx context.Context, owner OrderOwner) (*Order, error)

	// CreateOrder inserts a new order and fills in its ID.
	CreateOrder(ctx context.Context, order *Order) error

	// UpdateOrderStatus moves an order to a new status, stamping updated_at.
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error

	// SetOrderTotal writes a recomputed total, stamping updated_at. This is
	// the only write path for total_cents.
	SetOrderTotal(ctx context.Context, orderID int64, totalCents int64) error

	// GetLastCompletedOrder returns the owner's most recent completed order.
	GetLastCompletedOrder(ctx context.Context, owner OrderOwner) (*Order, error)

	// ListCompletedOrders returns the owner's completed orders, newest first.
	ListCompletedOrders(ctx context.Context, owner OrderOwner, limit int) ([]Order, error)

	// CancelStaleOrders cancels pending orders not updated since the cutoff
	// and returns how many were cancelled.
	CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error)

	// AddOrderItem inserts an order line and fills in its ID.
	AddOrderItem(ctx context.Context, item *OrderItem) error

	// DeleteOrderItem removes a single order line.
	DeleteOrderItem(ctx context.Context, itemID int64) error

	// UpdateOrderItemQuantity changes the quantity of an order line.
	UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error

	// ListOrderItems returns all lines of an order.
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)

	// DeleteOrderItems removes every line of an order.
	DeleteOrderItems(ctx context.Context, orderID int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ownerColumn maps an order owner to the owner column it populates.
func ownerColumn(owner OrderOwner) (string, error) {
	switch owner.Channel {
	case channel.Telegram:
		return "telegram_user_id", nil
	case channel.Instagram:
		return "instagram_user_id", nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrValidation, owner.Channel)
	}
}

func (s *sqlxStore) GetChatUser(ctx context.Context, ch channel.Kind, externalID string) (*ChatUser, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrValidation, ch)
	}
	if externalID == "" {
		return nil, fmt.Errorf("%w: external_id cannot be empty", ErrValidation)
	}

	var user ChatUser
	query := `SELECT id, created_at, updated_at, channel, external_id, first_name, last_name, username, last_interaction_at
	          FROM chat_users WHERE channel = ? AND external_id = ?`

	err := s.db.GetContext(ctx, &user, query, ch, externalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting chat user", "channel", ch, "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get chat user %s/%s: %w", ch, externalID, err)
	}
	return &user, nil
}

func (s *sqlxStore) CreateChatUser(ctx context.Context, user *ChatUser) error {
	if user == nil {
		return fmt.Errorf("%w: cannot create nil chat user", ErrValidation)
	}
	if !user.Channel.Valid() || user.ExternalID == "" {
		return fmt.Errorf("%w: chat user needs a channel and external_id", ErrValidation)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.LastInteractionAt.IsZero() {
		user.LastInteractionAt = now
	}

	query := `
        INSERT INTO chat_users (channel, external_id, first_name, last_name, username, last_interaction_at, created_at, updated_at)
        VALUES (:channel, :external_id, :first_name, :last_name, :username, :last_interaction_at, :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating chat user", "channel", user.Channel, "external_id", user.ExternalID, "error", err)
		return fmt.Errorf("failed to create chat user %s/%s: %w", user.Channel, user.ExternalID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		user.ID = id
	}

	s.logger.DebugContext(ctx, "Chat user created", "user_id", user.ID, "channel", user.Channel)
	return nil
}

func (s *sqlxStore) TouchChatUser(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE chat_users SET last_interaction_at = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, at.UTC(), time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error touching chat user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to touch chat user %d: %w", userID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) GetConversationByUser(ctx context.Context, chatUserID int64) (*Conversation, error) {
	var conv Conversation
	query := `SELECT id, chat_user_id, state, context, created_at, updated_at
	          FROM conversations WHERE chat_user_id = ?`

	err := s.db.GetContext(ctx, &conv, query, chatUserID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting conversation", "chat_user_id", chatUserID, "error", err)
		return nil, fmt.Errorf("failed to get conversation for user %d: %w", chatUserID, err)
	}
	return &conv, nil
}

func (s *sqlxStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.ChatUserID == 0 {
		return fmt.Errorf("%w: conversation needs a chat_user_id", ErrValidation)
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.State == "" {
		conv.State = "new"
	}
	if conv.Context == "" {
		conv.Context = "{}"
	}

	query := `
        INSERT INTO conversations (chat_user_id, state, context, created_at, updated_at)
        VALUES (:chat_user_id, :state, :context, :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, conv)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating conversation", "chat_user_id", conv.ChatUserID, "error", err)
		return fmt.Errorf("failed to create conversation for user %d: %w", conv.ChatUserID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		conv.ID = id
	}
	return nil
}

func (s *sqlxStore) UpdateConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.ID == 0 {
		return fmt.Errorf("%w: cannot update conversation without an id", ErrValidation)
	}

	conv.UpdatedAt = time.Now().UTC()
	query := `UPDATE conversations SET state = :state, context = :context, updated_at = :updated_at WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, query, conv)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating conversation", "conversation_id", conv.ID, "error", err)
		return fmt.Errorf("failed to update conversation %d: %w", conv.ID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) AppendMessage(ctx context.Context, msg *ConversationMessage) error {
	if msg == nil || msg.ConversationID == 0 {
		return fmt.Errorf("%w: message needs a conversation_id", ErrValidation)
	}
	if msg.Content == "" {
		return fmt.Errorf("%w: message content cannot be empty", ErrValidation)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO conversation_messages (conversation_id, content, is_from_user, timestamp, created_at)
        VALUES (:conversation_id, :content, :is_from_user, :timestamp, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending message", "conversation_id", msg.ConversationID, "error", err)
		return fmt.Errorf("failed to append message to conversation %d: %w", msg.ConversationID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

func (s *sqlxStore) GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	var messages []*ConversationMessage
	// Fetch newest first, then reverse into chronological order.
	query := `
        SELECT id, conversation_id, content, is_from_user, timestamp, created_at
        FROM conversation_messages
        WHERE conversation_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &messages, query, conversationID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for conversation %d: %w", conversationID, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *sqlxStore) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	query := `SELECT id, name, sort_order FROM categories ORDER BY sort_order, id`
	if err := s.db.SelectContext(ctx, &categories, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing categories", "error", err)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *sqlxStore) GetMenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	var item MenuItem
	query := `SELECT id, category_id, name, description, price_cents, is_available FROM menu_items WHERE id = ?`

	err := s.db.GetContext(ctx, &item, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting menu item", "menu_item_id", id, "error", err)
		return nil, fmt.Errorf("failed to get menu item %d: %w", id, err)
	}
	return &item, nil
}

func (s *sqlxStore) GetMenuItemByName(ctx context.Context, name string) (*MenuItem, error) {
	var item MenuItem
	query := `SELECT id, category_id, name, description, price_cents, is_available
	          FROM menu_items WHERE LOWER(name) = LOWER(?) AND is_available = TRUE`

	err := s.db.GetContext(ctx, &item, query, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting menu item by name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to get menu item %q: %w", name, err)
	}
	return &item, nil
}

func (s *sqlxStore) ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]MenuItem, error) {
	var items []MenuItem
	query := `SELECT id, category_id, name, description, price_cents, is_available
	          FROM menu_items WHERE category_id = ? AND is_available = TRUE ORDER BY id`
	if err := s.db.SelectContext(ctx, &items, query, categoryID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing menu items", "category_id", categoryID, "error", err)
		return nil, fmt.Errorf("failed to list menu items for category %d: %w", categoryID, err)
	}
	return items, nil
}

func (s *sqlxStore) ListPopularMenuItems(ctx context.Context, limit int) ([]MenuItem, error) {
	if limit <= 0 {
		limit = 3
	}

	var items []MenuItem
	query := `
        SELECT m.id, m.category_id, m.name, m.description, m.price_cents, m.is_available
        FROM menu_items m
        JOIN order_items oi ON oi.menu_item_id = m.id
        JOIN orders o ON o.id = oi.order_id AND o.status = 'completed'
        WHERE m.is_available = TRUE
        GROUP BY m.id
        ORDER BY SUM(oi.quantity) DESC, m.id
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &items, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing popular menu items", "error", err)
		return nil, fmt.Errorf("failed to list popular menu items: %w", err)
	}
	return items, nil
}

const orderColumns = `id, reference, telegram_user_id, instagram_user_id, status, total_cents,
	delivery_fee_cents, is_delivery, payment_method, payment_status, created_at, updated_at`

func (s *sqlxStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	err := s.db.GetContext(ctx, &order, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

func (s *sqlxStore) GetActiveOrder(ctx context.Context, owner OrderOwner) (*Order, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}

	var order Order
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE ` + col + ` = ? AND status IN ('pending', 'processing')
	          ORDER BY id DESC LIMIT 1`

	err = s.db.GetContext(ctx, &order, query, owner.ExternalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting active order", "channel", owner.Channel, "external_id", owner.ExternalID, "error", err)
		return nil, fmt.Errorf("failed to get active order for %s/%s: %w", owner.Channel, owner.ExternalID, err)
	}
	return &order, nil
}

func (s *sqlxStore) CreateOrder(ctx context.Context, order *Order) error {
	if order == nil {
		return fmt.Errorf("%w: cannot create nil order", ErrValidation)
	}
	if order.TelegramUserID.Valid == order.InstagramUserID.Valid {
		return fmt.Errorf("%w: order needs exactly one owner", ErrValidation)
	}
	if order.Reference == "" {
		return fmt.Errorf("%w: order needs a reference", ErrValidation)
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = "unpaid"
	}

	query := `
        INSERT INTO orders (reference, telegram_user_id, instagram_user_id, status, total_cents,
            delivery_fee_cents, is_delivery, payment_method, payment_status, created_at, updated_at)
        VALUES (:reference, :telegram_user_id, :instagram_user_id, :status, :total_cents,
            :delivery_fee_cents, :is_delivery, :payment_method, :payment_status, :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating order", "reference", order.Reference, "error", err)
		return fmt.Errorf("failed to create order %s: %w", order.Reference, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		order.ID = id
	}

	s.logger.DebugContext(ctx, "Order created", "order_id", order.ID, "reference", order.Reference)
	return nil
}

func (s *sqlxStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating order status", "order_id", orderID, "status", status, "error", err)
		return fmt.Errorf("failed to update order %d status: %w", orderID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) SetOrderTotal(ctx context.Context, orderID int64, totalCents int64) error {
	query := `UPDATE orders SET total_cents = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, totalCents, time.Now().UTC(), orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting order total", "order_id", orderID, "error", err)
		return fmt.Errorf("failed to set total for order %d: %w", orderID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) GetLastCompletedOrder(ctx context.Context, owner OrderOwner) (*Order, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}

	var order Order
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE ` + col + ` = ? AND status = 'completed'
	          ORDER BY updated_at DESC, id DESC LIMIT 1`

	err = s.db.GetContext(ctx, &order, query, owner.ExternalID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting last completed order", "channel", owner.Channel, "external_id", owner.ExternalID, "error", err)
		return nil, fmt.Errorf("failed to get last completed order for %s/%s: %w", owner.Channel, owner.ExternalID, err)
	}
	return &order, nil
}

func (s *sqlxStore) ListCompletedOrders(ctx context.Context, owner OrderOwner, limit int) ([]Order, error) {
	col, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var orders []Order
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE ` + col + ` = ? AND status = 'completed'
	          ORDER BY updated_at DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &orders, query, owner.ExternalID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing completed orders", "channel", owner.Channel, "external_id", owner.ExternalID, "error", err)
		return nil, fmt.Errorf("failed to list completed orders for %s/%s: %w", owner.Channel, owner.ExternalID, err)
	}
	return orders, nil
}

func (s *sqlxStore) CancelStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE orders SET status = 'cancelled', updated_at = ?
	          WHERE status = 'pending' AND updated_at < ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), cutoff.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error cancelling stale orders", "error", err)
		return 0, fmt.Errorf("failed to cancel stale orders: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected > 0 {
		s.logger.InfoContext(ctx, "Cancelled stale pending orders", "count", affected)
	}
	return affected, nil
}

func (s *sqlxStore) AddOrderItem(ctx context.Context, item *OrderItem) error {
	if item == nil || item.OrderID == 0 || item.MenuItemID == 0 {
		return fmt.Errorf("%w: order item needs an order_id and menu_item_id", ErrValidation)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: order item quantity must be at least 1", ErrValidation)
	}
	if item.Customizations == "" {
		item.Customizations = "{}"
	}

	query := `
        INSERT INTO order_items (order_id, menu_item_id, quantity, price_cents, special_instructions, customizations)
        VALUES (:order_id, :menu_item_id, :quantity, :price_cents, :special_instructions, :customizations);
    `
	result, err := s.db.NamedExecContext(ctx, query, item)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding order item", "order_id", item.OrderID, "menu_item_id", item.MenuItemID, "error", err)
		return fmt.Errorf("failed to add item to order %d: %w", item.OrderID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		item.ID = id
	}
	return nil
}

func (s *sqlxStore) DeleteOrderItem(ctx context.Context, itemID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, itemID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting order item", "order_item_id", itemID, "error", err)
		return fmt.Errorf("failed to delete order item %d: %w", itemID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	result, err := s.db.ExecContext(ctx, `UPDATE order_items SET quantity = ? WHERE id = ?`, quantity, itemID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating order item quantity", "order_item_id", itemID, "error", err)
		return fmt.Errorf("failed to update order item %d: %w", itemID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	var items []OrderItem
	query := `SELECT id, order_id, menu_item_id, quantity, price_cents, special_instructions, customizations
	          FROM order_items WHERE order_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &items, query, orderID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing order items", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to list items of order %d: %w", orderID, err)
	}
	return items, nil
}

func (s *sqlxStore) DeleteOrderItems(ctx context.Context, orderID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		s.logger.ErrorContext(ctx, "Error clearing order items", "order_id", orderID, "error", err)
		return fmt.Errorf("failed to clear items of order %d: %w", orderID, err)
	}
	return nil
}

// RunSQLMaintenance executes VACUUM. SQLite requires it to run outside a
// transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}
	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
