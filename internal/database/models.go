package database

import (
	"database/sql"
	"time"

	"github.com/garcom-bot/garcom/internal/channel"
)

// Order status values. "pending" and "processing" count as active.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// ChatUser is a channel-qualified customer identity. A user is created on
// the first inbound event for an unseen external ID and only its
// last_interaction_at is stamped afterwards.
type ChatUser struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Channel    channel.Kind `db:"channel"`
	ExternalID string       `db:"external_id"`
	FirstName  string       `db:"first_name"`
	LastName   string       `db:"last_name"`
	Username   string       `db:"username"`

	LastInteractionAt time.Time `db:"last_interaction_at"`
}

// Conversation holds the per-user state machine position and the context
// scratchpad, serialized as JSON in the context column. Exactly one
// conversation exists per chat user.
type Conversation struct {
	ID         int64     `db:"id"`
	ChatUserID int64     `db:"chat_user_id"`
	State      string    `db:"state"`
	Context    string    `db:"context"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// ConversationMessage is an immutable, append-only log entry belonging to
// exactly one conversation.
type ConversationMessage struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	Content        string    `db:"content"`
	IsFromUser     bool      `db:"is_from_user"`
	Timestamp      time.Time `db:"timestamp"`
	CreatedAt      time.Time `db:"created_at"`
}

// Category groups menu items for browsing.
type Category struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	SortOrder int    `db:"sort_order"`
}

// MenuItem is a purchasable dish. Prices are integer cents; the menu is
// read-only from the bot's perspective.
type MenuItem struct {
	ID          int64  `db:"id"`
	CategoryID  int64  `db:"category_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	PriceCents  int64  `db:"price_cents"`
	IsAvailable bool   `db:"is_available"`
}

// OrderOwner identifies the customer an order belongs to. Exactly one of
// the owner columns is set on the orders row, selected by Channel.
type OrderOwner struct {
	Channel    channel.Kind
	ExternalID string
}

// Order is the shopping-cart aggregate root. TotalCents is derived from
// the order items plus the delivery fee and is only written by the
// recompute path.
type Order struct {
	ID        int64     `db:"id"`
	Reference string    `db:"reference"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	TelegramUserID  sql.NullString `db:"telegram_user_id"`
	InstagramUserID sql.NullString `db:"instagram_user_id"`

	Status           string `db:"status"`
	TotalCents       int64  `db:"total_cents"`
	DeliveryFeeCents int64  `db:"delivery_fee_cents"`
	IsDelivery       bool   `db:"is_delivery"`
	PaymentMethod    string `db:"payment_method"`
	PaymentStatus    string `db:"payment_status"`
}

// Active reports whether the order still accepts mutations.
func (o *Order) Active() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// Owner reconstructs the order owner from the populated owner column.
func (o *Order) Owner() OrderOwner {
	if o.TelegramUserID.Valid {
		return OrderOwner{Channel: channel.Telegram, ExternalID: o.TelegramUserID.String}
	}
	return OrderOwner{Channel: channel.Instagram, ExternalID: o.InstagramUserID.String}
}

// OrderItem is one line of an order. PriceCents snapshots the menu price
// at add-time and is immutable afterwards, protecting historical totals
// from menu changes.
type OrderItem struct {
	ID                  int64  `db:"id"`
	OrderID             int64  `db:"order_id"`
	MenuItemID          int64  `db:"menu_item_id"`
	Quantity            int    `db:"quantity"`
	PriceCents          int64  `db:"price_cents"`
	SpecialInstructions string `db:"special_instructions"`
	Customizations      string `db:"customizations"`
}

// LineTotalCents is the contribution of this line to the order total.
func (i *OrderItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
