package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/garcom-bot/garcom/internal/advisor"
	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/config"
	"github.com/garcom-bot/garcom/internal/database"
	"github.com/garcom-bot/garcom/internal/dispatch"
	"github.com/garcom-bot/garcom/internal/gemini"
	"github.com/garcom-bot/garcom/internal/intent"
	"github.com/garcom-bot/garcom/internal/order"
)

// UserProfile carries the channel-provided identity fields of the
// message sender.
type UserProfile struct {
	FirstName string
	LastName  string
	Username  string
}

// Engine executes one conversation turn per inbound message: it loads
// the user and conversation, classifies the text, applies the state
// transition, and always dispatches a reply. No turn failure is fatal;
// every error path degrades to a canned message.
type Engine struct {
	store        database.Store
	cache        *Cache
	orders       *order.Manager
	advisor      *advisor.Advisor
	completions  gemini.Client
	dispatcher   *dispatch.Dispatcher
	log          *slog.Logger
	messages     config.MessagesConfig
	historyLimit int
}

// NewEngine wires the turn engine.
func NewEngine(
	store database.Store,
	cache *Cache,
	orders *order.Manager,
	adv *advisor.Advisor,
	completions gemini.Client,
	dispatcher *dispatch.Dispatcher,
	messages config.MessagesConfig,
	historyLimit int,
	log *slog.Logger,
) *Engine {
	if historyLimit <= 0 {
		historyLimit = config.DefaultHistoryLimit
	}
	return &Engine{
		store:        store,
		cache:        cache,
		orders:       orders,
		advisor:      adv,
		completions:  completions,
		dispatcher:   dispatcher,
		log:          log.With("component", "conversation_engine"),
		messages:     messages,
		historyLimit: historyLimit,
	}
}

// HandleTurn processes one inbound message. It guarantees a user-visible
// reply: any component failure is logged and replaced with a fallback
// message rather than propagated.
func (e *Engine) HandleTurn(ctx context.Context, ch channel.Kind, externalID string, profile UserProfile, text string) {
	user, err := e.getOrCreateUser(ctx, ch, externalID, profile)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to resolve chat user", "channel", ch, "external_id", externalID, "error", err)
		// Without a user there is no conversation to log against; send the
		// apology directly through the dispatcher's channel sender.
		e.dispatcher.Deliver(ctx, &database.Conversation{}, ch, externalID, e.messages.GeneralError)
		return
	}

	unlock := e.cache.Lock(user.ID)
	defer unlock()

	conv, err := e.cache.Get(ctx, user.ID)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to load conversation", "chat_user_id", user.ID, "error", err)
		e.dispatcher.Deliver(ctx, &database.Conversation{}, ch, externalID, e.messages.GeneralError)
		return
	}

	if err := e.store.AppendMessage(ctx, &database.ConversationMessage{
		ConversationID: conv.ID,
		Content:        text,
		IsFromUser:     true,
		Timestamp:      time.Now().UTC(),
	}); err != nil {
		e.log.ErrorContext(ctx, "Failed to log inbound message", "conversation_id", conv.ID, "error", err)
	}

	owner := database.OrderOwner{Channel: ch, ExternalID: externalID}
	replies := e.runTurn(ctx, conv, owner, text)
	if len(replies) == 0 {
		replies = []string{e.messages.GeneralError}
	}

	e.dispatcher.Deliver(ctx, conv, ch, externalID, replies...)
}

// runTurn applies the state machine and returns the replies to send.
// The conversation (state + context) is persisted before returning.
func (e *Engine) runTurn(ctx context.Context, conv *database.Conversation, owner database.OrderOwner, text string) []string {
	// First contact short-circuits classification entirely.
	if conv.State == StateNew {
		reply := e.welcome(ctx, owner)
		conv.State = StateGreeted
		if err := e.cache.Save(ctx, conv); err != nil {
			e.log.ErrorContext(ctx, "Failed to persist greeted state", "conversation_id", conv.ID, "error", err)
		}
		return []string{reply}
	}

	cctx, err := ParseContext(conv.Context)
	if err != nil {
		e.log.ErrorContext(ctx, "Unreadable conversation context, starting fresh", "conversation_id", conv.ID, "error", err)
		cctx = &Context{}
	}

	st := intent.State{
		HasPendingItem:         cctx.HasPendingItem(),
		AwaitingReorderConfirm: conv.State == StateConfirmingReorder && len(cctx.ReorderItems) > 0,
		Categories:             cctx.Categories,
	}
	in := intent.Classify(text, st)
	e.log.DebugContext(ctx, "Intent classified", "conversation_id", conv.ID, "kind", in.Kind, "state", conv.State)

	var replies []string
	switch in.Kind {
	case intent.KindShowMenu:
		replies = e.handleShowMenu(ctx, conv, cctx)
	case intent.KindRecommend:
		replies = e.handleRecommend(ctx, owner)
	case intent.KindReorder:
		replies = e.handleReorder(ctx, conv, cctx, owner)
	case intent.KindConfirm:
		replies = e.handleConfirm(ctx, conv, cctx, owner)
	case intent.KindDeny:
		replies = e.handleDeny(conv, cctx)
	case intent.KindSelectCategory:
		replies = e.handleSelectCategory(ctx, conv, cctx, in)
	case intent.KindOrderItem:
		replies = e.handleOrderItem(ctx, cctx, in)
	case intent.KindDietary:
		replies = e.handleDietary(ctx, cctx, in)
	case intent.KindFallback:
		replies = e.handleFallback(ctx, conv, cctx, in)
	default:
		replies = []string{e.messages.Unknown}
	}

	encoded, err := cctx.Encode()
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to encode conversation context", "conversation_id", conv.ID, "error", err)
		return []string{e.messages.GeneralError}
	}
	conv.Context = encoded
	if err := e.cache.Save(ctx, conv); err != nil {
		e.log.ErrorContext(ctx, "Failed to persist conversation turn", "conversation_id", conv.ID, "error", err)
		return []string{e.messages.GeneralError}
	}

	return replies
}

// welcome builds the greeting, personalized from order history when
// possible. Personalization failures are swallowed; greeting never
// fails the turn.
func (e *Engine) welcome(ctx context.Context, owner database.OrderOwner) string {
	sug, within, err := e.advisor.ReorderSuggestion(ctx, owner)
	if err != nil {
		e.log.WarnContext(ctx, "Reorder suggestion failed, greeting generically", "error", err)
	} else if sug != nil && within {
		if summary := e.describeOrderItems(ctx, sug.Items, 3); summary != "" {
			return fmt.Sprintf(e.messages.WelcomeBack, "Last time you had "+summary+".")
		}
	}

	recs, err := e.advisor.Recommend(ctx, owner, 3)
	if err != nil {
		e.log.WarnContext(ctx, "Recommendations failed, greeting generically", "error", err)
	} else if len(recs) > 0 && sug != nil {
		// sug != nil means the user has real history; the advisor's
		// popular-item fallback alone must not personalize a first-timer.
		names := make([]string, 0, len(recs))
		for _, it := range recs {
			names = append(names, it.Name)
		}
		return fmt.Sprintf(e.messages.WelcomeBack, "You might like "+strings.Join(names, ", ")+".")
	}

	return e.messages.Welcome
}

func (e *Engine) handleShowMenu(ctx context.Context, conv *database.Conversation, cctx *Context) []string {
	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to list categories", "error", err)
		return []string{e.messages.GeneralError}
	}
	if len(categories) == 0 {
		return []string{e.messages.NotFound}
	}

	refs := make([]intent.CategoryRef, 0, len(categories))
	var b strings.Builder
	b.WriteString("📋 Our menu:\n")
	for i, c := range categories {
		refs = append(refs, intent.CategoryRef{ID: c.ID, Name: c.Name})
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name)
	}
	b.WriteString("\nReply with a number or category name to browse.")

	cctx.Categories = refs
	conv.State = StateBrowsingCategories
	return []string{b.String()}
}

func (e *Engine) handleRecommend(ctx context.Context, owner database.OrderOwner) []string {
	items, err := e.advisor.Recommend(ctx, owner, 3)
	if err != nil {
		e.log.ErrorContext(ctx, "Recommendation lookup failed", "error", err)
		return []string{e.messages.GeneralError}
	}
	if len(items) == 0 {
		return []string{e.messages.Unknown}
	}

	var b strings.Builder
	b.WriteString("⭐ You might enjoy:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "• %s — %s\n", it.Name, formatCents(it.PriceCents))
	}
	b.WriteString("\nJust name a dish to order it.")
	return []string{b.String()}
}

func (e *Engine) handleReorder(ctx context.Context, conv *database.Conversation, cctx *Context, owner database.OrderOwner) []string {
	sug, _, err := e.advisor.ReorderSuggestion(ctx, owner)
	if err != nil {
		e.log.ErrorContext(ctx, "Reorder lookup failed", "error", err)
		return []string{e.messages.GeneralError}
	}
	if sug == nil {
		// State deliberately unchanged; there is nothing to confirm.
		return []string{e.messages.NoRecentOrder}
	}

	snapshot := make([]ReorderItem, 0, len(sug.Items))
	for _, it := range sug.Items {
		snapshot = append(snapshot, ReorderItem{
			MenuItemID:          it.MenuItemID,
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
			Customizations:      it.Customizations,
		})
	}
	cctx.ReorderItems = snapshot
	cctx.LastOrderID = sug.Order.ID
	conv.State = StateConfirmingReorder

	summary := e.describeOrderItems(ctx, sug.Items, 3)
	return []string{fmt.Sprintf("🔁 Your last order was %s (%s). Order it again? (yes/no)",
		summary, formatCents(sug.Order.TotalCents))}
}

func (e *Engine) handleConfirm(ctx context.Context, conv *database.Conversation, cctx *Context, owner database.OrderOwner) []string {
	switch {
	case cctx.HasPendingItem():
		o, err := e.orders.GetOrCreateActive(ctx, owner)
		if err != nil {
			e.log.ErrorContext(ctx, "Failed to open active order", "error", err)
			return []string{e.messages.GeneralError}
		}
		item, err := e.orders.AddItem(ctx, o.ID, cctx.PendingItemID, 1, cctx.PendingInstructions, nil)
		if err != nil {
			if errors.Is(err, order.ErrItemNotFound) {
				cctx.ClearPendingItem()
				return []string{e.messages.ItemNotFound}
			}
			e.log.ErrorContext(ctx, "Failed to add pending item", "order_id", o.ID, "error", err)
			return []string{e.messages.GeneralError}
		}

		name := cctx.PendingAddItem
		cctx.ClearPendingItem()
		cctx.LastOrderID = o.ID
		conv.State = StateOrdering

		updated, err := e.store.GetOrder(ctx, o.ID)
		if err != nil {
			e.log.WarnContext(ctx, "Could not reload order for total", "order_id", o.ID, "error", err)
			return []string{fmt.Sprintf("✅ Added %s to your order.", name)}
		}
		return []string{fmt.Sprintf("✅ Added %s (%s) to your order. Total so far: %s.",
			name, formatCents(item.PriceCents), formatCents(updated.TotalCents))}

	case conv.State == StateConfirmingReorder && len(cctx.ReorderItems) > 0:
		snapshot := make([]database.OrderItem, 0, len(cctx.ReorderItems))
		for _, it := range cctx.ReorderItems {
			snapshot = append(snapshot, database.OrderItem{
				MenuItemID:          it.MenuItemID,
				Quantity:            it.Quantity,
				SpecialInstructions: it.SpecialInstructions,
				Customizations:      it.Customizations,
			})
		}
		o, added, err := e.orders.ReorderFrom(ctx, owner, snapshot)
		if err != nil {
			e.log.ErrorContext(ctx, "Reorder failed", "error", err)
			return []string{e.messages.GeneralError}
		}

		cctx.ClearReorder()
		cctx.LastOrderID = o.ID
		conv.State = StateOrdering

		if added == 0 {
			return []string{e.messages.ItemNotFound}
		}
		updated, err := e.store.GetOrder(ctx, o.ID)
		if err != nil {
			return []string{fmt.Sprintf("✅ Re-added %d item(s) to a fresh order.", added)}
		}
		return []string{fmt.Sprintf("✅ Re-added %d item(s) to a fresh order. Total: %s.",
			added, formatCents(updated.TotalCents))}

	default:
		// The classifier only emits confirm with something pending, but a
		// stale cached state can still land here.
		return []string{e.messages.Unknown}
	}
}

func (e *Engine) handleDeny(conv *database.Conversation, cctx *Context) []string {
	wasReorder := conv.State == StateConfirmingReorder
	cctx.ClearPendingItem()
	cctx.ClearReorder()
	if wasReorder {
		conv.State = StateOrdering
	}
	return []string{e.messages.Denied}
}

func (e *Engine) handleSelectCategory(ctx context.Context, conv *database.Conversation, cctx *Context, in intent.Intent) []string {
	items, err := e.store.ListMenuItemsByCategory(ctx, in.CategoryID)
	if err != nil {
		e.log.ErrorContext(ctx, "Failed to list category items", "category_id", in.CategoryID, "error", err)
		return []string{e.messages.GeneralError}
	}
	if len(items) == 0 {
		return []string{e.messages.NotFound}
	}

	refs := make([]ItemRef, 0, len(items))
	var b strings.Builder
	fmt.Fprintf(&b, "🍽 %s:\n", in.CategoryName)
	for _, it := range items {
		refs = append(refs, ItemRef{ID: it.ID, Name: it.Name})
		fmt.Fprintf(&b, "• %s — %s\n", it.Name, formatCents(it.PriceCents))
	}
	b.WriteString("\nName a dish to order it.")

	cctx.CurrentCategory = in.CategoryName
	cctx.Items = refs
	conv.State = StateBrowsingItems
	return []string{b.String()}
}

func (e *Engine) handleOrderItem(ctx context.Context, cctx *Context, in intent.Intent) []string {
	item, err := e.store.GetMenuItemByName(ctx, in.ItemName)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return []string{e.messages.ItemNotFound}
		}
		e.log.ErrorContext(ctx, "Menu item lookup failed", "name", in.ItemName, "error", err)
		return []string{e.messages.GeneralError}
	}

	cctx.SetPendingItem(item.Name, item.ID, in.SpecialInstructions)

	if in.SpecialInstructions != "" {
		return []string{fmt.Sprintf("%s (%s), %s — add it to your order? (yes/no)",
			item.Name, formatCents(item.PriceCents), in.SpecialInstructions)}
	}
	return []string{fmt.Sprintf("%s (%s) — add it to your order? (yes/no)",
		item.Name, formatCents(item.PriceCents))}
}

func (e *Engine) handleDietary(ctx context.Context, cctx *Context, in intent.Intent) []string {
	item, err := e.store.GetMenuItemByName(ctx, in.SuggestedItem)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return []string{e.messages.ItemNotFound}
		}
		e.log.ErrorContext(ctx, "Dietary substitution lookup failed", "name", in.SuggestedItem, "error", err)
		return []string{e.messages.GeneralError}
	}

	cctx.SetPendingItem(item.Name, item.ID, "")
	return []string{fmt.Sprintf("🥗 For %s, I'd suggest our %s (%s). Want me to add it? (yes/no)",
		in.DietaryKeyword, item.Name, formatCents(item.PriceCents))}
}

// handleFallback forwards the text with recent history to the
// completion service. A failed completion substitutes the apology and
// leaves state untouched so the same input can be retried. When the
// model's reply names a menu item, the pending slot is armed so a plain
// "yes" orders it.
func (e *Engine) handleFallback(ctx context.Context, conv *database.Conversation, cctx *Context, in intent.Intent) []string {
	history, err := e.store.GetRecentMessages(ctx, conv.ID, e.historyLimit)
	if err != nil {
		e.log.WarnContext(ctx, "Could not load history for completion", "conversation_id", conv.ID, "error", err)
		history = nil
	}

	reply, err := e.completions.Complete(ctx, history, in.Query)
	if err != nil {
		e.log.ErrorContext(ctx, "Completion failed", "conversation_id", conv.ID, "error", err)
		return []string{e.messages.AIError}
	}

	if suggested, ok := intent.SuggestedMenuItem(reply); ok {
		if item, err := e.store.GetMenuItemByName(ctx, suggested); err == nil {
			cctx.SetPendingItem(item.Name, item.ID, "")
		}
	}
	return []string{reply}
}

func (e *Engine) getOrCreateUser(ctx context.Context, ch channel.Kind, externalID string, profile UserProfile) (*database.ChatUser, error) {
	user, err := e.store.GetChatUser(ctx, ch, externalID)
	if err == nil {
		if err := e.store.TouchChatUser(ctx, user.ID, time.Now().UTC()); err != nil {
			e.log.WarnContext(ctx, "Failed to stamp last interaction", "chat_user_id", user.ID, "error", err)
		}
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user = &database.ChatUser{
		Channel:    ch,
		ExternalID: externalID,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		Username:   profile.Username,
	}
	if err := e.store.CreateChatUser(ctx, user); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "New chat user", "chat_user_id", user.ID, "channel", ch)
	return user, nil
}

// describeOrderItems renders up to max lines as "2x Classic Cheeseburger,
// 1x French Fries". Unresolvable items are skipped.
func (e *Engine) describeOrderItems(ctx context.Context, items []database.OrderItem, max int) string {
	var parts []string
	for _, it := range items {
		if len(parts) == max {
			break
		}
		menuItem, err := e.store.GetMenuItem(ctx, it.MenuItemID)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, menuItem.Name))
	}
	return strings.Join(parts, ", ")
}

// formatCents renders integer cents as a dollar amount.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
