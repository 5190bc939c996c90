// Package telegram adapts the Telegram Bot API to the conversation
// engine: a long-polling listener feeding inbound messages in, and a
// channel.Sender for outbound replies.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/conversation"
)

// Adapter bridges Telegram updates and the engine. The chat ID doubles
// as the channel-external user ID; for direct messages they coincide.
type Adapter struct {
	bot    *tgbot.Bot
	engine *conversation.Engine
	log    *slog.Logger
}

// New creates the adapter and its underlying Telegram client. Every
// non-command text message is routed to the engine.
func New(token string, engine *conversation.Engine, log *slog.Logger) (*Adapter, error) {
	a := &Adapter{
		engine: engine,
		log:    log.With("component", "telegram_adapter"),
	}

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(a.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	a.bot = b
	return a, nil
}

// Run starts long polling and blocks until the context is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	a.log.Info("Starting Telegram listener")
	a.bot.Start(ctx)
	a.log.Info("Telegram listener stopped")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}

func (a *Adapter) handleUpdate(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		a.log.DebugContext(ctx, "Ignoring update without text message", "update_id", update.ID)
		return
	}

	externalID := strconv.FormatInt(msg.Chat.ID, 10)
	profile := conversation.UserProfile{
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.Username,
	}

	a.log.DebugContext(ctx, "Inbound Telegram message", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	a.engine.HandleTurn(ctx, channel.Telegram, externalID, profile, msg.Text)
}

// Send delivers one outbound text to a Telegram chat.
func (a *Adapter) Send(ctx context.Context, externalID, text string) error {
	chatID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", externalID, err)
	}

	_, err = a.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message to %d: %w", chatID, err)
	}
	return nil
}

var _ channel.Sender = (*Adapter)(nil)
