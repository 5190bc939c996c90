// Package dispatch sequences outbound messages for a conversation turn.
// Sends for one conversation are strictly ordered, long texts are split on
// paragraph boundaries under a fixed ceiling, and every delivered chunk is
// logged to the conversation message log.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
)

// Dispatcher delivers outbound texts through the registered channel
// senders. It is not responsible for retries; a failed send is logged and
// delivery moves on.
type Dispatcher struct {
	senders    map[channel.Kind]channel.Sender
	store      database.Store
	log        *slog.Logger
	chunkLimit int
	chunkDelay time.Duration
}

// New creates a dispatcher. chunkLimit is the outbound fragment ceiling in
// bytes; chunkDelay spaces consecutive chunks to respect channel rate
// limits.
func New(store database.Store, log *slog.Logger, chunkLimit int, chunkDelay time.Duration) *Dispatcher {
	if chunkLimit <= 0 {
		chunkLimit = 1900
	}
	return &Dispatcher{
		senders:    map[channel.Kind]channel.Sender{},
		store:      store,
		log:        log.With("component", "dispatcher"),
		chunkLimit: chunkLimit,
		chunkDelay: chunkDelay,
	}
}

// Register attaches a sender for a channel. Not safe to call after
// delivery starts.
func (d *Dispatcher) Register(kind channel.Kind, sender channel.Sender) {
	d.senders[kind] = sender
}

// Deliver sends each text, in order, to the conversation's user. Texts
// over the chunk ceiling are split on paragraph boundaries; each delivered
// chunk is appended to the conversation log with is_from_user=false.
func (d *Dispatcher) Deliver(ctx context.Context, conv *database.Conversation, kind channel.Kind, externalID string, texts ...string) {
	sender, ok := d.senders[kind]
	if !ok {
		d.log.ErrorContext(ctx, "No sender registered for channel", "channel", kind)
		return
	}

	first := true
	for _, text := range texts {
		if text == "" {
			continue
		}
		for _, chunk := range SplitChunks(text, d.chunkLimit) {
			if !first && d.chunkDelay > 0 {
				select {
				case <-time.After(d.chunkDelay):
				case <-ctx.Done():
					d.log.WarnContext(ctx, "Delivery cancelled mid-turn", "conversation_id", conv.ID, "error", ctx.Err())
					return
				}
			}
			first = false

			if err := sender.Send(ctx, externalID, chunk); err != nil {
				d.log.ErrorContext(ctx, "Failed to send message", "channel", kind, "external_id", externalID, "error", err)
				continue
			}

			// Failure replies sent before a conversation exists have no row
			// to log against.
			if conv.ID == 0 {
				continue
			}

			msg := &database.ConversationMessage{
				ConversationID: conv.ID,
				Content:        chunk,
				IsFromUser:     false,
				Timestamp:      time.Now().UTC(),
			}
			if err := d.store.AppendMessage(ctx, msg); err != nil {
				d.log.ErrorContext(ctx, "Failed to log outbound message", "conversation_id", conv.ID, "error", err)
			}
		}
	}
}

// SplitChunks splits text into fragments of at most limit bytes,
// preferring paragraph boundaries, then line boundaries, then a hard rune
// split for pathological cases. Original order is preserved.
func SplitChunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current string

	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, para := range splitKeepingSeparator(text, "\n\n") {
		if len(para) > limit {
			flush()
			for _, line := range splitKeepingSeparator(para, "\n") {
				if len(line) > limit {
					flush()
					chunks = append(chunks, hardSplit(line, limit)...)
					continue
				}
				appendPiece(&current, line, limit, flush, &chunks)
			}
			continue
		}
		appendPiece(&current, para, limit, flush, &chunks)
	}
	flush()
	return chunks
}

func appendPiece(current *string, piece string, limit int, flush func(), chunks *[]string) {
	if len(*current)+len(piece) > limit {
		flush()
	}
	*current += piece
}

// splitKeepingSeparator splits s by sep, keeping the separator attached to
// the preceding piece so that rejoining chunks reproduces the original.
func splitKeepingSeparator(s, sep string) []string {
	var out []string
	for {
		idx := strings.Index(s, sep)
		if idx < 0 {
			if s != "" {
				out = append(out, s)
			}
			return out
		}
		out = append(out, s[:idx+len(sep)])
		s = s[idx+len(sep):]
	}
}

// hardSplit cuts s into limit-sized pieces on rune boundaries.
func hardSplit(s string, limit int) []string {
	var out []string
	runes := []rune(s)
	var b []rune
	size := 0
	for _, r := range runes {
		rl := len(string(r))
		if size+rl > limit {
			out = append(out, string(b))
			b = b[:0]
			size = 0
		}
		b = append(b, r)
		size += rl
	}
	if len(b) > 0 {
		out = append(out, string(b))
	}
	return out
}
