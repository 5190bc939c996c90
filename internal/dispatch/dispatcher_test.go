package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/database"
	"github.com/garcom-bot/garcom/internal/dispatch"
	"github.com/garcom-bot/garcom/internal/testutil"
)

type recordingSender struct {
	sent    []string
	failAll bool
}

func (r *recordingSender) Send(ctx context.Context, externalID, text string) error {
	if r.failAll {
		return errors.New("channel down")
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestSplitChunks_ShortTextPassesThrough(t *testing.T) {
	t.Parallel()

	chunks := dispatch.SplitChunks("hello", 1900)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("SplitChunks = %q, want single chunk", chunks)
	}
}

func TestSplitChunks_ParagraphBoundaries(t *testing.T) {
	t.Parallel()

	// Three paragraphs of ~1000 bytes each; with a 1900-byte ceiling the
	// first two fit together and the third spills into a second chunk.
	para := strings.Repeat("a", 900)
	text := para + "\n\n" + para + "\n\n" + para

	chunks := dispatch.SplitChunks(text, 1900)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: lengths %v", len(chunks), lengths(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1900 {
			t.Errorf("chunk %d is %d bytes, exceeds ceiling", i, len(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("rejoined chunks do not reproduce the original text")
	}
}

func TestSplitChunks_LongMessagePreservesOrder(t *testing.T) {
	t.Parallel()

	var paras []string
	for i := 0; i < 5; i++ {
		paras = append(paras, strings.Repeat(string(rune('a'+i)), 600))
	}
	text := strings.Join(paras, "\n\n") // ~3000 bytes

	chunks := dispatch.SplitChunks(text, 1900)
	if len(chunks) < 2 {
		t.Fatalf("expected 2500+ byte text to split, got %d chunk(s)", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1900 {
			t.Errorf("chunk %d is %d bytes, exceeds ceiling", i, len(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Error("chunk order or content corrupted")
	}
}

func TestSplitChunks_OversizeParagraphHardSplits(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 4100)
	chunks := dispatch.SplitChunks(text, 1900)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Error("hard split lost content")
	}
}

func TestDeliver_SendsAndLogsEveryChunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(store, log, 1900, 0)

	sender := &recordingSender{}
	d.Register(channel.Telegram, sender)

	conv := &database.Conversation{}
	if err := store.CreateConversation(ctx, &database.Conversation{ChatUserID: 1}); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	conv.ID = 1

	para := strings.Repeat("b", 900)
	long := para + "\n\n" + para + "\n\n" + para // ~2700 bytes, two chunks
	d.Deliver(ctx, conv, channel.Telegram, "42", "first", long)

	if len(sender.sent) != 3 {
		t.Fatalf("sent %d messages, want 3 (1 short + 2 chunks)", len(sender.sent))
	}
	if sender.sent[0] != "first" {
		t.Errorf("first send = %q, want %q", sender.sent[0], "first")
	}
	if strings.Join(sender.sent[1:], "") != long {
		t.Error("chunks sent out of order or corrupted")
	}

	logged := 0
	for _, m := range store.Messages {
		if m.ConversationID == conv.ID && !m.IsFromUser {
			logged++
		}
	}
	if logged != 3 {
		t.Errorf("logged %d outbound messages, want 3", logged)
	}
}

func TestDeliver_SendFailureIsLoggedNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(store, log, 1900, 0)
	d.Register(channel.Instagram, &recordingSender{failAll: true})

	conv := &database.Conversation{ID: 7}
	d.Deliver(ctx, conv, channel.Instagram, "ig-1", "hello")

	if len(store.Messages) != 0 {
		t.Errorf("failed sends must not be logged as delivered, got %d", len(store.Messages))
	}
}

func TestDeliver_WithoutConversationSendsButSkipsLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := testutil.NewFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(store, log, 1900, 0)

	sender := &recordingSender{}
	d.Register(channel.Telegram, sender)

	// A failure reply issued before any conversation row exists.
	d.Deliver(ctx, &database.Conversation{}, channel.Telegram, "42", "❌ Something went wrong. Please try again.")

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if len(store.Messages) != 0 {
		t.Errorf("logged %d messages against conversation 0, want none", len(store.Messages))
	}
}

func lengths(ss []string) []int {
	out := make([]int, len(ss))
	for i, s := range ss {
		out[i] = len(s)
	}
	return out
}
