// Package instagram adapts the Meta Graph messaging API to the
// conversation engine: a webhook endpoint (GET verification handshake,
// POST event delivery) and a channel.Sender over the me/messages edge.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/config"
	"github.com/garcom-bot/garcom/internal/conversation"
)

const (
	sendTimeout = 10 * time.Second
	turnTimeout = 3 * time.Minute
)

// Adapter serves the Instagram webhook and sends replies through the
// Graph API. Webhook verification is a pure check against the
// configured shared secret; it gates event delivery into the engine.
type Adapter struct {
	cfg    config.InstagramConfig
	engine *conversation.Engine
	log    *slog.Logger
	client *http.Client
	server *http.Server
}

// New creates the adapter and its HTTP server.
func New(cfg config.InstagramConfig, engine *conversation.Engine, log *slog.Logger) *Adapter {
	a := &Adapter{
		cfg:    cfg,
		engine: engine,
		log:    log.With("component", "instagram_adapter"),
		client: &http.Client{Timeout: sendTimeout},
	}

	r := mux.NewRouter()
	r.HandleFunc("/webhook", a.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/webhook", a.handleEvents).Methods(http.MethodPost)

	a.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return a
}

// Handler exposes the webhook router, primarily for tests.
func (a *Adapter) Handler() http.Handler {
	return a.server.Handler
}

// Run serves the webhook until the context is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting Instagram webhook server", "addr", a.cfg.ListenAddr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Webhook server shutdown error", "error", err)
		}
		a.log.Info("Instagram webhook server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("instagram webhook server failed: %w", err)
	}
}

// handleVerify implements the Graph subscription handshake: echo the
// challenge when mode and token match, reject otherwise.
func (a *Adapter) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != a.cfg.VerifyToken {
		a.log.Warn("Webhook verification rejected", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	a.log.Info("Webhook verified")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// webhookPayload is the subset of the Graph webhook body the bot reads.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// handleEvents acknowledges immediately and runs each turn in the
// background; the Graph API redelivers on slow responses and the core
// does not deduplicate, so the 200 must not wait on the engine.
func (a *Adapter) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.log.Error("Failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		a.log.Error("Failed to parse webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if ev.Sender.ID == "" || ev.Message.Text == "" || ev.Message.IsEcho {
				continue
			}
			senderID, text := ev.Sender.ID, ev.Message.Text
			a.log.Debug("Inbound Instagram message", "sender_id", senderID)

			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
				defer cancel()
				a.engine.HandleTurn(ctx, channel.Instagram, senderID, conversation.UserProfile{}, text)
			}()
		}
	}

	w.WriteHeader(http.StatusOK)
}

// graphSendRequest is the me/messages payload.
type graphSendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Send delivers one outbound text through the Graph me/messages edge.
func (a *Adapter) Send(ctx context.Context, externalID, text string) error {
	var req graphSendRequest
	req.Recipient.ID = externalID
	req.Message.Text = text

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode graph send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s",
		a.cfg.GraphBaseURL, url.QueryEscape(a.cfg.AccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graph send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("graph send to %s failed: %w", externalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph send to %s returned %d: %s", externalID, resp.StatusCode, detail)
	}
	return nil
}

var _ channel.Sender = (*Adapter)(nil)
