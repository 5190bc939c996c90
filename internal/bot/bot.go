// Package bot orchestrates the application components: the channel
// listeners and the task scheduler, run under one errgroup with
// graceful shutdown on context cancellation.
package bot

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/garcom-bot/garcom/internal/channel/instagram"
	"github.com/garcom-bot/garcom/internal/channel/telegram"
)

// Bot owns the component lifecycle. Either channel adapter may be nil
// when disabled in configuration; at least one should be set for the
// bot to be reachable.
type Bot struct {
	logger    *slog.Logger
	telegram  *telegram.Adapter
	instagram *instagram.Adapter
	scheduler *Scheduler
}

// NewBot assembles the orchestrator.
func NewBot(logger *slog.Logger, tg *telegram.Adapter, ig *instagram.Adapter, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		telegram:  tg,
		instagram: ig,
		scheduler: scheduler,
	}
}

// Run starts every enabled component and blocks until the context is
// cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	if b.telegram != nil {
		g.Go(func() error {
			return b.telegram.Run(gCtx)
		})
	}
	if b.instagram != nil {
		g.Go(func() error {
			return b.instagram.Run(gCtx)
		})
	}

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return err
		}
		<-gCtx.Done()
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
