// Package main contains the entrypoint for the garcom ordering bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garcom-bot/garcom/internal/advisor"
	"github.com/garcom-bot/garcom/internal/bot"
	"github.com/garcom-bot/garcom/internal/bot/tasks"
	"github.com/garcom-bot/garcom/internal/channel"
	"github.com/garcom-bot/garcom/internal/channel/instagram"
	"github.com/garcom-bot/garcom/internal/channel/telegram"
	"github.com/garcom-bot/garcom/internal/config"
	"github.com/garcom-bot/garcom/internal/conversation"
	"github.com/garcom-bot/garcom/internal/database"
	"github.com/garcom-bot/garcom/internal/dispatch"
	"github.com/garcom-bot/garcom/internal/gemini"
	"github.com/garcom-bot/garcom/internal/logger"
	"github.com/garcom-bot/garcom/internal/order"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, starts the orchestrator, and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", ".", "Directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	completions, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	dispatcher := dispatch.New(store, log, cfg.Bot.ChunkLimit, cfg.Bot.ChunkDelay)
	engine := conversation.NewEngine(
		store,
		conversation.NewCache(store, log, cfg.Bot.CacheTTL),
		order.NewManager(store, log, cfg.Bot.DeliveryFeeCents),
		advisor.New(store, log, cfg.Bot.ReorderRecency),
		completions,
		dispatcher,
		cfg.Messages,
		cfg.Bot.HistoryLimit,
		log,
	)

	var tg *telegram.Adapter
	if cfg.Telegram.Enabled {
		tg, err = telegram.New(cfg.Telegram.Token, engine, log)
		if err != nil {
			log.Error("Failed to create Telegram adapter", "error", err)
			return 1
		}
		dispatcher.Register(channel.Telegram, tg)
	}

	var ig *instagram.Adapter
	if cfg.Instagram.Enabled {
		ig = instagram.New(cfg.Instagram, engine, log)
		dispatcher.Register(channel.Instagram, ig)
	}

	if tg == nil && ig == nil {
		log.Error("No channel enabled; enable telegram or instagram in the configuration")
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, ig, sched)

	log.Info("Starting bot")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	time.Sleep(time.Second)
	return 0
}
