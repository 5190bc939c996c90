// Package tasks implements the bot's scheduled background tasks and
// their registry.
package tasks

import (
	"log/slog"

	"github.com/garcom-bot/garcom/internal/config"
	"github.com/garcom-bot/garcom/internal/database"
)

// TaskDeps carries the dependencies shared by all scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
