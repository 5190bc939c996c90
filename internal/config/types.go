// Package config provides configuration loading, validation, and defaults
// for the garcom bot. Values come from config.yaml and GARCOM_* environment
// variables, validated with go-playground/validator.
package config

import "time"

// Config defines the application configuration for all components of the
// bot: logging, channels, AI integration, database, conversation tuning,
// and scheduled tasks.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the Telegram channel adapter settings.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
}

// InstagramConfig holds the Instagram (Meta Graph) channel adapter settings.
type InstagramConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	VerifyToken  string `mapstructure:"verify_token" validate:"required_if=Enabled true"`
	AccessToken  string `mapstructure:"access_token" validate:"required_if=Enabled true"`
	ListenAddr   string `mapstructure:"listen_addr"`
	GraphBaseURL string `mapstructure:"graph_base_url" validate:"url"`
}

// GeminiConfig holds settings for the generative completion client.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	Model             string        `mapstructure:"model" validate:"required"`
	Temperature       float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction" validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BotConfig tunes conversation, dispatch, and order behavior.
type BotConfig struct {
	HistoryLimit     int           `mapstructure:"history_limit" validate:"min=1,max=100"`
	ChunkLimit       int           `mapstructure:"chunk_limit" validate:"min=200,max=4096"`
	ChunkDelay       time.Duration `mapstructure:"chunk_delay"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" validate:"min=1m"`
	ReorderRecency   time.Duration `mapstructure:"reorder_recency"`
	DeliveryFeeCents int64         `mapstructure:"delivery_fee_cents" validate:"min=0"`
	StaleOrderAge    time.Duration `mapstructure:"stale_order_age"`
}

// MessagesConfig holds the user-facing message templates.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome" validate:"required"`
	WelcomeBack   string `mapstructure:"welcome_back" validate:"required"`
	Unknown       string `mapstructure:"unknown" validate:"required"`
	GeneralError  string `mapstructure:"general_error" validate:"required"`
	AIError       string `mapstructure:"ai_error" validate:"required"`
	Denied        string `mapstructure:"denied" validate:"required"`
	NotFound      string `mapstructure:"not_found" validate:"required"`
	ItemNotFound  string `mapstructure:"item_not_found" validate:"required"`
	NoRecentOrder string `mapstructure:"no_recent_order" validate:"required"`
}

// SchedulerConfig holds the scheduled task definitions keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
