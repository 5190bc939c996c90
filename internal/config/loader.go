package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from, in order of precedence:
// 1. GARCOM_* environment variables
// 2. config.yaml in the given path (or the working directory)
// 3. built-in defaults
// The result is validated before being returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("GARCOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, defaults plus env cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("telegram.enabled", true)
	// Secrets default empty so the keys are known to viper and the
	// GARCOM_* environment overrides are picked up during Unmarshal.
	v.SetDefault("telegram.token", "")

	v.SetDefault("instagram.enabled", false)
	v.SetDefault("instagram.verify_token", "")
	v.SetDefault("instagram.access_token", "")
	v.SetDefault("instagram.listen_addr", DefaultInstagramListenAddr)
	v.SetDefault("instagram.graph_base_url", DefaultInstagramGraphBaseURL)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.system_instruction", DefaultGeminiInstruction)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("bot.history_limit", DefaultHistoryLimit)
	v.SetDefault("bot.chunk_limit", DefaultChunkLimit)
	v.SetDefault("bot.chunk_delay", DefaultChunkDelay)
	v.SetDefault("bot.cache_ttl", DefaultCacheTTL)
	v.SetDefault("bot.reorder_recency", DefaultReorderRecency)
	v.SetDefault("bot.delivery_fee_cents", DefaultDeliveryFeeCents)
	v.SetDefault("bot.stale_order_age", DefaultStaleOrderAge)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.welcome_back", DefaultMessages.WelcomeBack)
	v.SetDefault("messages.unknown", DefaultMessages.Unknown)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.ai_error", DefaultMessages.AIError)
	v.SetDefault("messages.denied", DefaultMessages.Denied)
	v.SetDefault("messages.not_found", DefaultMessages.NotFound)
	v.SetDefault("messages.item_not_found", DefaultMessages.ItemNotFound)
	v.SetDefault("messages.no_recent_order", DefaultMessages.NoRecentOrder)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
	v.SetDefault("scheduler.tasks.stale_orders.enabled", true)
	v.SetDefault("scheduler.tasks.stale_orders.schedule", "0 30 * * * *")
}
