package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garcom-bot/garcom/internal/config"
)

func TestLoad_DefaultsWithEnvSecrets(t *testing.T) {
	t.Setenv("GARCOM_GEMINI_API_KEY", "test-key")
	t.Setenv("GARCOM_TELEGRAM_TOKEN", "123:abc")

	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("gemini api key = %q, want env override", cfg.Gemini.APIKey)
	}
	if cfg.Bot.ChunkLimit != config.DefaultChunkLimit {
		t.Errorf("chunk limit = %d, want default %d", cfg.Bot.ChunkLimit, config.DefaultChunkLimit)
	}
	if cfg.Bot.HistoryLimit != config.DefaultHistoryLimit {
		t.Errorf("history limit = %d, want default %d", cfg.Bot.HistoryLimit, config.DefaultHistoryLimit)
	}
	if cfg.Bot.CacheTTL != 30*time.Minute {
		t.Errorf("cache ttl = %v, want 30m", cfg.Bot.CacheTTL)
	}
	if cfg.Messages.Welcome == "" || cfg.Messages.AIError == "" {
		t.Error("default message templates not populated")
	}
	if len(cfg.Scheduler.Tasks) != 2 {
		t.Errorf("scheduler tasks = %v, want the two defaults", cfg.Scheduler.Tasks)
	}
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	t.Setenv("GARCOM_GEMINI_API_KEY", "test-key")
	t.Setenv("GARCOM_TELEGRAM_TOKEN", "123:abc")

	dir := t.TempDir()
	yaml := []byte("bot:\n  chunk_limit: 1000\n  delivery_fee_cents: 750\nlog:\n  level: debug\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.ChunkLimit != 1000 {
		t.Errorf("chunk limit = %d, want file override 1000", cfg.Bot.ChunkLimit)
	}
	if cfg.Bot.DeliveryFeeCents != 750 {
		t.Errorf("delivery fee = %d, want 750", cfg.Bot.DeliveryFeeCents)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_MissingGeminiKeyFailsValidation(t *testing.T) {
	t.Setenv("GARCOM_GEMINI_API_KEY", "")
	t.Setenv("GARCOM_TELEGRAM_TOKEN", "123:abc")

	if _, err := config.Load(t.TempDir()); err == nil {
		t.Fatal("Load should fail without a Gemini API key")
	}
}

func TestLoad_EnabledTelegramRequiresToken(t *testing.T) {
	t.Setenv("GARCOM_GEMINI_API_KEY", "test-key")
	t.Setenv("GARCOM_TELEGRAM_TOKEN", "")

	if _, err := config.Load(t.TempDir()); err == nil {
		t.Fatal("Load should fail with telegram enabled and no token")
	}
}
