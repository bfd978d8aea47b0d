package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StorageDriver         string
	DatabaseURL           string
	HTTPAddr              string
	LogLevel              string
	LogFormat             string // json or text, derived from Environment when unset
	Environment           string
	TelegramToken         string // Empty disables the bot and reminders
	AlertsTelegramChatID  int64
	CronSpecReminders     string
	ReminderLookaheadDays int
	RedisURL              string // Empty falls back to the in-process ledger
	ReminderDedupTTL      time.Duration
}

// RemindersEnabled reports whether a Telegram destination is configured.
func (c *AppConfig) RemindersEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.StorageDriver = strings.ToLower(getenv("STORAGE_DRIVER", StorageDriverPostgres))
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, StorageDriverPostgres, StorageDriverMemory)
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))
	cfg.LogFormat = strings.ToLower(os.Getenv("LOG_FORMAT"))
	switch cfg.LogFormat {
	case LogFormatJSON, LogFormatText:
	case "":
		cfg.LogFormat = LogFormatText
		if cfg.Environment == "production" || cfg.Environment == "staging" {
			cfg.LogFormat = LogFormatJSON
		}
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want %s or %s", cfg.LogFormat, LogFormatJSON, LogFormatText)
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		chatIDStr := os.Getenv("ALERTS_TELEGRAM_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("ALERTS_TELEGRAM_CHAT_ID is not set")
		}
		cfg.AlertsTelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ALERTS_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.CronSpecReminders = getenv("CRON_SPEC_REMINDERS", "0 8 * * *") // Default: 8 AM daily

	cfg.ReminderLookaheadDays, err = strconv.Atoi(getenv("REMINDER_LOOKAHEAD_DAYS", "3"))
	if err != nil || cfg.ReminderLookaheadDays < 0 {
		return nil, fmt.Errorf("invalid REMINDER_LOOKAHEAD_DAYS %q", os.Getenv("REMINDER_LOOKAHEAD_DAYS"))
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.ReminderDedupTTL, err = time.ParseDuration(getenv("REMINDER_DEDUP_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_DEDUP_TTL: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
