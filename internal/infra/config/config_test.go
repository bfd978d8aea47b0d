package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"STORAGE_DRIVER", "DATABASE_URL", "HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "ENVIRONMENT", "TELEGRAM_TOKEN",
		"ALERTS_TELEGRAM_CHAT_ID", "CRON_SPEC_REMINDERS", "REMINDER_LOOKAHEAD_DAYS", "REDIS_URL", "REMINDER_DEDUP_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/calendar?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, "0 8 * * *", cfg.CronSpecReminders)
	assert.Equal(t, 3, cfg.ReminderLookaheadDays)
	assert.Equal(t, 24*time.Hour, cfg.ReminderDedupTTL)
	assert.False(t, cfg.RemindersEnabled())
}

func TestLoad_MemoryWithTelegram(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ALERTS_TELEGRAM_CHAT_ID", "-1001234")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("REMINDER_DEDUP_TTL", "36h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, int64(-1001234), cfg.AlertsTelegramChatID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, 36*time.Hour, cfg.ReminderDedupTTL)
	assert.True(t, cfg.RemindersEnabled())
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {},
		"unknown driver":       {"STORAGE_DRIVER": "sqlite"},
		"missing chat id":      {"STORAGE_DRIVER": "memory", "TELEGRAM_TOKEN": "token"},
		"bad chat id":          {"STORAGE_DRIVER": "memory", "TELEGRAM_TOKEN": "token", "ALERTS_TELEGRAM_CHAT_ID": "abc"},
		"bad lookahead":        {"STORAGE_DRIVER": "memory", "REMINDER_LOOKAHEAD_DAYS": "-1"},
		"bad log format":       {"STORAGE_DRIVER": "memory", "LOG_FORMAT": "xml"},
		"bad ttl":              {"STORAGE_DRIVER": "memory", "REMINDER_DEDUP_TTL": "daily"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
