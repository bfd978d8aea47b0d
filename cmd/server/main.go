package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/infra/cache"
	"compliance_calendar/internal/infra/config"
	"compliance_calendar/internal/infra/httpapi"
	"compliance_calendar/internal/infra/logger"
	"compliance_calendar/internal/infra/scheduler"
	"compliance_calendar/internal/infra/storage"
	"compliance_calendar/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Compliance Calendar starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg, os.Stdout)
	mainLogger := logger.For("main")
	mainLogger.WithFields(logrus.Fields{"storage": cfg.StorageDriver, "environment": cfg.Environment}).Info("Configuration loaded")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	backend, err := storage.Open(appCtx, cfg, true, logger.For("storage"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open storage")
	}
	defer backend.Close()

	calendarService := app.NewCalendarService(backend.Tx, logger.For("calendar_service"), time.Now)
	fulfillmentService := app.NewFulfillmentService(backend.Tx, logger.For("fulfillment_service"), time.Now)
	statusService := app.NewStatusService(backend.Tx, logger.For("status_service"))

	var (
		bot           *telebot.Bot
		reminderSched *scheduler.ReminderScheduler
	)
	if cfg.RemindersEnabled() {
		bot, reminderSched, err = startTelegram(appCtx, cfg, statusService)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not start Telegram integration")
		}
	} else {
		mainLogger.Info("TELEGRAM_TOKEN not set, bot and reminders disabled")
	}

	handler := httpapi.NewHandler(calendarService, fulfillmentService, statusService, logger.For("http"), time.Now)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, logger.For("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	cancelApp()
	if reminderSched != nil {
		reminderSched.Stop()
	}
	if bot != nil {
		bot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLogger.Info("Application shut down gracefully")
}

// startTelegram wires the bot commands and the reminder job.
func startTelegram(ctx context.Context, cfg *config.AppConfig, status *app.StatusService) (*telebot.Bot, *scheduler.ReminderScheduler, error) {
	botLogger := logger.For("telebot")
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"message": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}

	ledger, err := newReminderLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	telegram.NewCommandHandlers(ctx, status, cfg.AlertsTelegramChatID, cfg.ReminderLookaheadDays, botLogger).Register(bot)

	reminders := app.NewReminderService(
		status,
		ledger,
		telegram.NewTelebotAdapter(bot),
		cfg.AlertsTelegramChatID,
		cfg.ReminderLookaheadDays,
		logger.For("reminder_service"),
	)
	sched := scheduler.NewReminderScheduler(reminders, logger.For("scheduler"), cfg.CronSpecReminders)
	if err := sched.Start(); err != nil {
		return nil, nil, err
	}

	go bot.Start()
	botLogger.WithField("alerts_chat_id", cfg.AlertsTelegramChatID).Info("Telegram bot started")
	return bot, sched, nil
}

// newReminderLedger prefers Redis so several instances share one ledger.
func newReminderLedger(ctx context.Context, cfg *config.AppConfig) (app.ReminderLedger, error) {
	if cfg.RedisURL == "" {
		logger.For("cache").Info("REDIS_URL not set, using in-process reminder ledger")
		return cache.NewMemoryLedger(cfg.ReminderDedupTTL), nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisLedger(client, cfg.ReminderDedupTTL), nil
}
