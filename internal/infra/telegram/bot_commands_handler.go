// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance_calendar/internal/app"
	"compliance_calendar/internal/domain/calendar"
	"compliance_calendar/internal/domain/compliance"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const maxDueLines = 30

// StatusReporter is the read side the bot answers from.
type StatusReporter interface {
	Report(ctx context.Context, f app.ReportFilter, asOf time.Time) ([]app.ReportRow, error)
}

// CommandHandlers answers the bot commands. Only the alerts chat may query data.
type CommandHandlers struct {
	ctx           context.Context
	status        StatusReporter
	alertsChatID  int64
	lookaheadDays int
	logger        *logrus.Entry
	now           func() time.Time
}

func NewCommandHandlers(ctx context.Context, status StatusReporter, alertsChatID int64, lookaheadDays int, baseLogger *logrus.Entry) *CommandHandlers {
	return &CommandHandlers{
		ctx:           ctx,
		status:        status,
		alertsChatID:  alertsChatID,
		lookaheadDays: lookaheadDays,
		logger:        baseLogger.WithField("handler_group", "commands"),
		now:           time.Now,
	}
}

// Register binds the handlers to the bot.
func (h *CommandHandlers) Register(b *telebot.Bot) {
	b.Handle("/start", h.Start)
	b.Handle("/help", h.Help)
	b.Handle("/due", h.Due)
}

func (h *CommandHandlers) authorized(c telebot.Context) bool {
	return c.Chat() != nil && c.Chat().ID == h.alertsChatID
}

func (h *CommandHandlers) logFor(c telebot.Context, command string) *logrus.Entry {
	fields := logrus.Fields{"command": command}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if c.Chat() != nil {
		fields["chat_id"] = c.Chat().ID
	}
	return h.logger.WithFields(fields)
}

func (h *CommandHandlers) Start(c telebot.Context) error {
	logCtx := h.logFor(c, "/start")
	logCtx.Info("Processing /start command")
	if h.authorized(c) {
		return c.Send("Compliance calendar bot is active. Deadline reminders are posted in this chat. Use /help for commands.")
	}
	logCtx.Info("Chat is not the alerts chat")
	return c.Send("This bot posts compliance deadline reminders to its operators' chat. Ask an administrator for access.")
}

func (h *CommandHandlers) Help(c telebot.Context) error {
	h.logFor(c, "/help").Info("Processing /help command")
	if !h.authorized(c) {
		return c.Send("No commands are available in this chat.")
	}
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("`/due [client_id]`\n - Open milestones due within the reminder window, optionally for one client.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (h *CommandHandlers) Due(c telebot.Context) error {
	logCtx := h.logFor(c, "/due")
	if !h.authorized(c) {
		logCtx.Warn("Unauthorized access attempt")
		return c.Send("Error: this command is only available in the alerts chat.")
	}

	asOf := h.now()
	horizon := calendar.DateOf(asOf).AddDate(0, 0, h.lookaheadDays)
	filter := app.ReportFilter{
		DeadlineTo: &horizon,
		Statuses:   []compliance.Status{compliance.StatusPendingLate, compliance.StatusDueToday, compliance.StatusPendingOnTime},
	}
	if args := c.Args(); len(args) > 0 {
		filter.ClientID = args[0]
		logCtx = logCtx.WithField("client_id", filter.ClientID)
	}

	rows, err := h.status.Report(h.ctx, filter, asOf)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build due list")
		return c.Send("An error occurred while loading deadlines. Please try again later.")
	}
	logCtx.WithField("rows", len(rows)).Info("Due list built")
	return c.Send(formatDueList(rows, horizon))
}

func formatDueList(rows []app.ReportRow, horizon time.Time) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Nothing open is due up to %s.", horizon.Format(calendar.DateLayout))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d open milestone(s) due up to %s:\n", len(rows), horizon.Format(calendar.DateLayout))
	for i, row := range rows {
		if i == maxDueLines {
			fmt.Fprintf(&b, "... and %d more", len(rows)-maxDueLines)
			break
		}
		b.WriteString(app.FormatReminder(row))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
