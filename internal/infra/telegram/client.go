// internal/infra/telegram/client.go
package telegram

import (
	"unicode/utf8"

	domainTelegram "compliance_calendar/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// maxMessageRunes is the Bot API limit for a text message.
const maxMessageRunes = 4096

// sender is the part of *telebot.Bot the adapter uses.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter delivers alerts through gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot sender
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// Send posts the alert as plain text to its chat, truncating overlong text.
func (tba *TelebotAdapter) Send(alert domainTelegram.Alert) error {
	opts := &telebot.SendOptions{
		ParseMode:             telebot.ModeDefault,
		DisableWebPagePreview: true,
		DisableNotification:   alert.Silent,
	}
	_, err := tba.bot.Send(telebot.ChatID(alert.ChatID), truncate(alert.Text, maxMessageRunes), opts)
	return err
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
