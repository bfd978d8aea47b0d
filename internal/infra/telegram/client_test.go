package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	domainTelegram "compliance_calendar/internal/domain/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type recordingSender struct {
	to   telebot.Recipient
	what interface{}
	opts []interface{}
}

func (r *recordingSender) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	r.to, r.what, r.opts = to, what, opts
	return &telebot.Message{}, nil
}

func TestTelebotAdapterSend(t *testing.T) {
	rec := &recordingSender{}
	adapter := &TelebotAdapter{bot: rec}

	require.NoError(t, adapter.Send(domainTelegram.Alert{ChatID: -1001, Text: "Due today: Pay", Silent: true}))
	assert.Equal(t, "-1001", rec.to.Recipient())
	assert.Equal(t, "Due today: Pay", rec.what)
	require.Len(t, rec.opts, 1)
	opts := rec.opts[0].(*telebot.SendOptions)
	assert.True(t, opts.DisableNotification)
	assert.True(t, opts.DisableWebPagePreview)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("é", maxMessageRunes+10)
	got := truncate(long, maxMessageRunes)
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
