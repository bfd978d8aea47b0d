// Package telegram declares how the application reaches the operators' chat.
package telegram

// Alert is one message for a chat.
type Alert struct {
	ChatID int64
	Text   string
	Silent bool // delivered without a notification sound
}

// Client delivers alerts. Implementations own the wire details of the bot API.
type Client interface {
	Send(alert Alert) error
}
