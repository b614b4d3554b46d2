// Package telegram declares the staff chat port used for admin alerts.
package telegram

import "gopkg.in/telebot.v3"

// Client sends a chat message to a staff member. options may be nil.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
