package telegram

import (
	"strings"
	"unicode/utf8"

	"gopkg.in/telebot.v3"
)

// maxMessageLen is Telegram's limit on the text of one message, in characters.
const maxMessageLen = 4096

// TelebotAdapter implements the domain Client interface with gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends text to a staff member's private chat, split over several
// messages when it exceeds the Telegram limit.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	chat := telebot.ChatID(recipientChatID)
	for _, part := range splitMessage(text, maxMessageLen) {
		if _, err := tba.bot.Send(chat, part, options); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into parts of at most limit characters, preferring
// line boundaries. A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var b strings.Builder
	n := 0
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if n+size > limit {
			flush()
		}
		for size > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			size -= limit
		}
		b.WriteString(line)
		n += size
	}
	flush()
	return parts
}
