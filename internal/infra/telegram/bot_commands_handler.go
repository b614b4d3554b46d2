package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"school_admin/internal/domain/access"
	"school_admin/internal/infra/config"
)

// DirectoryFromConfig maps the configured Telegram ids to roles. An id listed
// twice keeps its strongest role.
func DirectoryFromConfig(cfg *config.AppConfig) access.Directory {
	dir := access.Directory{}
	for _, id := range cfg.TeacherTelegramIDs {
		dir[id] = access.RoleTeacher
	}
	for _, id := range cfg.DirectorTelegramIDs {
		dir[id] = access.RoleDirector
	}
	if cfg.AdminTelegramID != 0 {
		dir[cfg.AdminTelegramID] = access.RoleAdmin
	}
	return dir
}

type commandHelp struct {
	usage  string
	about  string
	action access.Action
}

var commands = []commandHelp{
	{"/classes", "List classes with their number of students.", access.ActionViewRoster},
	{"/class_stats <class_id> [term]", "Per-subject averages and per-kind summary of a class.", access.ActionViewReports},
	{"/send_daily <class_id> <subject> [YYYY-MM-DD]", "Send the day's notes of a subject to the class parents.", access.ActionNotify},
	{"/deliveries [count]", "Latest delivery log entries, with retry buttons for failures.", access.ActionManageDelivery},
	{"/retry", "Run the retry sweep now.", access.ActionManageDelivery},
}

// helpText lists the commands the role may use.
func helpText(role access.Role) string {
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	n := 0
	for _, c := range commands {
		if !access.Can(role, c.action) {
			continue
		}
		fmt.Fprintf(&b, "`%s`\n - %s\n\n", c.usage, c.about)
		n++
	}
	if n == 0 {
		return "No commands are available to you. Ask the school administrator for access."
	}
	b.WriteString("`/help`\n - Show this message.")
	return b.String()
}

func RegisterBotCommands(b *telebot.Bot, dir access.Directory, school string, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		role := dir.RoleOf(senderID)
		startHelpLogger.WithFields(logrus.Fields{"command": "/start", "sender_id": senderID, "role": role}).Info("Processing /start command")

		if role == access.RoleNone {
			return c.Send(fmt.Sprintf("Hello! This is the %s administration bot. Ask the administrator to register your Telegram ID (%d).", school, senderID))
		}
		return c.Send(fmt.Sprintf("Hello %s! You are registered as %s. Use /help for the list of commands.", c.Sender().FirstName, role))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		role := dir.RoleOf(senderID)
		startHelpLogger.WithFields(logrus.Fields{"command": "/help", "sender_id": senderID, "role": role}).Info("Processing /help command")
		return c.Send(helpText(role), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
