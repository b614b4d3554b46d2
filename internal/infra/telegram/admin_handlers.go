package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"school_admin/internal/domain/access"
	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/errs"
	"school_admin/internal/domain/roster"
)

const (
	defaultDeliveriesShown = 10
	maxDeliveriesShown     = 50
	retryUnique            = "retry"
)

// RosterReader is the roster part the bot reads.
type RosterReader interface {
	ListClasses(ctx context.Context) ([]*roster.Class, error)
	ListStudentsByClass(ctx context.Context, classID int64) ([]*roster.Student, error)
}

// Reports is the ledger part the bot reads.
type Reports interface {
	Aggregate(ctx context.Context, f assessment.Filter) ([]assessment.SubjectStats, error)
	KindSummary(ctx context.Context, f assessment.Filter) ([]assessment.KindSummary, error)
}

// Dispatcher is the notification part the bot drives.
type Dispatcher interface {
	SendDailyNotes(ctx context.Context, classID int64, subject string, date time.Time) (int, error)
	RetryPending(ctx context.Context) (int, error)
	RetryEntry(ctx context.Context, id int64) (*delivery.Entry, error)
	RecentDeliveries(ctx context.Context, limit int) ([]*delivery.Entry, error)
}

type AdminHandlers struct {
	ctx        context.Context
	roster     RosterReader
	reports    Reports
	dispatcher Dispatcher
	dir        access.Directory
	logger     *logrus.Entry
}

func NewAdminHandlers(ctx context.Context, r RosterReader, rep Reports, d Dispatcher, dir access.Directory, logger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{ctx: ctx, roster: r, reports: rep, dispatcher: d, dir: dir, logger: logger}
}

// Register wires every admin command and the retry button on b.
func (h *AdminHandlers) Register(b *telebot.Bot) {
	b.Handle("/classes", h.guard("/classes", access.ActionViewRoster, h.handleClasses))
	b.Handle("/class_stats", h.guard("/class_stats", access.ActionViewReports, h.handleClassStats))
	b.Handle("/send_daily", h.guard("/send_daily", access.ActionNotify, h.handleSendDaily))
	b.Handle("/deliveries", h.guard("/deliveries", access.ActionManageDelivery, h.handleDeliveries))
	b.Handle("/retry", h.guard("/retry", access.ActionManageDelivery, h.handleRetrySweep))
	b.Handle(&telebot.Btn{Unique: retryUnique}, h.guard("retry_button", access.ActionManageDelivery, h.handleRetryButton))
}

type handlerFunc func(c telebot.Context, log *logrus.Entry) error

// guard logs the call and rejects senders whose role lacks action.
func (h *AdminHandlers) guard(name string, action access.Action, next handlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		senderID := c.Sender().ID
		log := h.logger.WithFields(logrus.Fields{"handler": name, "sender_id": senderID})
		log.Info("Command received")

		if !h.allowed(senderID, action) {
			log.Warn("Unauthorized access attempt")
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: "Not allowed."})
			}
			return c.Send("Error: you are not allowed to run this command.")
		}
		return next(c, log)
	}
}

func (h *AdminHandlers) allowed(senderID int64, action access.Action) bool {
	return access.Can(h.dir.RoleOf(senderID), action)
}

func (h *AdminHandlers) handleClasses(c telebot.Context, log *logrus.Entry) error {
	classes, err := h.roster.ListClasses(h.ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list classes")
		return c.Send("An error occurred while listing classes.")
	}
	if len(classes) == 0 {
		return c.Send("No classes yet.")
	}

	counts := make(map[int64]int, len(classes))
	for _, cl := range classes {
		students, err := h.roster.ListStudentsByClass(h.ctx, cl.ID)
		if err != nil {
			log.WithError(err).WithField("class_id", cl.ID).Error("Failed to list students")
			return c.Send("An error occurred while listing classes.")
		}
		counts[cl.ID] = len(students)
	}
	return c.Send(formatClasses(classes, counts))
}

func (h *AdminHandlers) handleClassStats(c telebot.Context, log *logrus.Entry) error {
	f, err := parseStatsArgs(c.Args())
	if err != nil {
		return c.Send("Error: " + err.Error() + "\nUsage: /class_stats <class_id> [term]")
	}
	log = log.WithFields(logrus.Fields{"class_id": f.ClassID, "term": f.Term})

	stats, err := h.reports.Aggregate(h.ctx, f)
	if err != nil {
		log.WithError(err).Error("Failed to aggregate scores")
		return c.Send("An error occurred while computing statistics.")
	}
	kinds, err := h.reports.KindSummary(h.ctx, f)
	if err != nil {
		log.WithError(err).Error("Failed to summarize kinds")
		return c.Send("An error occurred while computing statistics.")
	}
	return c.Send(formatStats(stats, kinds))
}

func (h *AdminHandlers) handleSendDaily(c telebot.Context, log *logrus.Entry) error {
	classID, subject, date, err := parseSendDailyArgs(c.Args(), time.Now())
	if err != nil {
		return c.Send("Error: " + err.Error() + "\nUsage: /send_daily <class_id> <subject> [YYYY-MM-DD]")
	}
	log = log.WithFields(logrus.Fields{"class_id": classID, "subject": subject, "date": date.Format("2006-01-02")})

	reached, err := h.dispatcher.SendDailyNotes(h.ctx, classID, subject, date)
	if errors.Is(err, errs.ErrNotFound) {
		return c.Send(fmt.Sprintf("Class %d not found.", classID))
	}
	if err != nil {
		log.WithError(err).Error("Daily notes dispatch failed")
		return c.Send(fmt.Sprintf("Dispatch stopped: %v", err))
	}
	log.WithField("reached", reached).Info("Daily notes dispatched")
	return c.Send(formatDailyNotesSent(subject, date, reached))
}

func (h *AdminHandlers) handleDeliveries(c telebot.Context, log *logrus.Entry) error {
	limit := defaultDeliveriesShown
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return c.Send("Usage: /deliveries [count]")
		}
		limit = min(n, maxDeliveriesShown)
	}

	entries, err := h.dispatcher.RecentDeliveries(h.ctx, limit)
	if err != nil {
		log.WithError(err).Error("Failed to list deliveries")
		return c.Send("An error occurred while listing deliveries.")
	}
	if len(entries) == 0 {
		return c.Send("The delivery log is empty.")
	}
	return c.Send(formatDeliveries(entries), retryMarkup(entries))
}

func (h *AdminHandlers) handleRetrySweep(c telebot.Context, log *logrus.Entry) error {
	sent, err := h.dispatcher.RetryPending(h.ctx)
	if err != nil {
		log.WithError(err).Error("Manual retry sweep failed")
		return c.Send(fmt.Sprintf("Retry sweep stopped: %v", err))
	}
	return c.Send(fmt.Sprintf("Retry sweep done: %d message(s) sent.", sent))
}

func (h *AdminHandlers) handleRetryButton(c telebot.Context, log *logrus.Entry) error {
	data := c.Callback().Data
	id, ok := parseRetryPayload(data)
	if !ok {
		log.WithField("data", data).Warn("Unhandled callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	}
	log = log.WithField("entry_id", id)

	e, err := h.dispatcher.RetryEntry(h.ctx, id)
	switch {
	case errors.Is(err, delivery.ErrNotRetryable):
		return c.Respond(&telebot.CallbackResponse{Text: "This entry can no longer be retried."})
	case errors.Is(err, errs.ErrNotFound):
		return c.Respond(&telebot.CallbackResponse{Text: "Entry not found."})
	case err != nil:
		log.WithError(err).Error("Manual retry failed")
		return c.Respond(&telebot.CallbackResponse{Text: "An error occurred."})
	}
	log.WithField("status", e.StatusLabel()).Info("Manual retry done")
	return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("#%d: %s (attempt %d/%d)", e.ID, e.StatusLabel(), e.Attempts, delivery.MaxAttempts)})
}
