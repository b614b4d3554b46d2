package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/roster"
)

func formatClasses(classes []*roster.Class, counts map[int64]int) string {
	var b strings.Builder
	b.WriteString("--- Classes ---\n")
	for _, c := range classes {
		fmt.Fprintf(&b, "ID: %d, %s, %d student(s)\n", c.ID, c.Name, counts[c.ID])
	}
	return b.String()
}

func formatStats(stats []assessment.SubjectStats, kinds []assessment.KindSummary) string {
	if len(stats) == 0 {
		return "No assessments recorded for this selection."
	}
	var b strings.Builder
	b.WriteString("--- Subjects ---\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%s: avg %.2f, min %g, max %g (%d)\n", s.Subject, s.Average, s.Min, s.Max, s.Count)
	}
	if len(kinds) > 0 {
		b.WriteString("\n--- By kind (/20) ---\n")
		for _, k := range kinds {
			fmt.Fprintf(&b, "%s: %d record(s), avg %.2f\n", k.Kind.Label(), k.Count, k.AverageNormalized)
		}
	}
	return b.String()
}

func formatDailyNotesSent(subject string, date time.Time, reached int) string {
	return fmt.Sprintf("Daily notes for %s on %s: %d parent(s) reached. Check /deliveries for failures.",
		subject, date.Format("02/01/2006"), reached)
}

func formatDeliveries(entries []*delivery.Entry) string {
	var b strings.Builder
	b.WriteString("--- Deliveries ---\n")
	for _, e := range entries {
		parent := "-"
		if e.ParentID.Valid {
			parent = strconv.FormatInt(e.ParentID.Int64, 10)
		}
		fmt.Fprintf(&b, "#%d %s parent %s, %s, %d/%d attempt(s), %s\n",
			e.ID, e.Template, parent, e.StatusLabel(), e.Attempts, delivery.MaxAttempts, e.CreatedAt.Format("02/01 15:04"))
		if e.Status == delivery.StatusFailed && e.LastError.Valid {
			fmt.Fprintf(&b, "   error: %s\n", e.LastError.String)
		}
	}
	return b.String()
}

// retryMarkup adds one button per entry that can still be retried.
func retryMarkup(entries []*delivery.Entry) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	for _, e := range entries {
		if !e.Retryable() {
			continue
		}
		btn := markup.Data(fmt.Sprintf("Retry #%d", e.ID), retryUnique, strconv.FormatInt(e.ID, 10))
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)
	return markup
}

// parseRetryPayload reads the entry id carried by a retry button.
func parseRetryPayload(data string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(data), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseStatsArgs(args []string) (assessment.Filter, error) {
	var f assessment.Filter
	if len(args) < 1 || len(args) > 2 {
		return f, errors.New("invalid command format")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return f, errors.New("class_id must be a positive number")
	}
	f.ClassID = id
	if len(args) == 2 {
		term, err := strconv.Atoi(args[1])
		if err != nil || term < 1 || term > 3 {
			return f, errors.New("term must be 1, 2 or 3")
		}
		f.Term = term
	}
	return f, nil
}

// parseSendDailyArgs reads "<class_id> <subject words...> [YYYY-MM-DD]".
// The date defaults to today.
func parseSendDailyArgs(args []string, now time.Time) (int64, string, time.Time, error) {
	if len(args) < 2 {
		return 0, "", time.Time{}, errors.New("invalid command format")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", time.Time{}, errors.New("class_id must be a positive number")
	}

	words := args[1:]
	y, m, d := now.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if last := words[len(words)-1]; len(words) > 1 {
		if t, err := time.Parse("2006-01-02", last); err == nil {
			date = t
			words = words[:len(words)-1]
		}
	}
	return id, strings.Join(words, " "), date, nil
}
