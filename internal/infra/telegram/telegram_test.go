package telegram

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_admin/internal/domain/access"
	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/roster"
	"school_admin/internal/infra/config"
)

func TestDirectoryFromConfig(t *testing.T) {
	cfg := &config.AppConfig{
		AdminTelegramID:     1,
		DirectorTelegramIDs: []int64{2, 1},
		TeacherTelegramIDs:  []int64{3, 2},
	}
	dir := DirectoryFromConfig(cfg)

	assert.Equal(t, access.RoleAdmin, dir.RoleOf(1))
	assert.Equal(t, access.RoleDirector, dir.RoleOf(2))
	assert.Equal(t, access.RoleTeacher, dir.RoleOf(3))
	assert.Equal(t, access.RoleNone, dir.RoleOf(4))
}

func TestHelpText(t *testing.T) {
	teacher := helpText(access.RoleTeacher)
	assert.Contains(t, teacher, "/send_daily")
	assert.NotContains(t, teacher, "/retry")

	assert.Contains(t, helpText(access.RoleDirector), "/deliveries")
	assert.Contains(t, helpText(access.RoleNone), "No commands are available")
}

func TestParseStatsArgs(t *testing.T) {
	f, err := parseStatsArgs([]string{"4", "2"})
	require.NoError(t, err)
	assert.Equal(t, assessment.Filter{ClassID: 4, Term: 2}, f)

	f, err = parseStatsArgs([]string{"4"})
	require.NoError(t, err)
	assert.Zero(t, f.Term)

	for _, args := range [][]string{nil, {"x"}, {"0"}, {"4", "5"}, {"4", "1", "2"}} {
		_, err := parseStatsArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseSendDailyArgs(t *testing.T) {
	now := time.Date(2024, 3, 14, 17, 30, 0, 0, time.UTC)

	id, subject, date, err := parseSendDailyArgs([]string{"3", "Sciences", "Physiques"}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "Sciences Physiques", subject)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), date)

	_, subject, date, err = parseSendDailyArgs([]string{"3", "Maths", "2024-03-11"}, now)
	require.NoError(t, err)
	assert.Equal(t, "Maths", subject)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), date)

	// a lone date-looking word is the subject
	_, subject, _, err = parseSendDailyArgs([]string{"3", "2024-03-11"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", subject)

	_, _, _, err = parseSendDailyArgs([]string{"3"}, now)
	assert.Error(t, err)
	_, _, _, err = parseSendDailyArgs([]string{"abc", "Maths"}, now)
	assert.Error(t, err)
}

func TestParseRetryPayload(t *testing.T) {
	tests := []struct {
		data string
		id   int64
		ok   bool
	}{
		{"12", 12, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"-1", 0, false},
		{"retry_3", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseRetryPayload(tt.data)
		assert.Equal(t, tt.ok, ok, tt.data)
		assert.Equal(t, tt.id, id, tt.data)
	}
}

func TestFormatDeliveries(t *testing.T) {
	created := time.Date(2024, 3, 14, 18, 5, 0, 0, time.UTC)
	entries := []*delivery.Entry{
		{
			ID: 9, ParentID: sql.NullInt64{Int64: 2, Valid: true}, Template: delivery.TemplateDailyNotes,
			Channel: delivery.ChannelWhatsApp, Status: delivery.StatusFailed, Attempts: 1,
			LastError: sql.NullString{String: "provider unavailable", Valid: true}, CreatedAt: created,
		},
		{
			ID: 8, ParentID: sql.NullInt64{Int64: 2, Valid: true}, Template: delivery.TemplateDailyNotes,
			Channel: delivery.ChannelEmail, Status: delivery.StatusSent, Attempts: 1, CreatedAt: created,
		},
	}

	out := formatDeliveries(entries)
	assert.Contains(t, out, "#9 daily_notes parent 2, failed_whatsapp, 1/3 attempt(s), 14/03 18:05")
	assert.Contains(t, out, "error: provider unavailable")
	assert.Contains(t, out, "#8 daily_notes parent 2, sent_email")

	markup := retryMarkup(entries)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "Retry #9", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, retryUnique, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "9", markup.InlineKeyboard[0][0].Data)
}

func TestFormatDailyNotesSent(t *testing.T) {
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Daily notes for Maths on 14/03/2024: 1 parent(s) reached. Check /deliveries for failures.",
		formatDailyNotesSent("Maths", date, 1))
}

func TestFormatClassesAndStats(t *testing.T) {
	out := formatClasses([]*roster.Class{{ID: 1, Name: "6ème A"}}, map[int64]int{1: 24})
	assert.Contains(t, out, "ID: 1, 6ème A, 24 student(s)")

	assert.Equal(t, "No assessments recorded for this selection.", formatStats(nil, nil))

	out = formatStats(
		[]assessment.SubjectStats{{Subject: "Maths", Average: 13.5, Min: 9, Max: 18, Count: 2}},
		[]assessment.KindSummary{{Kind: assessment.KindExam, Count: 2, AverageNormalized: 13.5}},
	)
	assert.Contains(t, out, "Maths: avg 13.50, min 9, max 18 (2)")
	assert.Contains(t, out, assessment.KindExam.Label()+": 2 record(s), avg 13.50")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, parts)

	parts = splitMessage("ééééééééééééé", 5)
	assert.Equal(t, []string{"ééééé", "ééééé", "ééé"}, parts)
}
