package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/errs"
)

type recordingNotifier struct {
	calls []int64
}

func (n *recordingNotifier) SendDailyNotes(_ context.Context, classID int64, _ string, _ time.Time) (int, error) {
	n.calls = append(n.calls, classID)
	return 0, nil
}

func TestLedgerCreateNormalizes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	st := mustStudent(t, store, "Jean", "Dupont", 0)
	svc := NewLedgerService(store, nil, 0, testLogger())

	a, err := svc.Create(ctx, NewAssessment{
		StudentID: st.ID, Subject: "Maths", Kind: assessment.KindExam,
		Score: 15, MaxScore: 20, Date: testDate, Term: 1,
	})
	require.NoError(t, err)

	n, err := a.Normalized(20)
	require.NoError(t, err)
	assert.Equal(t, 15.0, n)
}

func TestLedgerRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	st := mustStudent(t, store, "Jean", "Dupont", 0)
	svc := NewLedgerService(store, nil, 0, testLogger())

	in := NewAssessment{
		StudentID: st.ID, Subject: "Maths", Kind: assessment.KindQuiz,
		Score: 18, MaxScore: 20, Date: testDate, Term: 1,
	}
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	// time of day does not make a new record
	in.Date = testDate.Add(10 * time.Hour)
	_, err = svc.Create(ctx, in)
	assert.True(t, errors.Is(err, assessment.ErrDuplicateAssessment))
	assert.True(t, errors.Is(err, errs.ErrDuplicateIdentity))

	items, err := svc.List(ctx, assessment.Filter{StudentID: st.ID, Date: testDate})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLedgerCreateValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	st := mustStudent(t, store, "Jean", "Dupont", 0)
	svc := NewLedgerService(store, nil, 0, testLogger())

	_, err := svc.Create(ctx, NewAssessment{
		StudentID: st.ID, Subject: "  ", Kind: "oral",
		Score: 12, MaxScore: 0, Date: testDate, Term: 4,
	})
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	fields := make([]string, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"subject", "kind", "max_score", "term"}, fields)

	_, err = svc.Create(ctx, NewAssessment{
		StudentID: 999, Subject: "Maths", Kind: assessment.KindQuiz,
		Score: 12, MaxScore: 20, Date: testDate, Term: 1,
	})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestLedgerUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	st := mustStudent(t, store, "Jean", "Dupont", 0)
	svc := NewLedgerService(store, nil, 0, testLogger())

	base := NewAssessment{StudentID: st.ID, Subject: "Maths", Kind: assessment.KindQuiz, Score: 10, MaxScore: 20, Date: testDate, Term: 1}
	first, err := svc.Create(ctx, base)
	require.NoError(t, err)
	base.Kind = assessment.KindHomework
	second, err := svc.Create(ctx, base)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, first.ID, UpdateAssessment{Subject: "Maths", Kind: assessment.KindQuiz, Score: 14, MaxScore: 20, Date: testDate, Term: 1})
	require.NoError(t, err)
	assert.Equal(t, 14.0, updated.Score)

	_, err = svc.Update(ctx, second.ID, UpdateAssessment{Subject: "Maths", Kind: assessment.KindQuiz, Score: 9, MaxScore: 20, Date: testDate, Term: 1})
	assert.True(t, errors.Is(err, assessment.ErrDuplicateAssessment))

	require.NoError(t, svc.Delete(ctx, first.ID))
	_, err = svc.Get(ctx, first.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestLedgerReports(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	class := mustClass(t, store, "6ème")
	jean := mustStudent(t, store, "Jean", "Dupont", class.ID)
	luc := mustStudent(t, store, "Luc", "Petit", class.ID)
	other := mustStudent(t, store, "Ana", "Lopez", 0)
	svc := NewLedgerService(store, nil, 0, testLogger())

	add := func(studentID int64, subject string, kind assessment.Kind, score, max float64, day int) {
		_, err := svc.Create(ctx, NewAssessment{
			StudentID: studentID, Subject: subject, Kind: kind, Score: score, MaxScore: max,
			Date: testDate.AddDate(0, 0, day), Term: 1,
		})
		require.NoError(t, err)
	}
	add(jean.ID, "Maths", assessment.KindQuiz, 12, 20, 0)
	add(jean.ID, "Maths", assessment.KindQuiz, 16, 20, 1)
	add(jean.ID, "Maths", assessment.KindExam, 8, 10, 2)
	add(luc.ID, "Maths", assessment.KindQuiz, 10, 20, 0)
	add(luc.ID, "French", assessment.KindHomework, 5, 10, 0)
	add(other.ID, "Maths", assessment.KindQuiz, 20, 20, 0)

	stats, err := svc.Aggregate(ctx, assessment.Filter{ClassID: class.ID})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "French", stats[0].Subject)
	assert.Equal(t, assessment.SubjectStats{Subject: "Maths", Average: 11.5, Min: 8, Max: 16, Count: 4}, stats[1])

	report, err := svc.TermReport(ctx, jean.ID, 1)
	require.NoError(t, err)
	require.Len(t, report.Subjects, 1)
	maths := report.Subjects[0]
	assert.Equal(t, []assessment.KindAverage{
		{Kind: assessment.KindQuiz, Average: 14, Count: 2},
		{Kind: assessment.KindExam, Average: 8, Count: 1},
	}, maths.Kinds)
	assert.Equal(t, 12.0, maths.Average)

	summary, err := svc.KindSummary(ctx, assessment.Filter{ClassID: class.ID})
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, assessment.KindQuiz, summary[0].Kind)
	assert.Equal(t, 3, summary[0].Count)
	assert.InDelta(t, 38.0/3, summary[0].AverageNormalized, 1e-9)
	assert.Equal(t, assessment.KindExam, summary[2].Kind)
	assert.InDelta(t, 16.0, summary[2].AverageNormalized, 1e-9)

	_, err = svc.TermReport(ctx, 999, 1)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestRecordClassScores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	class := mustClass(t, store, "6ème")
	jean := mustStudent(t, store, "Jean", "Dupont", class.ID)
	luc := mustStudent(t, store, "Luc", "Petit", class.ID)
	ana := mustStudent(t, store, "Ana", "Lopez", class.ID)
	outsider := mustStudent(t, store, "Tom", "Roux", 0)
	notifier := &recordingNotifier{}
	svc := NewLedgerService(store, notifier, 0, testLogger())

	in := ClassScores{
		ClassID: class.ID, Subject: "Maths", Kind: assessment.KindQuiz, MaxScore: 20,
		Date: testDate, Term: 2, Notify: true,
		Scores: map[int64]float64{jean.ID: 15, luc.ID: 0, ana.ID: 11, outsider.ID: 19},
	}
	created, err := svc.RecordClassScores(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, []int64{class.ID}, notifier.calls)

	// a second pass only adds the score that was missing
	in.Scores[luc.ID] = 9
	created, err = svc.RecordClassScores(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = svc.RecordClassScores(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, notifier.calls, 2, "nothing new, nothing sent")

	items, err := svc.List(ctx, assessment.Filter{StudentID: outsider.ID})
	require.NoError(t, err)
	assert.Empty(t, items)
}
