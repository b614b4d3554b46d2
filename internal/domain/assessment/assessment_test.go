package assessment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_admin/internal/domain/errs"
)

func TestNormalized(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		maxScore float64
		target   float64
		want     float64
		wantErr  bool
	}{
		{"fifteen out of twenty", 15, 20, DefaultScale, 15, false},
		{"full marks", 7.5, 7.5, DefaultScale, 20, false},
		{"rescale from ten", 4, 10, DefaultScale, 8, false},
		{"other target", 15, 20, 100, 75, false},
		{"zero max", 5, 0, DefaultScale, 0, true},
		{"negative max", 5, -10, DefaultScale, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Assessment{Score: tt.score, MaxScore: tt.maxScore}
			got, err := a.Normalized(tt.target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalized() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.True(t, errors.Is(err, errs.ErrInvalidScale))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestKind(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.Cadence())
	}
	assert.False(t, Kind("interrogation").Valid())
	assert.Equal(t, "one per term", KindExam.Cadence())
	assert.Equal(t, "Homework", KindHomework.Label())
}

func TestDedupKeyIgnoresTimeOfDay(t *testing.T) {
	a := &Assessment{StudentID: 1, Subject: "Maths", Kind: KindQuiz, Term: 1, Date: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	b := &Assessment{StudentID: 1, Subject: "Maths", Kind: KindQuiz, Term: 1, Date: time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC)}
	assert.Equal(t, a.DedupKey(), b.DedupKey())

	b.Term = 2
	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
}

func TestFilterMatches(t *testing.T) {
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	a := &Assessment{StudentID: 3, Subject: "Maths", Term: 2, Date: d}

	assert.True(t, Filter{}.Matches(a))
	assert.True(t, Filter{Subject: "Maths", Term: 2, Date: d}.Matches(a))
	assert.False(t, Filter{Subject: "SVT"}.Matches(a))
	assert.False(t, Filter{StudentID: 4}.Matches(a))
	assert.False(t, Filter{Date: d.AddDate(0, 0, 1)}.Matches(a))
}

func TestAggregate(t *testing.T) {
	items := []*Assessment{
		{Subject: "Maths", Score: 10},
		{Subject: "Maths", Score: 16},
		{Subject: "Maths", Score: 13},
		{Subject: "French", Score: 12},
	}

	got := Aggregate(items)
	require.Len(t, got, 2)

	assert.Equal(t, SubjectStats{Subject: "French", Average: 12, Min: 12, Max: 12, Count: 1}, got[0])
	assert.Equal(t, "Maths", got[1].Subject)
	assert.InDelta(t, 13, got[1].Average, 1e-9)
	assert.Equal(t, 10.0, got[1].Min)
	assert.Equal(t, 16.0, got[1].Max)
	assert.Equal(t, 3, got[1].Count)

	assert.Empty(t, Aggregate(nil))
}

func TestBuildTermReport(t *testing.T) {
	items := []*Assessment{
		{StudentID: 1, Term: 1, Subject: "Maths", Kind: KindQuiz, Score: 10},
		{StudentID: 1, Term: 1, Subject: "Maths", Kind: KindQuiz, Score: 14},
		{StudentID: 1, Term: 1, Subject: "Maths", Kind: KindExam, Score: 18},
		{StudentID: 1, Term: 1, Subject: "French", Kind: KindHomework, Score: 11},
		{StudentID: 1, Term: 2, Subject: "Maths", Kind: KindExam, Score: 2},
		{StudentID: 2, Term: 1, Subject: "Maths", Kind: KindExam, Score: 3},
	}

	report := BuildTermReport(1, 1, items)
	require.Len(t, report.Subjects, 2)

	french := report.Subjects[0]
	assert.Equal(t, "French", french.Subject)
	assert.Equal(t, []KindAverage{{Kind: KindHomework, Average: 11, Count: 1}}, french.Kinds)

	maths := report.Subjects[1]
	assert.Equal(t, "Maths", maths.Subject)
	assert.Equal(t, []KindAverage{
		{Kind: KindQuiz, Average: 12, Count: 2},
		{Kind: KindExam, Average: 18, Count: 1},
	}, maths.Kinds)
	assert.InDelta(t, 14, maths.Average, 1e-9)
	assert.Equal(t, 3, maths.Count)
}

func TestSummarizeKinds(t *testing.T) {
	items := []*Assessment{
		{Kind: KindQuiz, Score: 5, MaxScore: 10},
		{Kind: KindQuiz, Score: 20, MaxScore: 20},
		{Kind: KindExam, Score: 12, MaxScore: 20},
		{Kind: KindExam, Score: 3, MaxScore: 0},
	}

	got := SummarizeKinds(items, DefaultScale)
	require.Len(t, got, 2)
	assert.Equal(t, KindSummary{Kind: KindQuiz, Count: 2, AverageNormalized: 15}, got[0])
	assert.Equal(t, KindSummary{Kind: KindExam, Count: 2, AverageNormalized: 12}, got[1])
}
