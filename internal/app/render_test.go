package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"school_admin/internal/domain/assessment"
)

func TestRenderDailyNotes(t *testing.T) {
	out := RenderDailyNotes(DailyDigest{
		School:  "École Les Pins",
		Subject: "Maths",
		Date:    testDate,
		Students: []StudentNotes{
			{Name: "Jean Dupont", Assessments: []*assessment.Assessment{
				{Kind: assessment.KindQuiz, Score: 15, MaxScore: 20},
				{Kind: assessment.KindExam, Score: 7.5, MaxScore: 10},
			}},
			{Name: "Sophie Dupont", Assessments: []*assessment.Assessment{
				{Kind: assessment.KindHomework, Score: 3, MaxScore: 0},
			}},
		},
	})

	assert.Contains(t, out, "📋 DAILY NOTES - 14/03/2024")
	assert.Contains(t, out, "Subject: Maths")
	assert.Contains(t, out, "👤 Jean Dupont\n"+studentLine)
	assert.Contains(t, out, "   Quiz\n      Note: 15/20 (15.00/20)\n")
	assert.Contains(t, out, "      Note: 7.5/10 (15.00/20)\n")
	assert.Contains(t, out, "   Homework\n      Note: 3/0\n", "invalid scale shows the raw score only")
	assert.True(t, strings.HasSuffix(out, footerText+"\nÉcole Les Pins\n"+ruleLine+"\n"))
	assert.Less(t, strings.Index(out, "Jean Dupont"), strings.Index(out, "Sophie Dupont"))
}

func TestRenderIndividualNote(t *testing.T) {
	out := RenderIndividualNote(IndividualNote{
		StudentName: "Jean Dupont",
		Assessment: &assessment.Assessment{
			Subject: "French", Kind: assessment.KindExam, Score: 12, MaxScore: 40, Date: testDate, Term: 2,
		},
		Scale: 10,
	})

	want := []string{
		"📝 NEW NOTE - Jean Dupont",
		"Class: N/A",
		"Subject: French",
		"Type: Exam",
		"📊 Note: 12/40",
		"✨ Score (/10): 3.00",
		"📅 Date: 14/03/2024",
		"🔢 Term: 2/3",
	}
	for _, line := range want {
		assert.Contains(t, out, line)
	}
	assert.True(t, strings.HasSuffix(out, footerText+"\n"+ruleLine+"\n"))
}
