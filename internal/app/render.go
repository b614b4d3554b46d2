package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"school_admin/internal/domain/assessment"
)

const (
	ruleLine    = "==============================================="
	studentLine = "----------------------------------------"
	footerText  = "For more details, check the student portal."
)

// StudentNotes is one student's block in a daily digest.
type StudentNotes struct {
	Name        string
	Assessments []*assessment.Assessment
}

// DailyDigest is everything RenderDailyNotes needs: the day's records of one
// subject for the students a parent is linked to.
type DailyDigest struct {
	School   string
	Subject  string
	Date     time.Time
	Scale    float64
	Students []StudentNotes
}

// IndividualNote describes a single assessment of one student.
type IndividualNote struct {
	School      string
	StudentName string
	ClassName   string
	Assessment  *assessment.Assessment
	Scale       float64
}

// RenderDailyNotes formats a digest as plain text. Records with an invalid max
// score show the raw score only.
func RenderDailyNotes(d DailyDigest) string {
	scale := scaleOrDefault(d.Scale)
	var b strings.Builder
	b.WriteString(ruleLine + "\n")
	fmt.Fprintf(&b, "📋 DAILY NOTES - %s\n", d.Date.Format("02/01/2006"))
	b.WriteString(ruleLine + "\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", d.Subject)

	for _, st := range d.Students {
		fmt.Fprintf(&b, "\n👤 %s\n", st.Name)
		b.WriteString(studentLine + "\n")
		for _, a := range st.Assessments {
			fmt.Fprintf(&b, "   %s\n", a.Kind.Label())
			fmt.Fprintf(&b, "      Note: %s/%s", formatScore(a.Score), formatScore(a.MaxScore))
			if n, err := a.Normalized(scale); err == nil {
				fmt.Fprintf(&b, " (%.2f/%s)", n, formatScore(scale))
			}
			b.WriteString("\n")
		}
	}
	writeFooter(&b, d.School)
	return b.String()
}

// RenderIndividualNote formats one assessment as plain text.
func RenderIndividualNote(n IndividualNote) string {
	scale := scaleOrDefault(n.Scale)
	a := n.Assessment
	class := n.ClassName
	if class == "" {
		class = "N/A"
	}

	var b strings.Builder
	b.WriteString(ruleLine + "\n")
	fmt.Fprintf(&b, "📝 NEW NOTE - %s\n", n.StudentName)
	b.WriteString(ruleLine + "\n\n")
	fmt.Fprintf(&b, "Class: %s\n", class)
	fmt.Fprintf(&b, "Subject: %s\n", a.Subject)
	fmt.Fprintf(&b, "Type: %s\n\n", a.Kind.Label())
	fmt.Fprintf(&b, "📊 Note: %s/%s\n", formatScore(a.Score), formatScore(a.MaxScore))
	if norm, err := a.Normalized(scale); err == nil {
		fmt.Fprintf(&b, "✨ Score (/%s): %.2f\n", formatScore(scale), norm)
	}
	fmt.Fprintf(&b, "\n📅 Date: %s\n", a.Date.Format("02/01/2006"))
	fmt.Fprintf(&b, "🔢 Term: %d/3\n", a.Term)
	writeFooter(&b, n.School)
	return b.String()
}

// RenderPersonalMessage wraps a free-text body with the school signature.
func RenderPersonalMessage(school, body string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	if school != "" {
		fmt.Fprintf(&b, "\n%s\n", school)
	}
	return b.String()
}

func writeFooter(b *strings.Builder, school string) {
	b.WriteString("\n" + ruleLine + "\n")
	b.WriteString(footerText + "\n")
	if school != "" {
		b.WriteString(school + "\n")
	}
	b.WriteString(ruleLine + "\n")
}

func scaleOrDefault(scale float64) float64 {
	if scale <= 0 {
		return assessment.DefaultScale
	}
	return scale
}

// formatScore prints 15 as "15" and 12.5 as "12.5".
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
