package assessment

import (
	"fmt"
	"time"

	"school_admin/internal/domain/errs"
)

// DefaultScale is the reporting scale used when none is given.
const DefaultScale = 20.0

var (
	ErrAssessmentNotFound  = fmt.Errorf("assessment %w", errs.ErrNotFound)
	ErrDuplicateAssessment = fmt.Errorf("assessment: %w", errs.ErrDuplicateIdentity)
)

type Kind string

const (
	KindQuiz     Kind = "quiz"
	KindHomework Kind = "homework"
	KindExam     Kind = "exam"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindQuiz, KindHomework, KindExam}

func (k Kind) Valid() bool {
	switch k {
	case KindQuiz, KindHomework, KindExam:
		return true
	}
	return false
}

// Label is the human readable name used in reports and messages.
func (k Kind) Label() string {
	switch k {
	case KindQuiz:
		return "Quiz"
	case KindHomework:
		return "Homework"
	case KindExam:
		return "Exam"
	default:
		return string(k)
	}
}

// Cadence is a display hint only; it is never enforced.
func (k Kind) Cadence() string {
	switch k {
	case KindQuiz:
		return "several per day"
	case KindHomework:
		return "one per day"
	case KindExam:
		return "one per term"
	default:
		return ""
	}
}

type Assessment struct {
	ID        int64     `db:"id"`
	StudentID int64     `db:"student_id"`
	Subject   string    `db:"subject"`
	Score     float64   `db:"score"`
	MaxScore  float64   `db:"max_score"`
	Kind      Kind      `db:"kind"`
	Date      time.Time `db:"date"`
	Term      int       `db:"term"`
	CreatedAt time.Time `db:"created_at"`
}

// Normalized rescales the score to target. It is never stored.
func (a *Assessment) Normalized(target float64) (float64, error) {
	if a.MaxScore <= 0 {
		return 0, fmt.Errorf("assessment %d max score %v: %w", a.ID, a.MaxScore, errs.ErrInvalidScale)
	}
	return a.Score / a.MaxScore * target, nil
}

// DedupKey identifies an assessment for duplicate detection.
type DedupKey struct {
	StudentID int64
	Subject   string
	Kind      Kind
	Date      string // 2006-01-02
	Term      int
}

func (a *Assessment) DedupKey() DedupKey {
	return DedupKey{
		StudentID: a.StudentID,
		Subject:   a.Subject,
		Kind:      a.Kind,
		Date:      a.Date.Format("2006-01-02"),
		Term:      a.Term,
	}
}

// Filter narrows assessment queries. Zero values mean "any".
type Filter struct {
	ClassID   int64
	StudentID int64
	Subject   string
	Term      int
	Date      time.Time
}

// Matches applies the filter fields that do not need a roster lookup.
func (f Filter) Matches(a *Assessment) bool {
	if f.StudentID != 0 && a.StudentID != f.StudentID {
		return false
	}
	if f.Subject != "" && a.Subject != f.Subject {
		return false
	}
	if f.Term != 0 && a.Term != f.Term {
		return false
	}
	if !f.Date.IsZero() && a.Date.Format("2006-01-02") != f.Date.Format("2006-01-02") {
		return false
	}
	return true
}
