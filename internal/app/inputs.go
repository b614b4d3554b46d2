package app

import (
	"strings"
	"time"

	"school_admin/internal/domain/assessment"
)

// NewClass contains information needed to create a Class.
type NewClass struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// ParentFields is the parent part of interactive forms. Phone must be E.164 here;
// bulk import does not go through this type.
type ParentFields struct {
	FirstName     string `json:"first_name" validate:"max=100"`
	LastName      string `json:"last_name" validate:"max=100"`
	Phone         string `json:"phone" validate:"omitempty,e164"`
	Email         string `json:"email" validate:"omitempty,email"`
	WhatsAppOptIn bool   `json:"whatsapp_optin"`
}

// Empty reports whether no identifying field was supplied.
func (pf ParentFields) Empty() bool {
	return pf.FirstName == "" && pf.LastName == "" && pf.Phone == ""
}

func (pf *ParentFields) clean() {
	pf.FirstName = cleanString(pf.FirstName)
	pf.LastName = cleanString(pf.LastName)
	pf.Phone = strings.TrimSpace(pf.Phone)
	pf.Email = strings.ToLower(strings.TrimSpace(pf.Email))
}

// NewStudent contains information needed to create a Student, optionally with a parent.
type NewStudent struct {
	FirstName string        `json:"first_name" validate:"notblank,max=100"`
	LastName  string        `json:"last_name" validate:"notblank,max=100"`
	Birthdate *time.Time    `json:"birthdate"`
	ClassID   int64         `json:"class_id" validate:"gte=0"`
	Parent    *ParentFields `json:"parent" validate:"omitempty"`
}

func (ns *NewStudent) clean() {
	ns.FirstName = cleanString(ns.FirstName)
	ns.LastName = cleanString(ns.LastName)
	if ns.Parent != nil {
		ns.Parent.clean()
		if ns.Parent.Empty() {
			ns.Parent = nil
		}
	}
}

// UpdateStudent defines what may be changed on an existing Student.
// Empty names keep the current value. ClassID 0 unassigns the student.
type UpdateStudent struct {
	FirstName      string     `json:"first_name" validate:"max=100"`
	LastName       string     `json:"last_name" validate:"max=100"`
	Birthdate      *time.Time `json:"birthdate"`
	ClearBirthdate bool       `json:"clear_birthdate"`
	ClassID        *int64     `json:"class_id" validate:"omitempty,gte=0"`
}

// NewProfessor contains information needed to create a Professor.
type NewProfessor struct {
	FirstName string   `json:"first_name" validate:"notblank,max=100"`
	LastName  string   `json:"last_name" validate:"notblank,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"omitempty,e164"`
	Subjects  []string `json:"subjects" validate:"dive,notblank"`
	IsActive  *bool    `json:"is_active"`
}

func (np *NewProfessor) clean() {
	np.FirstName = cleanString(np.FirstName)
	np.LastName = cleanString(np.LastName)
	np.Email = strings.ToLower(strings.TrimSpace(np.Email))
	np.Phone = strings.TrimSpace(np.Phone)
	for i, s := range np.Subjects {
		np.Subjects[i] = cleanString(s)
	}
}

// NewAssessment contains information needed to record one score.
type NewAssessment struct {
	StudentID int64           `json:"student_id" validate:"gt=0"`
	Subject   string          `json:"subject" validate:"notblank,max=100"`
	Kind      assessment.Kind `json:"kind" validate:"assessment_kind"`
	Score     float64         `json:"score" validate:"gte=0"`
	MaxScore  float64         `json:"max_score" validate:"gt=0"`
	Date      time.Time       `json:"date" validate:"required"`
	Term      int             `json:"term" validate:"min=1,max=3"`
}

// UpdateAssessment is the explicit edit path; the owning student never changes.
type UpdateAssessment struct {
	Subject  string          `json:"subject" validate:"notblank,max=100"`
	Kind     assessment.Kind `json:"kind" validate:"assessment_kind"`
	Score    float64         `json:"score" validate:"gte=0"`
	MaxScore float64         `json:"max_score" validate:"gt=0"`
	Date     time.Time       `json:"date" validate:"required"`
	Term     int             `json:"term" validate:"min=1,max=3"`
}

// ClassScores is the bulk entry form for one class, subject and day.
// A score of zero or less means "not provided" and is skipped.
type ClassScores struct {
	ClassID  int64             `json:"class_id" validate:"gt=0"`
	Subject  string            `json:"subject" validate:"notblank,max=100"`
	Kind     assessment.Kind   `json:"kind" validate:"assessment_kind"`
	MaxScore float64           `json:"max_score" validate:"gt=0"`
	Date     time.Time         `json:"date" validate:"required"`
	Term     int               `json:"term" validate:"min=1,max=3"`
	Scores   map[int64]float64 `json:"scores"`
	Notify   bool              `json:"notify"`
}

// PersonalMessage targets parents directly, through students, or through a
// whole class, in that order of precedence.
type PersonalMessage struct {
	ParentIDs  []int64 `json:"parent_ids"`
	StudentIDs []int64 `json:"student_ids"`
	ClassID    int64   `json:"class_id" validate:"gte=0"`
	Body       string  `json:"body" validate:"notblank,max=4000"`
}
