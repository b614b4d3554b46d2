package roster

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"school_admin/internal/domain/errs"
)

var (
	ErrClassNotFound     = fmt.Errorf("class %w", errs.ErrNotFound)
	ErrStudentNotFound   = fmt.Errorf("student %w", errs.ErrNotFound)
	ErrParentNotFound    = fmt.Errorf("parent %w", errs.ErrNotFound)
	ErrProfessorNotFound = fmt.Errorf("professor %w", errs.ErrNotFound)

	ErrDuplicateClassName      = fmt.Errorf("class name: %w", errs.ErrDuplicateIdentity)
	ErrDuplicateProfessorEmail = fmt.Errorf("professor email: %w", errs.ErrDuplicateIdentity)
)

// Class groups students. Deleting a class detaches its students.
type Class struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Student belongs to at most one class and owns its assessments.
type Student struct {
	ID        int64         `db:"id"`
	FirstName string        `db:"first_name"`
	LastName  string        `db:"last_name"`
	Birthdate sql.NullTime  `db:"birthdate"`
	ClassID   sql.NullInt64 `db:"class_id"`
	CreatedAt time.Time     `db:"created_at"`
}

func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Parent is matched by phone first, then by name, during reconciliation.
type Parent struct {
	ID            int64          `db:"id"`
	FirstName     sql.NullString `db:"first_name"`
	LastName      sql.NullString `db:"last_name"`
	Phone         sql.NullString `db:"phone"`
	Email         sql.NullString `db:"email"`
	WhatsAppOptIn bool           `db:"whatsapp_optin"`
	CreatedAt     time.Time      `db:"created_at"`
}

// FullName joins the non-empty name parts.
func (p *Parent) FullName() string {
	parts := make([]string, 0, 2)
	if p.FirstName.Valid && p.FirstName.String != "" {
		parts = append(parts, p.FirstName.String)
	}
	if p.LastName.Valid && p.LastName.String != "" {
		parts = append(parts, p.LastName.String)
	}
	return strings.Join(parts, " ")
}

// WhatsAppReachable reports whether the parent can receive messages over WhatsApp.
func (p *Parent) WhatsAppReachable() bool {
	return p.WhatsAppOptIn && p.Phone.Valid && strings.TrimSpace(p.Phone.String) != ""
}

func (p *Parent) EmailReachable() bool {
	return p.Email.Valid && strings.TrimSpace(p.Email.String) != ""
}

type Professor struct {
	ID        int64          `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	Subjects  string         `db:"subjects"` // comma separated
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
}

// SubjectList splits Subjects into trimmed, non-empty labels.
func (p *Professor) SubjectList() []string {
	var out []string
	for _, s := range strings.Split(p.Subjects, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
