package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
)

// ExportRow is what file generators receive for one student.
type ExportRow struct {
	ID        int64
	LastName  string
	FirstName string
	Birthdate string // 2006-01-02 or empty
	Parents   string // "First Last, First Last"
}

// RowExporter turns export rows into a file.
type RowExporter interface {
	Export(title string, rows []ExportRow) ([]byte, error)
}

type RosterService struct {
	store  storage.Store
	logger *logrus.Entry
}

func NewRosterService(store storage.Store, logger *logrus.Entry) *RosterService {
	return &RosterService{store: store, logger: logger}
}

func (s *RosterService) AddClass(ctx context.Context, nc NewClass) (*roster.Class, error) {
	nc.Name = cleanString(nc.Name)
	if err := validateInput(nc); err != nil {
		return nil, err
	}
	c := &roster.Class{Name: nc.Name}
	if err := s.store.Roster().CreateClass(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create class %q: %w", nc.Name, err)
	}
	s.logger.WithFields(logrus.Fields{"class_id": c.ID, "name": c.Name}).Info("Class created")
	return c, nil
}

func (s *RosterService) ListClasses(ctx context.Context) ([]*roster.Class, error) {
	return s.store.Roster().ListClasses(ctx)
}

// DeleteClass removes the class; its students stay, unassigned.
func (s *RosterService) DeleteClass(ctx context.Context, id int64) error {
	if err := s.store.Roster().DeleteClass(ctx, id); err != nil {
		return fmt.Errorf("failed to delete class %d: %w", id, err)
	}
	s.logger.WithField("class_id", id).Info("Class deleted")
	return nil
}

func (s *RosterService) ListStudentsByClass(ctx context.Context, classID int64) ([]*roster.Student, error) {
	if _, err := s.store.Roster().GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return s.store.Roster().ListStudentsByClass(ctx, classID)
}

// AddStudent creates a student and, when parent fields are given, resolves the
// parent by phone then name, refreshes it with the supplied fields or creates
// it, and links it. Everything commits together.
func (s *RosterService) AddStudent(ctx context.Context, ns NewStudent) (*roster.Student, error) {
	ns.clean()
	if err := validateInput(ns); err != nil {
		return nil, err
	}

	st := &roster.Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		Birthdate: nullDate(ns.Birthdate),
	}
	if ns.ClassID != 0 {
		st.ClassID = sql.NullInt64{Int64: ns.ClassID, Valid: true}
	}

	var parent *roster.Parent
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		repo := tx.Roster()
		if err := repo.CreateStudent(ctx, st); err != nil {
			return fmt.Errorf("failed to create student: %w", err)
		}
		if ns.Parent == nil {
			return nil
		}

		var err error
		parent, err = upsertParent(ctx, repo, *ns.Parent)
		if err != nil {
			return err
		}
		if err := repo.LinkParent(ctx, parent.ID, st.ID); err != nil {
			return fmt.Errorf("failed to link parent %d: %w", parent.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"student_id": st.ID}
	if parent != nil {
		fields["parent_id"] = parent.ID
	}
	s.logger.WithFields(fields).Info("Student added")
	return st, nil
}

// upsertParent is the interactive variant of parent reconciliation: a matched
// parent is updated with every supplied field.
func upsertParent(ctx context.Context, repo roster.Repository, pf ParentFields) (*roster.Parent, error) {
	p, err := findParent(ctx, repo, pf.FirstName, pf.LastName, pf.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up parent: %w", err)
	}
	if p == nil {
		p = &roster.Parent{
			FirstName:     nullString(pf.FirstName),
			LastName:      nullString(pf.LastName),
			Phone:         nullString(pf.Phone),
			Email:         nullString(pf.Email),
			WhatsAppOptIn: pf.WhatsAppOptIn,
		}
		if err := repo.CreateParent(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to create parent: %w", err)
		}
		return p, nil
	}

	if pf.FirstName != "" {
		p.FirstName = nullString(pf.FirstName)
	}
	if pf.LastName != "" {
		p.LastName = nullString(pf.LastName)
	}
	if pf.Phone != "" {
		p.Phone = nullString(pf.Phone)
	}
	if pf.Email != "" {
		p.Email = nullString(pf.Email)
	}
	p.WhatsAppOptIn = pf.WhatsAppOptIn
	if err := repo.UpdateParent(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update parent %d: %w", p.ID, err)
	}
	return p, nil
}

func (s *RosterService) UpdateStudent(ctx context.Context, id int64, us UpdateStudent) (*roster.Student, error) {
	if err := validateInput(us); err != nil {
		return nil, err
	}
	repo := s.store.Roster()
	st, err := repo.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := cleanString(us.FirstName); name != "" {
		st.FirstName = name
	}
	if name := cleanString(us.LastName); name != "" {
		st.LastName = name
	}
	switch {
	case us.ClearBirthdate:
		st.Birthdate = sql.NullTime{}
	case us.Birthdate != nil:
		st.Birthdate = nullDate(us.Birthdate)
	}
	if us.ClassID != nil {
		st.ClassID = sql.NullInt64{Int64: *us.ClassID, Valid: *us.ClassID != 0}
	}

	if err := repo.UpdateStudent(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to update student %d: %w", id, err)
	}
	return st, nil
}

// DeleteStudent removes the student with its assessments and parent links.
// Parents are kept.
func (s *RosterService) DeleteStudent(ctx context.Context, id int64) error {
	if err := s.store.Roster().DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete student %d: %w", id, err)
	}
	s.logger.WithField("student_id", id).Info("Student deleted")
	return nil
}

func (s *RosterService) AddParent(ctx context.Context, pf ParentFields) (*roster.Parent, error) {
	pf.clean()
	if err := validateInput(pf); err != nil {
		return nil, err
	}
	p := &roster.Parent{
		FirstName:     nullString(pf.FirstName),
		LastName:      nullString(pf.LastName),
		Phone:         nullString(pf.Phone),
		Email:         nullString(pf.Email),
		WhatsAppOptIn: pf.WhatsAppOptIn,
	}
	if err := s.store.Roster().CreateParent(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}
	return p, nil
}

// UpdateParent replaces every field of the parent.
func (s *RosterService) UpdateParent(ctx context.Context, id int64, pf ParentFields) (*roster.Parent, error) {
	pf.clean()
	if err := validateInput(pf); err != nil {
		return nil, err
	}
	repo := s.store.Roster()
	p, err := repo.GetParent(ctx, id)
	if err != nil {
		return nil, err
	}
	p.FirstName = nullString(pf.FirstName)
	p.LastName = nullString(pf.LastName)
	p.Phone = nullString(pf.Phone)
	p.Email = nullString(pf.Email)
	p.WhatsAppOptIn = pf.WhatsAppOptIn
	if err := repo.UpdateParent(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update parent %d: %w", id, err)
	}
	return p, nil
}

func (s *RosterService) DeleteParent(ctx context.Context, id int64) error {
	if err := s.store.Roster().DeleteParent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete parent %d: %w", id, err)
	}
	return nil
}

func (s *RosterService) LinkParent(ctx context.Context, parentID, studentID int64) error {
	return s.store.Roster().LinkParent(ctx, parentID, studentID)
}

func (s *RosterService) UnlinkParent(ctx context.Context, parentID, studentID int64) error {
	return s.store.Roster().UnlinkParent(ctx, parentID, studentID)
}

func (s *RosterService) AddProfessor(ctx context.Context, np NewProfessor) (*roster.Professor, error) {
	np.clean()
	if err := validateInput(np); err != nil {
		return nil, err
	}
	p := &roster.Professor{
		FirstName: np.FirstName,
		LastName:  np.LastName,
		Email:     np.Email,
		Phone:     nullString(np.Phone),
		Subjects:  strings.Join(np.Subjects, ", "),
		IsActive:  np.IsActive == nil || *np.IsActive,
	}
	if err := s.store.Roster().CreateProfessor(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create professor: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"professor_id": p.ID, "email": p.Email}).Info("Professor added")
	return p, nil
}

// UpdateProfessor replaces the professor's fields; a nil IsActive keeps the current flag.
func (s *RosterService) UpdateProfessor(ctx context.Context, id int64, np NewProfessor) (*roster.Professor, error) {
	np.clean()
	if err := validateInput(np); err != nil {
		return nil, err
	}
	repo := s.store.Roster()
	p, err := repo.GetProfessor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.FirstName = np.FirstName
	p.LastName = np.LastName
	p.Email = np.Email
	p.Phone = nullString(np.Phone)
	p.Subjects = strings.Join(np.Subjects, ", ")
	if np.IsActive != nil {
		p.IsActive = *np.IsActive
	}
	if err := repo.UpdateProfessor(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update professor %d: %w", id, err)
	}
	return p, nil
}

func (s *RosterService) DeleteProfessor(ctx context.Context, id int64) error {
	if err := s.store.Roster().DeleteProfessor(ctx, id); err != nil {
		return fmt.Errorf("failed to delete professor %d: %w", id, err)
	}
	return nil
}

func (s *RosterService) ListProfessors(ctx context.Context) ([]*roster.Professor, error) {
	return s.store.Roster().ListProfessors(ctx)
}

// ExportRows builds the rows and title handed to file generators for one class.
func (s *RosterService) ExportRows(ctx context.Context, classID int64) (string, []ExportRow, error) {
	repo := s.store.Roster()
	class, err := repo.GetClass(ctx, classID)
	if err != nil {
		return "", nil, err
	}
	students, err := repo.ListStudentsByClass(ctx, classID)
	if err != nil {
		return "", nil, err
	}

	rows := make([]ExportRow, 0, len(students))
	for _, st := range students {
		parents, err := repo.ListParentsOfStudent(ctx, st.ID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to list parents of student %d: %w", st.ID, err)
		}
		names := make([]string, 0, len(parents))
		for _, p := range parents {
			if n := p.FullName(); n != "" {
				names = append(names, n)
			}
		}
		row := ExportRow{
			ID:        st.ID,
			LastName:  st.LastName,
			FirstName: st.FirstName,
			Parents:   strings.Join(names, ", "),
		}
		if st.Birthdate.Valid {
			row.Birthdate = st.Birthdate.Time.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return "Class " + class.Name, rows, nil
}

// Export renders one class with the given exporter.
func (s *RosterService) Export(ctx context.Context, classID int64, exporter RowExporter) ([]byte, error) {
	title, rows, err := s.ExportRows(ctx, classID)
	if err != nil {
		return nil, err
	}
	data, err := exporter.Export(title, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to export class %d: %w", classID, err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullDate drops the time of day.
func nullDate(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: truncateDay(*t), Valid: true}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
