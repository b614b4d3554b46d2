package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"school_admin/internal/domain/roster"
)

const (
	studentColumns   = `id, first_name, last_name, birthdate, class_id, created_at`
	parentColumns    = `id, first_name, last_name, phone, email, whatsapp_optin, created_at`
	professorColumns = `id, first_name, last_name, email, phone, subjects, is_active, created_at`
)

type PostgresRosterRepository struct {
	db sqlx.ExtContext
}

func NewPostgresRosterRepository(db sqlx.ExtContext) *PostgresRosterRepository {
	return &PostgresRosterRepository{db: db}
}

func (r *PostgresRosterRepository) CreateClass(ctx context.Context, c *roster.Class) error {
	query := `INSERT INTO classes (name) VALUES ($1) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "classes_name_key") {
			return roster.ErrDuplicateClassName
		}
		return fmt.Errorf("error creating class: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) GetClass(ctx context.Context, id int64) (*roster.Class, error) {
	c := &roster.Class{}
	err := sqlx.GetContext(ctx, r.db, c, `SELECT id, name, created_at FROM classes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrClassNotFound
		}
		return nil, fmt.Errorf("error getting class by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresRosterRepository) GetClassByName(ctx context.Context, name string) (*roster.Class, error) {
	c := &roster.Class{}
	err := sqlx.GetContext(ctx, r.db, c, `SELECT id, name, created_at FROM classes WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrClassNotFound
		}
		return nil, fmt.Errorf("error getting class by name: %w", err)
	}
	return c, nil
}

func (r *PostgresRosterRepository) ListClasses(ctx context.Context) ([]*roster.Class, error) {
	classes := make([]*roster.Class, 0)
	if err := sqlx.SelectContext(ctx, r.db, &classes, `SELECT id, name, created_at FROM classes ORDER BY name`); err != nil {
		return nil, fmt.Errorf("error listing classes: %w", err)
	}
	return classes, nil
}

func (r *PostgresRosterRepository) DeleteClass(ctx context.Context, id int64) error {
	// students.class_id is ON DELETE SET NULL
	return r.deleteByID(ctx, "classes", id, roster.ErrClassNotFound)
}

func (r *PostgresRosterRepository) CreateStudent(ctx context.Context, s *roster.Student) error {
	query := `INSERT INTO students (first_name, last_name, birthdate, class_id)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, s.FirstName, s.LastName, s.Birthdate, s.ClassID).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "students_class_id_fkey") {
			return roster.ErrClassNotFound
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) GetStudent(ctx context.Context, id int64) (*roster.Student, error) {
	s := &roster.Student{}
	err := sqlx.GetContext(ctx, r.db, s, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresRosterRepository) FindStudent(ctx context.Context, lastName, firstName string, classID sql.NullInt64) (*roster.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students
               WHERE last_name = $1 AND first_name = $2 AND class_id IS NOT DISTINCT FROM $3
               ORDER BY id LIMIT 1`
	s := &roster.Student{}
	err := sqlx.GetContext(ctx, r.db, s, query, lastName, firstName, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error finding student: %w", err)
	}
	return s, nil
}

func (r *PostgresRosterRepository) UpdateStudent(ctx context.Context, s *roster.Student) error {
	query := `UPDATE students SET first_name = $1, last_name = $2, birthdate = $3, class_id = $4
               WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, s.FirstName, s.LastName, s.Birthdate, s.ClassID, s.ID)
	if err != nil {
		if isForeignKeyViolation(err, "students_class_id_fkey") {
			return roster.ErrClassNotFound
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return expectOneRow(res, roster.ErrStudentNotFound)
}

func (r *PostgresRosterRepository) DeleteStudent(ctx context.Context, id int64) error {
	// assessments and parent_student rows cascade
	return r.deleteByID(ctx, "students", id, roster.ErrStudentNotFound)
}

func (r *PostgresRosterRepository) ListStudentsByClass(ctx context.Context, classID int64) ([]*roster.Student, error) {
	students := make([]*roster.Student, 0)
	query := `SELECT ` + studentColumns + ` FROM students WHERE class_id = $1 ORDER BY last_name, first_name, id`
	if err := sqlx.SelectContext(ctx, r.db, &students, query, classID); err != nil {
		return nil, fmt.Errorf("error listing students of class %d: %w", classID, err)
	}
	return students, nil
}

func (r *PostgresRosterRepository) CreateParent(ctx context.Context, p *roster.Parent) error {
	query := `INSERT INTO parents (first_name, last_name, phone, email, whatsapp_optin)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, p.FirstName, p.LastName, p.Phone, p.Email, p.WhatsAppOptIn).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating parent: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) GetParent(ctx context.Context, id int64) (*roster.Parent, error) {
	return r.getParent(ctx, `SELECT `+parentColumns+` FROM parents WHERE id = $1`, id)
}

func (r *PostgresRosterRepository) FindParentByPhone(ctx context.Context, phone string) (*roster.Parent, error) {
	return r.getParent(ctx, `SELECT `+parentColumns+` FROM parents WHERE phone = $1 ORDER BY id LIMIT 1`, phone)
}

func (r *PostgresRosterRepository) FindParentByName(ctx context.Context, firstName, lastName string) (*roster.Parent, error) {
	query := `SELECT ` + parentColumns + ` FROM parents
               WHERE COALESCE(first_name, '') = $1 AND COALESCE(last_name, '') = $2
               ORDER BY id LIMIT 1`
	return r.getParent(ctx, query, firstName, lastName)
}

func (r *PostgresRosterRepository) getParent(ctx context.Context, query string, args ...interface{}) (*roster.Parent, error) {
	p := &roster.Parent{}
	if err := sqlx.GetContext(ctx, r.db, p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrParentNotFound
		}
		return nil, fmt.Errorf("error getting parent: %w", err)
	}
	return p, nil
}

func (r *PostgresRosterRepository) UpdateParent(ctx context.Context, p *roster.Parent) error {
	query := `UPDATE parents SET first_name = $1, last_name = $2, phone = $3, email = $4, whatsapp_optin = $5
               WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, p.FirstName, p.LastName, p.Phone, p.Email, p.WhatsAppOptIn, p.ID)
	if err != nil {
		return fmt.Errorf("error updating parent: %w", err)
	}
	return expectOneRow(res, roster.ErrParentNotFound)
}

func (r *PostgresRosterRepository) DeleteParent(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "parents", id, roster.ErrParentNotFound)
}

func (r *PostgresRosterRepository) LinkParent(ctx context.Context, parentID, studentID int64) error {
	query := `INSERT INTO parent_student (parent_id, student_id) VALUES ($1, $2)
               ON CONFLICT (parent_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, parentID, studentID); err != nil {
		switch {
		case isForeignKeyViolation(err, "parent_student_parent_id_fkey"):
			return roster.ErrParentNotFound
		case isForeignKeyViolation(err, "parent_student_student_id_fkey"):
			return roster.ErrStudentNotFound
		}
		return fmt.Errorf("error linking parent %d to student %d: %w", parentID, studentID, err)
	}
	return nil
}

func (r *PostgresRosterRepository) UnlinkParent(ctx context.Context, parentID, studentID int64) error {
	query := `DELETE FROM parent_student WHERE parent_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, parentID, studentID); err != nil {
		return fmt.Errorf("error unlinking parent %d from student %d: %w", parentID, studentID, err)
	}
	return nil
}

func (r *PostgresRosterRepository) ListParentsOfStudent(ctx context.Context, studentID int64) ([]*roster.Parent, error) {
	query := `SELECT p.id, p.first_name, p.last_name, p.phone, p.email, p.whatsapp_optin, p.created_at
               FROM parents p
               JOIN parent_student ps ON ps.parent_id = p.id
               WHERE ps.student_id = $1
               ORDER BY p.id`
	parents := make([]*roster.Parent, 0)
	if err := sqlx.SelectContext(ctx, r.db, &parents, query, studentID); err != nil {
		return nil, fmt.Errorf("error listing parents of student %d: %w", studentID, err)
	}
	return parents, nil
}

func (r *PostgresRosterRepository) ListStudentsOfParent(ctx context.Context, parentID int64) ([]*roster.Student, error) {
	query := `SELECT s.id, s.first_name, s.last_name, s.birthdate, s.class_id, s.created_at
               FROM students s
               JOIN parent_student ps ON ps.student_id = s.id
               WHERE ps.parent_id = $1
               ORDER BY s.id`
	students := make([]*roster.Student, 0)
	if err := sqlx.SelectContext(ctx, r.db, &students, query, parentID); err != nil {
		return nil, fmt.Errorf("error listing students of parent %d: %w", parentID, err)
	}
	return students, nil
}

func (r *PostgresRosterRepository) CreateProfessor(ctx context.Context, p *roster.Professor) error {
	p.Email = strings.ToLower(p.Email)
	query := `INSERT INTO professors (first_name, last_name, email, phone, subjects, is_active)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, p.FirstName, p.LastName, p.Email, p.Phone, p.Subjects, p.IsActive).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "professors_email_key") {
			return roster.ErrDuplicateProfessorEmail
		}
		return fmt.Errorf("error creating professor: %w", err)
	}
	return nil
}

func (r *PostgresRosterRepository) GetProfessor(ctx context.Context, id int64) (*roster.Professor, error) {
	p := &roster.Professor{}
	err := sqlx.GetContext(ctx, r.db, p, `SELECT `+professorColumns+` FROM professors WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrProfessorNotFound
		}
		return nil, fmt.Errorf("error getting professor by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresRosterRepository) UpdateProfessor(ctx context.Context, p *roster.Professor) error {
	p.Email = strings.ToLower(p.Email)
	query := `UPDATE professors SET first_name = $1, last_name = $2, email = $3, phone = $4, subjects = $5, is_active = $6
               WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, p.FirstName, p.LastName, p.Email, p.Phone, p.Subjects, p.IsActive, p.ID)
	if err != nil {
		if isUniqueViolation(err, "professors_email_key") {
			return roster.ErrDuplicateProfessorEmail
		}
		return fmt.Errorf("error updating professor: %w", err)
	}
	return expectOneRow(res, roster.ErrProfessorNotFound)
}

func (r *PostgresRosterRepository) DeleteProfessor(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "professors", id, roster.ErrProfessorNotFound)
}

func (r *PostgresRosterRepository) ListProfessors(ctx context.Context) ([]*roster.Professor, error) {
	professors := make([]*roster.Professor, 0)
	query := `SELECT ` + professorColumns + ` FROM professors ORDER BY last_name, id`
	if err := sqlx.SelectContext(ctx, r.db, &professors, query); err != nil {
		return nil, fmt.Errorf("error listing professors: %w", err)
	}
	return professors, nil
}

// deleteByID only accepts table names from this package.
func (r *PostgresRosterRepository) deleteByID(ctx context.Context, table string, id int64, notFound error) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting from %s: %w", table, err)
	}
	return expectOneRow(res, notFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
