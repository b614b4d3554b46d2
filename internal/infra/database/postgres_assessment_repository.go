package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/roster"
)

const assessmentColumns = `a.id, a.student_id, a.subject, a.score, a.max_score, a.kind, a.date, a.term, a.created_at`

type PostgresAssessmentRepository struct {
	db sqlx.ExtContext
}

func NewPostgresAssessmentRepository(db sqlx.ExtContext) *PostgresAssessmentRepository {
	return &PostgresAssessmentRepository{db: db}
}

func (r *PostgresAssessmentRepository) Create(ctx context.Context, a *assessment.Assessment) error {
	query := `INSERT INTO assessments (student_id, subject, score, max_score, kind, date, term)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		a.StudentID, a.Subject, a.Score, a.MaxScore, a.Kind, a.Date.Format("2006-01-02"), a.Term,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return mapAssessmentWriteError("creating", err)
	}
	return nil
}

func (r *PostgresAssessmentRepository) GetByID(ctx context.Context, id int64) (*assessment.Assessment, error) {
	a := &assessment.Assessment{}
	err := sqlx.GetContext(ctx, r.db, a, `SELECT `+assessmentColumns+` FROM assessments a WHERE a.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assessment.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("error getting assessment by ID: %w", err)
	}
	return a, nil
}

func (r *PostgresAssessmentRepository) Update(ctx context.Context, a *assessment.Assessment) error {
	query := `UPDATE assessments
               SET subject = $1, score = $2, max_score = $3, kind = $4, date = $5, term = $6
               WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, a.Subject, a.Score, a.MaxScore, a.Kind, a.Date.Format("2006-01-02"), a.Term, a.ID)
	if err != nil {
		return mapAssessmentWriteError("updating", err)
	}
	return expectOneRow(res, assessment.ErrAssessmentNotFound)
}

func (r *PostgresAssessmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting assessment: %w", err)
	}
	return expectOneRow(res, assessment.ErrAssessmentNotFound)
}

func (r *PostgresAssessmentRepository) Exists(ctx context.Context, key assessment.DedupKey) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM assessments
                WHERE student_id = $1 AND subject = $2 AND kind = $3 AND date = $4 AND term = $5)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, key.StudentID, key.Subject, key.Kind, key.Date, key.Term); err != nil {
		return false, fmt.Errorf("error checking assessment existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresAssessmentRepository) List(ctx context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	query, args := buildAssessmentQuery(f)
	items := make([]*assessment.Assessment, 0)
	if err := sqlx.SelectContext(ctx, r.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("error listing assessments: %w", err)
	}
	return items, nil
}

func buildAssessmentQuery(f assessment.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	from := `FROM assessments a`
	if f.ClassID != 0 {
		from += ` JOIN students s ON s.id = a.student_id`
		add("s.class_id = $%d", f.ClassID)
	}
	if f.StudentID != 0 {
		add("a.student_id = $%d", f.StudentID)
	}
	if f.Subject != "" {
		add("a.subject = $%d", f.Subject)
	}
	if f.Term != 0 {
		add("a.term = $%d", f.Term)
	}
	if !f.Date.IsZero() {
		add("a.date = $%d", f.Date.Format("2006-01-02"))
	}

	query := `SELECT ` + assessmentColumns + ` ` + from
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY a.student_id, a.id`
	return query, args
}

func mapAssessmentWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, "assessments_dedup_key"):
		return assessment.ErrDuplicateAssessment
	case isForeignKeyViolation(err, "assessments_student_id_fkey"):
		return roster.ErrStudentNotFound
	}
	return fmt.Errorf("error %s assessment: %w", op, err)
}
