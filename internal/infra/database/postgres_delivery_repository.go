package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"school_admin/internal/domain/delivery"
)

const entryColumns = `id, batch_id, parent_id, student_id, template, channel, content, status,
               provider_id, attempts, last_error, sent_at, claimed_at, created_at`

type PostgresDeliveryRepository struct {
	db sqlx.ExtContext
}

func NewPostgresDeliveryRepository(db sqlx.ExtContext) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

func (r *PostgresDeliveryRepository) Append(ctx context.Context, e *delivery.Entry) error {
	query := `INSERT INTO delivery_log (batch_id, parent_id, student_id, template, channel, content, status,
                                       provider_id, attempts, last_error, sent_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		e.BatchID, e.ParentID, e.StudentID, e.Template, e.Channel, e.Content, e.Status,
		e.ProviderID, e.Attempts, e.LastError, e.SentAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error appending delivery entry: %w", err)
	}
	return nil
}

// Claim is a compare-and-set on the attempt count, so of two runners holding
// the same snapshot exactly one gets the row.
func (r *PostgresDeliveryRepository) Claim(ctx context.Context, e *delivery.Entry, at time.Time) (bool, error) {
	query := `UPDATE delivery_log
               SET status = $1, attempts = attempts + 1, claimed_at = $2
               WHERE id = $3 AND attempts = $4 AND attempts < $5
                 AND (status IN ($6, $7) OR (status = $1 AND claimed_at < $8))`
	res, err := r.db.ExecContext(ctx, query,
		delivery.StatusSending, at, e.ID, e.Attempts, delivery.MaxAttempts,
		delivery.StatusQueued, delivery.StatusFailed, at.Add(-delivery.ClaimTimeout),
	)
	if err != nil {
		return false, fmt.Errorf("error claiming delivery entry %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	e.Claim(at)
	return true, nil
}

func (r *PostgresDeliveryRepository) Update(ctx context.Context, e *delivery.Entry) error {
	query := `UPDATE delivery_log
               SET status = $1, last_error = $2, provider_id = $3, sent_at = $4
               WHERE id = $5 AND attempts = $6 AND status = $7`
	res, err := r.db.ExecContext(ctx, query,
		e.Status, e.LastError, e.ProviderID, e.SentAt, e.ID, e.Attempts, delivery.StatusSending,
	)
	if err != nil {
		return fmt.Errorf("error updating delivery entry %d: %w", e.ID, err)
	}
	return expectOneRow(res, delivery.ErrClaimLost)
}

func (r *PostgresDeliveryRepository) GetByID(ctx context.Context, id int64) (*delivery.Entry, error) {
	e := &delivery.Entry{}
	err := sqlx.GetContext(ctx, r.db, e, `SELECT `+entryColumns+` FROM delivery_log WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, delivery.ErrEntryNotFound
		}
		return nil, fmt.Errorf("error getting delivery entry by ID: %w", err)
	}
	return e, nil
}

func (r *PostgresDeliveryRepository) ListRetryCandidates(ctx context.Context, now time.Time) ([]*delivery.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM delivery_log
               WHERE attempts < $1
                 AND (status IN ($2, $3) OR (status = $4 AND claimed_at < $5))
               ORDER BY id ASC`
	entries := make([]*delivery.Entry, 0)
	err := sqlx.SelectContext(ctx, r.db, &entries, query,
		delivery.MaxAttempts, delivery.StatusQueued, delivery.StatusFailed,
		delivery.StatusSending, now.Add(-delivery.ClaimTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("error listing retry candidates: %w", err)
	}
	return entries, nil
}

func (r *PostgresDeliveryRepository) ListRecent(ctx context.Context, limit int) ([]*delivery.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM delivery_log ORDER BY id DESC LIMIT $1`
	entries := make([]*delivery.Entry, 0)
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("error listing recent delivery entries: %w", err)
	}
	return entries, nil
}
