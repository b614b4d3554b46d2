package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
)

// Store implements storage.Store on PostgreSQL. Inside WithinTx the
// repositories run on the transaction instead of the pool.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) Roster() roster.Repository {
	return NewPostgresRosterRepository(s.ext)
}

func (s *Store) Assessments() assessment.Repository {
	return NewPostgresAssessmentRepository(s.ext)
}

func (s *Store) Deliveries() delivery.Repository {
	return NewPostgresDeliveryRepository(s.ext)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if _, nested := s.ext.(*sqlx.Tx); nested {
		return fn(s)
	}

	txn, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&Store{db: s.db, ext: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
