// Package storage defines the persistence context handed to every service.
package storage

import (
	"context"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/roster"
)

// Store bundles the repositories that share one database handle.
type Store interface {
	Roster() roster.Repository
	Assessments() assessment.Repository
	Deliveries() delivery.Repository
	// WithinTx runs fn against a transactional Store. A non-nil error from fn
	// rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
