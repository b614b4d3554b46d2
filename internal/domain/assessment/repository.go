package assessment

import (
	"context"
)

// Repository persists assessments. Create returns ErrDuplicateAssessment when
// the dedup key is already taken.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id int64) (*Assessment, error)
	Update(ctx context.Context, a *Assessment) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, key DedupKey) (bool, error)
	// List returns matching records ordered by student then id.
	List(ctx context.Context, f Filter) ([]*Assessment, error)
}
