package delivery

import (
	"context"
	"time"
)

// Repository is the append/update store behind the Delivery Log.
type Repository interface {
	Append(ctx context.Context, e *Entry) error // sets ID and CreatedAt
	// Claim atomically moves e into sending and counts the attempt, provided the
	// stored row still has e's attempt count and is Claimable at at. It reports
	// false when another runner got there first; e is left untouched then.
	Claim(ctx context.Context, e *Entry, at time.Time) (bool, error)
	// Update writes the outcome of a claimed attempt: status, error, provider
	// id, sent time. Returns ErrClaimLost when the row no longer holds e's claim.
	Update(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	// ListRetryCandidates returns entries Claimable at now, oldest first.
	ListRetryCandidates(ctx context.Context, now time.Time) ([]*Entry, error)
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
}
