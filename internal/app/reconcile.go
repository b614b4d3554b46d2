package app

import (
	"context"
	"errors"

	"school_admin/internal/domain/roster"
)

// findParent resolves a parent by phone, then by full name when both parts are
// given. It returns nil without error when nothing matches.
func findParent(ctx context.Context, repo roster.Repository, firstName, lastName, phone string) (*roster.Parent, error) {
	if phone != "" {
		p, err := repo.FindParentByPhone(ctx, phone)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, roster.ErrParentNotFound) {
			return nil, err
		}
	}
	if firstName != "" && lastName != "" {
		p, err := repo.FindParentByName(ctx, firstName, lastName)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, roster.ErrParentNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
