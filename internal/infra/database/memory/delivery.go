package memory

import (
	"context"
	"sort"
	"time"

	"school_admin/internal/domain/delivery"
)

type deliveryRepository struct {
	db *DB
}

func (r *deliveryRepository) Append(_ context.Context, e *delivery.Entry) error {
	r.db.lock()
	defer r.db.unlock()

	e.ID = r.db.t.nextID()
	e.CreatedAt = r.db.now()
	r.db.t.entries[e.ID] = *e
	return nil
}

func (r *deliveryRepository) Claim(_ context.Context, e *delivery.Entry, at time.Time) (bool, error) {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.entries[e.ID]
	if !ok {
		return false, delivery.ErrEntryNotFound
	}
	if existing.Attempts != e.Attempts || !existing.Claimable(at) {
		return false, nil
	}
	e.Claim(at)
	existing.Status = e.Status
	existing.Attempts = e.Attempts
	existing.ClaimedAt = e.ClaimedAt
	r.db.t.entries[e.ID] = existing
	return true, nil
}

func (r *deliveryRepository) Update(_ context.Context, e *delivery.Entry) error {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.entries[e.ID]
	if !ok {
		return delivery.ErrEntryNotFound
	}
	if existing.Status != delivery.StatusSending || existing.Attempts != e.Attempts {
		return delivery.ErrClaimLost
	}
	existing.Status = e.Status
	existing.LastError = e.LastError
	existing.ProviderID = e.ProviderID
	existing.SentAt = e.SentAt
	r.db.t.entries[e.ID] = existing
	return nil
}

func (r *deliveryRepository) GetByID(_ context.Context, id int64) (*delivery.Entry, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if e, ok := r.db.t.entries[id]; ok {
		return &e, nil
	}
	return nil, delivery.ErrEntryNotFound
}

func (r *deliveryRepository) ListRetryCandidates(_ context.Context, now time.Time) ([]*delivery.Entry, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*delivery.Entry, 0)
	for _, e := range r.sorted() {
		if e.Claimable(now) {
			res = append(res, e)
		}
	}
	return res, nil
}

func (r *deliveryRepository) ListRecent(_ context.Context, limit int) ([]*delivery.Entry, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	all := r.sorted()
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *deliveryRepository) sorted() []*delivery.Entry {
	res := make([]*delivery.Entry, 0, len(r.db.t.entries))
	for _, e := range r.db.t.entries {
		e := e
		res = append(res, &e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
