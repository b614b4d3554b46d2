package memory

import (
	"context"
	"sort"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/roster"
)

type assessmentRepository struct {
	db *DB
}

func (r *assessmentRepository) Create(_ context.Context, a *assessment.Assessment) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.students[a.StudentID]; !ok {
		return roster.ErrStudentNotFound
	}
	key := a.DedupKey()
	for _, existing := range r.db.t.assessments {
		if existing.DedupKey() == key {
			return assessment.ErrDuplicateAssessment
		}
	}
	a.ID = r.db.t.nextID()
	a.CreatedAt = r.db.now()
	r.db.t.assessments[a.ID] = *a
	return nil
}

func (r *assessmentRepository) GetByID(_ context.Context, id int64) (*assessment.Assessment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if a, ok := r.db.t.assessments[id]; ok {
		return &a, nil
	}
	return nil, assessment.ErrAssessmentNotFound
}

func (r *assessmentRepository) Update(_ context.Context, a *assessment.Assessment) error {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.assessments[a.ID]
	if !ok {
		return assessment.ErrAssessmentNotFound
	}
	key := a.DedupKey()
	for id, other := range r.db.t.assessments {
		if id != a.ID && other.DedupKey() == key {
			return assessment.ErrDuplicateAssessment
		}
	}
	a.CreatedAt = existing.CreatedAt
	r.db.t.assessments[a.ID] = *a
	return nil
}

func (r *assessmentRepository) Delete(_ context.Context, id int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.assessments[id]; !ok {
		return assessment.ErrAssessmentNotFound
	}
	delete(r.db.t.assessments, id)
	return nil
}

func (r *assessmentRepository) Exists(_ context.Context, key assessment.DedupKey) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, a := range r.db.t.assessments {
		if a.DedupKey() == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *assessmentRepository) List(_ context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*assessment.Assessment, 0)
	for _, a := range r.db.t.assessments {
		a := a
		if !f.Matches(&a) {
			continue
		}
		if f.ClassID != 0 {
			s, ok := r.db.t.students[a.StudentID]
			if !ok || !s.ClassID.Valid || s.ClassID.Int64 != f.ClassID {
				continue
			}
		}
		res = append(res, &a)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].StudentID != res[j].StudentID {
			return res[i].StudentID < res[j].StudentID
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}
