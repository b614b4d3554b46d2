package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"school_admin/internal/domain/roster"
)

type rosterRepository struct {
	db *DB
}

func (r *rosterRepository) CreateClass(_ context.Context, c *roster.Class) error {
	r.db.lock()
	defer r.db.unlock()

	for _, existing := range r.db.t.classes {
		if existing.Name == c.Name {
			return roster.ErrDuplicateClassName
		}
	}
	c.ID = r.db.t.nextID()
	c.CreatedAt = r.db.now()
	r.db.t.classes[c.ID] = *c
	return nil
}

func (r *rosterRepository) GetClass(_ context.Context, id int64) (*roster.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if c, ok := r.db.t.classes[id]; ok {
		return &c, nil
	}
	return nil, roster.ErrClassNotFound
}

func (r *rosterRepository) GetClassByName(_ context.Context, name string) (*roster.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, c := range r.db.t.classes {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, roster.ErrClassNotFound
}

func (r *rosterRepository) ListClasses(_ context.Context) ([]*roster.Class, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*roster.Class, 0, len(r.db.t.classes))
	for _, c := range r.db.t.classes {
		c := c
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (r *rosterRepository) DeleteClass(_ context.Context, id int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.classes[id]; !ok {
		return roster.ErrClassNotFound
	}
	delete(r.db.t.classes, id)
	for sid, s := range r.db.t.students {
		if s.ClassID.Valid && s.ClassID.Int64 == id {
			s.ClassID.Valid = false
			s.ClassID.Int64 = 0
			r.db.t.students[sid] = s
		}
	}
	return nil
}

func (r *rosterRepository) CreateStudent(_ context.Context, s *roster.Student) error {
	r.db.lock()
	defer r.db.unlock()

	if s.ClassID.Valid {
		if _, ok := r.db.t.classes[s.ClassID.Int64]; !ok {
			return roster.ErrClassNotFound
		}
	}
	s.ID = r.db.t.nextID()
	s.CreatedAt = r.db.now()
	r.db.t.students[s.ID] = *s
	return nil
}

func (r *rosterRepository) GetStudent(_ context.Context, id int64) (*roster.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.t.students[id]; ok {
		return &s, nil
	}
	return nil, roster.ErrStudentNotFound
}

func (r *rosterRepository) FindStudent(_ context.Context, lastName, firstName string, classID sql.NullInt64) (*roster.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, s := range r.sortedStudents() {
		if s.LastName == lastName && s.FirstName == firstName && sameClass(s.ClassID, classID) {
			return s, nil
		}
	}
	return nil, roster.ErrStudentNotFound
}

func (r *rosterRepository) UpdateStudent(_ context.Context, s *roster.Student) error {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.students[s.ID]
	if !ok {
		return roster.ErrStudentNotFound
	}
	if s.ClassID.Valid {
		if _, ok := r.db.t.classes[s.ClassID.Int64]; !ok {
			return roster.ErrClassNotFound
		}
	}
	s.CreatedAt = existing.CreatedAt
	r.db.t.students[s.ID] = *s
	return nil
}

func (r *rosterRepository) DeleteStudent(_ context.Context, id int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.students[id]; !ok {
		return roster.ErrStudentNotFound
	}
	delete(r.db.t.students, id)
	for l := range r.db.t.links {
		if l.studentID == id {
			delete(r.db.t.links, l)
		}
	}
	for aid, a := range r.db.t.assessments {
		if a.StudentID == id {
			delete(r.db.t.assessments, aid)
		}
	}
	for eid, e := range r.db.t.entries {
		if e.StudentID.Valid && e.StudentID.Int64 == id {
			e.StudentID.Valid = false
			e.StudentID.Int64 = 0
			r.db.t.entries[eid] = e
		}
	}
	return nil
}

func (r *rosterRepository) ListStudentsByClass(_ context.Context, classID int64) ([]*roster.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*roster.Student, 0)
	for _, s := range r.sortedStudents() {
		if s.ClassID.Valid && s.ClassID.Int64 == classID {
			res = append(res, s)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].FirstName < res[j].FirstName
	})
	return res, nil
}

// sortedStudents must be called with the lock held.
func (r *rosterRepository) sortedStudents() []*roster.Student {
	res := make([]*roster.Student, 0, len(r.db.t.students))
	for _, s := range r.db.t.students {
		s := s
		res = append(res, &s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *rosterRepository) sortedParents() []*roster.Parent {
	res := make([]*roster.Parent, 0, len(r.db.t.parents))
	for _, p := range r.db.t.parents {
		p := p
		res = append(res, &p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *rosterRepository) CreateParent(_ context.Context, p *roster.Parent) error {
	r.db.lock()
	defer r.db.unlock()

	p.ID = r.db.t.nextID()
	p.CreatedAt = r.db.now()
	r.db.t.parents[p.ID] = *p
	return nil
}

func (r *rosterRepository) GetParent(_ context.Context, id int64) (*roster.Parent, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if p, ok := r.db.t.parents[id]; ok {
		return &p, nil
	}
	return nil, roster.ErrParentNotFound
}

func (r *rosterRepository) FindParentByPhone(_ context.Context, phone string) (*roster.Parent, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, p := range r.sortedParents() {
		if p.Phone.Valid && p.Phone.String == phone {
			return p, nil
		}
	}
	return nil, roster.ErrParentNotFound
}

func (r *rosterRepository) FindParentByName(_ context.Context, firstName, lastName string) (*roster.Parent, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, p := range r.sortedParents() {
		if p.FirstName.String == firstName && p.LastName.String == lastName {
			return p, nil
		}
	}
	return nil, roster.ErrParentNotFound
}

func (r *rosterRepository) UpdateParent(_ context.Context, p *roster.Parent) error {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.parents[p.ID]
	if !ok {
		return roster.ErrParentNotFound
	}
	p.CreatedAt = existing.CreatedAt
	r.db.t.parents[p.ID] = *p
	return nil
}

func (r *rosterRepository) DeleteParent(_ context.Context, id int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.parents[id]; !ok {
		return roster.ErrParentNotFound
	}
	delete(r.db.t.parents, id)
	for l := range r.db.t.links {
		if l.parentID == id {
			delete(r.db.t.links, l)
		}
	}
	for eid, e := range r.db.t.entries {
		if e.ParentID.Valid && e.ParentID.Int64 == id {
			e.ParentID.Valid = false
			e.ParentID.Int64 = 0
			r.db.t.entries[eid] = e
		}
	}
	return nil
}

func (r *rosterRepository) LinkParent(_ context.Context, parentID, studentID int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.parents[parentID]; !ok {
		return roster.ErrParentNotFound
	}
	if _, ok := r.db.t.students[studentID]; !ok {
		return roster.ErrStudentNotFound
	}
	r.db.t.links[link{parentID: parentID, studentID: studentID}] = struct{}{}
	return nil
}

func (r *rosterRepository) UnlinkParent(_ context.Context, parentID, studentID int64) error {
	r.db.lock()
	defer r.db.unlock()

	delete(r.db.t.links, link{parentID: parentID, studentID: studentID})
	return nil
}

func (r *rosterRepository) ListParentsOfStudent(_ context.Context, studentID int64) ([]*roster.Parent, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*roster.Parent, 0)
	for _, p := range r.sortedParents() {
		if _, ok := r.db.t.links[link{parentID: p.ID, studentID: studentID}]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *rosterRepository) ListStudentsOfParent(_ context.Context, parentID int64) ([]*roster.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*roster.Student, 0)
	for _, s := range r.sortedStudents() {
		if _, ok := r.db.t.links[link{parentID: parentID, studentID: s.ID}]; ok {
			res = append(res, s)
		}
	}
	return res, nil
}

func (r *rosterRepository) CreateProfessor(_ context.Context, p *roster.Professor) error {
	r.db.lock()
	defer r.db.unlock()

	p.Email = strings.ToLower(p.Email)
	for _, existing := range r.db.t.professors {
		if existing.Email == p.Email {
			return roster.ErrDuplicateProfessorEmail
		}
	}
	p.ID = r.db.t.nextID()
	p.CreatedAt = r.db.now()
	r.db.t.professors[p.ID] = *p
	return nil
}

func (r *rosterRepository) GetProfessor(_ context.Context, id int64) (*roster.Professor, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if p, ok := r.db.t.professors[id]; ok {
		return &p, nil
	}
	return nil, roster.ErrProfessorNotFound
}

func (r *rosterRepository) UpdateProfessor(_ context.Context, p *roster.Professor) error {
	r.db.lock()
	defer r.db.unlock()

	existing, ok := r.db.t.professors[p.ID]
	if !ok {
		return roster.ErrProfessorNotFound
	}
	p.Email = strings.ToLower(p.Email)
	for id, other := range r.db.t.professors {
		if id != p.ID && other.Email == p.Email {
			return roster.ErrDuplicateProfessorEmail
		}
	}
	p.CreatedAt = existing.CreatedAt
	r.db.t.professors[p.ID] = *p
	return nil
}

func (r *rosterRepository) DeleteProfessor(_ context.Context, id int64) error {
	r.db.lock()
	defer r.db.unlock()

	if _, ok := r.db.t.professors[id]; !ok {
		return roster.ErrProfessorNotFound
	}
	delete(r.db.t.professors, id)
	return nil
}

func (r *rosterRepository) ListProfessors(_ context.Context) ([]*roster.Professor, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*roster.Professor, 0, len(r.db.t.professors))
	for _, p := range r.db.t.professors {
		p := p
		res = append(res, &p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func sameClass(a, b sql.NullInt64) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Int64 == b.Int64
}
