// Package memory is an in-process Store backing the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
)

type link struct {
	parentID, studentID int64
}

type tables struct {
	pkCount     int64
	classes     map[int64]roster.Class
	students    map[int64]roster.Student
	parents     map[int64]roster.Parent
	professors  map[int64]roster.Professor
	links       map[link]struct{}
	assessments map[int64]assessment.Assessment
	entries     map[int64]delivery.Entry
}

func newTables() *tables {
	return &tables{
		classes:     make(map[int64]roster.Class),
		students:    make(map[int64]roster.Student),
		parents:     make(map[int64]roster.Parent),
		professors:  make(map[int64]roster.Professor),
		links:       make(map[link]struct{}),
		assessments: make(map[int64]assessment.Assessment),
		entries:     make(map[int64]delivery.Entry),
	}
}

// clone copies every row by value so a rolled back transaction leaves no trace.
func (t *tables) clone() *tables {
	c := newTables()
	c.pkCount = t.pkCount
	for k, v := range t.classes {
		c.classes[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.parents {
		c.parents[k] = v
	}
	for k, v := range t.professors {
		c.professors[k] = v
	}
	for k := range t.links {
		c.links[k] = struct{}{}
	}
	for k, v := range t.assessments {
		c.assessments[k] = v
	}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}

func (t *tables) nextID() int64 {
	t.pkCount++
	return t.pkCount
}

type DB struct {
	mutex sync.RWMutex
	t     *tables
	now   func() time.Time
	// writer is held by every write and, on the root DB, for the whole of an
	// open transaction, so a publish never drops a write made beside it.
	writer *sync.Mutex
}

func (db *DB) lock() {
	db.writer.Lock()
	db.mutex.Lock()
}

func (db *DB) unlock() {
	db.mutex.Unlock()
	db.writer.Unlock()
}

// Store implements storage.Store over DB.
type Store struct {
	db *DB
}

func NewStore() *Store {
	return &Store{db: newDB(newTables(), time.Now)}
}

func newDB(t *tables, now func() time.Time) *DB {
	return &DB{t: t, now: now, writer: &sync.Mutex{}}
}

func (s *Store) Roster() roster.Repository { return &rosterRepository{db: s.db} }
func (s *Store) Assessments() assessment.Repository { return &assessmentRepository{db: s.db} }
func (s *Store) Deliveries() delivery.Repository { return &deliveryRepository{db: s.db} }

// WithinTx runs fn on a private copy of the tables and publishes the copy
// only when fn succeeds. Transactions are serialized with each other and with
// writes outside them; reads proceed. fn must not write through s itself.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	s.db.writer.Lock()
	defer s.db.writer.Unlock()

	s.db.mutex.RLock()
	snapshot := s.db.t.clone()
	s.db.mutex.RUnlock()

	txStore := &Store{db: newDB(snapshot, s.db.now)}
	if err := fn(txStore); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mutex.Lock()
	s.db.t = txStore.db.t
	s.db.mutex.Unlock()
	return nil
}

var _ storage.Store = (*Store)(nil)
