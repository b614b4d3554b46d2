package roster

import (
	"context"
	"database/sql"
)

// Repository defines the operations for persisting and retrieving roster entities.
// Lookups return the package's ErrXNotFound sentinels when nothing matches.
type Repository interface {
	CreateClass(ctx context.Context, c *Class) error
	GetClass(ctx context.Context, id int64) (*Class, error)
	GetClassByName(ctx context.Context, name string) (*Class, error)
	ListClasses(ctx context.Context) ([]*Class, error)
	DeleteClass(ctx context.Context, id int64) error // students keep existing with a NULL class

	CreateStudent(ctx context.Context, s *Student) error
	GetStudent(ctx context.Context, id int64) (*Student, error)
	FindStudent(ctx context.Context, lastName, firstName string, classID sql.NullInt64) (*Student, error) // NULL class matches unassigned students
	UpdateStudent(ctx context.Context, s *Student) error
	DeleteStudent(ctx context.Context, id int64) error // also removes assessments and parent links
	ListStudentsByClass(ctx context.Context, classID int64) ([]*Student, error)

	CreateParent(ctx context.Context, p *Parent) error
	GetParent(ctx context.Context, id int64) (*Parent, error)
	FindParentByPhone(ctx context.Context, phone string) (*Parent, error)
	FindParentByName(ctx context.Context, firstName, lastName string) (*Parent, error)
	UpdateParent(ctx context.Context, p *Parent) error
	DeleteParent(ctx context.Context, id int64) error

	// LinkParent is a no-op when the pair is already linked.
	LinkParent(ctx context.Context, parentID, studentID int64) error
	UnlinkParent(ctx context.Context, parentID, studentID int64) error
	ListParentsOfStudent(ctx context.Context, studentID int64) ([]*Parent, error)
	ListStudentsOfParent(ctx context.Context, parentID int64) ([]*Student, error)

	CreateProfessor(ctx context.Context, p *Professor) error
	GetProfessor(ctx context.Context, id int64) (*Professor, error)
	UpdateProfessor(ctx context.Context, p *Professor) error
	DeleteProfessor(ctx context.Context, id int64) error
	ListProfessors(ctx context.Context) ([]*Professor, error)
}
