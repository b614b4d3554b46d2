package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_admin/internal/domain/errs"
	"school_admin/internal/domain/roster"
)

type csvExporter struct{}

func (csvExporter) Export(title string, rows []ExportRow) ([]byte, error) {
	lines := []string{title}
	for _, r := range rows {
		lines = append(lines, strings.Join([]string{r.LastName, r.FirstName, r.Birthdate, r.Parents}, ";"))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func TestAddStudentWithParent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewRosterService(store, testLogger())
	class, err := svc.AddClass(ctx, NewClass{Name: "  6ème  "})
	require.NoError(t, err)
	assert.Equal(t, "6ème", class.Name)

	birth := time.Date(2012, 5, 4, 13, 0, 0, 0, time.UTC)
	jean, err := svc.AddStudent(ctx, NewStudent{
		FirstName: "Jean", LastName: "Dupont", Birthdate: &birth, ClassID: class.ID,
		Parent: &ParentFields{FirstName: "Marie", LastName: "Dupont", Phone: "+33612345678"},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 5, 4, 0, 0, 0, 0, time.UTC), jean.Birthdate.Time)

	// the same phone resolves to the existing parent, which gets refreshed
	sophie, err := svc.AddStudent(ctx, NewStudent{
		FirstName: "Sophie", LastName: "Dupont", ClassID: class.ID,
		Parent: &ParentFields{Phone: "+33612345678", Email: "Marie@Example.com", WhatsAppOptIn: true},
	})
	require.NoError(t, err)

	parent, err := store.Roster().FindParentByPhone(ctx, "+33612345678")
	require.NoError(t, err)
	assert.Equal(t, "Marie Dupont", parent.FullName())
	assert.Equal(t, "marie@example.com", parent.Email.String)
	assert.True(t, parent.WhatsAppOptIn)

	children, err := store.Roster().ListStudentsOfParent(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, []int64{jean.ID, sophie.ID}, []int64{children[0].ID, children[1].ID})

	title, rows, err := svc.ExportRows(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, "Class 6ème", title)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportRow{ID: jean.ID, LastName: "Dupont", FirstName: "Jean", Birthdate: "2012-05-04", Parents: "Marie Dupont"}, rows[0])

	data, err := svc.Export(ctx, class.ID, csvExporter{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dupont;Sophie;;Marie Dupont")
}

func TestAddStudentValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewRosterService(store, testLogger())

	_, err := svc.AddStudent(ctx, NewStudent{
		FirstName: " ", LastName: "Dupont",
		Parent: &ParentFields{FirstName: "Marie", Phone: "0612345678"},
	})
	var vErr *errs.ValidationError
	require.True(t, errors.As(err, &vErr))
	var fields []string
	for _, f := range vErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"first_name", "phone"}, fields)

	// nothing was written
	_, err = store.Roster().FindStudent(ctx, "Dupont", "", sql.NullInt64{})
	assert.True(t, errors.Is(err, roster.ErrStudentNotFound))
}

func TestAddStudentUnknownClass(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewRosterService(store, testLogger())

	_, err := svc.AddStudent(ctx, NewStudent{
		FirstName: "Jean", LastName: "Dupont", ClassID: 77,
		Parent: &ParentFields{Phone: "+33612345678"},
	})
	assert.True(t, errors.Is(err, roster.ErrClassNotFound))

	_, err = store.Roster().FindParentByPhone(ctx, "+33612345678")
	assert.True(t, errors.Is(err, roster.ErrParentNotFound))
}

func TestDuplicateClassAndProfessor(t *testing.T) {
	ctx := context.Background()
	svc := NewRosterService(newTestStore(), testLogger())

	_, err := svc.AddClass(ctx, NewClass{Name: "CM1"})
	require.NoError(t, err)
	_, err = svc.AddClass(ctx, NewClass{Name: "CM1"})
	assert.True(t, errors.Is(err, errs.ErrDuplicateIdentity))

	prof, err := svc.AddProfessor(ctx, NewProfessor{FirstName: "Anne", LastName: "Leroy", Email: "A.Leroy@school.org", Subjects: []string{" Maths ", "Physics"}})
	require.NoError(t, err)
	assert.True(t, prof.IsActive)
	assert.Equal(t, []string{"Maths", "Physics"}, prof.SubjectList())

	_, err = svc.AddProfessor(ctx, NewProfessor{FirstName: "Alain", LastName: "Leroy", Email: "a.leroy@school.org"})
	assert.True(t, errors.Is(err, roster.ErrDuplicateProfessorEmail))

	inactive := false
	prof, err = svc.UpdateProfessor(ctx, prof.ID, NewProfessor{FirstName: "Anne", LastName: "Leroy", Email: "a.leroy@school.org", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, prof.IsActive)
	assert.Empty(t, prof.SubjectList())
}

func TestUpdateStudentMovesAndClears(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewRosterService(store, testLogger())
	a := mustClass(t, store, "CM1")
	b := mustClass(t, store, "CM2")
	birth := testDate
	st, err := svc.AddStudent(ctx, NewStudent{FirstName: "Jean", LastName: "Dupont", ClassID: a.ID, Birthdate: &birth})
	require.NoError(t, err)

	st, err = svc.UpdateStudent(ctx, st.ID, UpdateStudent{ClassID: &b.ID, ClearBirthdate: true})
	require.NoError(t, err)
	assert.Equal(t, b.ID, st.ClassID.Int64)
	assert.False(t, st.Birthdate.Valid)
	assert.Equal(t, "Jean", st.FirstName)

	none := int64(0)
	st, err = svc.UpdateStudent(ctx, st.ID, UpdateStudent{ClassID: &none})
	require.NoError(t, err)
	assert.False(t, st.ClassID.Valid)

	require.NoError(t, svc.DeleteClass(ctx, a.ID))
	_, err = svc.ListStudentsByClass(ctx, a.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
