package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_admin/internal/domain/errs"
)

func scenarioRows() []RawRow {
	return []RawRow{
		{"Dupont", "Jean", "2012-05-04", "6ème", "Marie", "Dupont", "+33612345678", "Oui"},
		{"Dupont", "Sophie", "04/09/2013", "6ème", "Marie", "Dupont", "+33612345678", "Oui"},
	}
}

func TestImportSharedParent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewImportService(store, testLogger())

	report, err := svc.Import(ctx, scenarioRows())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Classes)
	assert.Equal(t, 1, report.Parents)

	class, err := store.Roster().GetClassByName(ctx, "6ème")
	require.NoError(t, err)
	students, err := store.Roster().ListStudentsByClass(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)

	parent, err := store.Roster().FindParentByPhone(ctx, "+33612345678")
	require.NoError(t, err)
	assert.True(t, parent.WhatsAppOptIn)
	children, err := store.Roster().ListStudentsOfParent(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	assert.True(t, students[0].Birthdate.Valid)
	assert.Equal(t, time.Date(2012, 5, 4, 0, 0, 0, 0, time.UTC), students[0].Birthdate.Time)
	assert.Equal(t, time.Date(2013, 9, 4, 0, 0, 0, 0, time.UTC), students[1].Birthdate.Time)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewImportService(store, testLogger())

	_, err := svc.Import(ctx, scenarioRows())
	require.NoError(t, err)

	report, err := svc.Import(ctx, scenarioRows())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 0, report.Parents)

	class, err := store.Roster().GetClassByName(ctx, "6ème")
	require.NoError(t, err)
	students, err := store.Roster().ListStudentsByClass(ctx, class.ID)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestImportMergesParentByPhone(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewImportService(store, testLogger())

	rows := []RawRow{
		{"Martin", "Paul", nil, "5ème", "Claire", "Martin", "+33700000001", "non"},
		// same phone, different spelling of the name
		{"Martin", "Lea", nil, "4ème", "C.", "Martin-Roux", " +33700000001 ", true},
	}
	report, err := svc.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Parents)

	parent, err := store.Roster().FindParentByPhone(ctx, "+33700000001")
	require.NoError(t, err)
	assert.Equal(t, "Claire Martin", parent.FullName(), "existing parent is not updated by import")
	assert.False(t, parent.WhatsAppOptIn)
	children, err := store.Roster().ListStudentsOfParent(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestImportSkipsIncompleteRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewImportService(store, testLogger())

	rows := []RawRow{
		{"Dupont", "Jean"},
		{"", "Jean", nil, "6ème"},
		{"Petit", "Luc", "not a date", ""},
	}
	report, err := svc.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Classes)

	st, err := store.Roster().FindStudent(ctx, "Petit", "Luc", sql.NullInt64{})
	require.NoError(t, err)
	assert.False(t, st.ClassID.Valid)
	assert.False(t, st.Birthdate.Valid)
}

func TestImportRollsBackWholeBatch(t *testing.T) {
	ctx := context.Background()
	base := newTestStore()
	calls := 0
	store := faultyStore{Store: base, failOn: 7, calls: &calls}
	svc := NewImportService(store, testLogger())

	rows := []RawRow{
		{"A", "One", nil, "CM1", "P", "One", "+33600000001", "oui"},
		{"B", "Two", nil, "", "P", "Two", "+33600000002", "oui"},
		{"C", "Three", nil, "CM2", "P", "Three", "+33600000003", "oui"},
		{"D", "Four", nil, "", "P", "Four", "+33600000004", "oui"},
		{"E", "Five", nil, "CM2", "P", "Five", "+33600000005", "oui"},
		{"F", "Six", nil, "", "P", "Six", "+33600000006", "oui"},
		{"G", "Seven", nil, "CM1", "P", "Seven", "+33600000007", "oui"},
		{"H", "Eight", nil, "", "P", "Eight", "+33600000008", "oui"},
		{"I", "Nine", nil, "CM2", "P", "Nine", "+33600000009", "oui"},
		{"J", "Ten", nil, "", "P", "Ten", "+33600000010", "oui"},
	}
	_, err := svc.Import(ctx, rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTransaction))
	assert.Equal(t, 7, calls, "failure hit the seventh row")

	classes, err := base.Roster().ListClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, classes)
	for _, row := range rows {
		last, first, phone := row[0].(string), row[1].(string), row[6].(string)
		_, err := base.Roster().FindStudent(ctx, last, first, sql.NullInt64{})
		assert.True(t, errors.Is(err, errs.ErrNotFound), "student %s %s", first, last)
		_, err = base.Roster().FindParentByPhone(ctx, phone)
		assert.True(t, errors.Is(err, errs.ErrNotFound), "parent %s", phone)
	}
	// ids are shared across tables, so no id the batch could have used survives
	for id := int64(1); id <= 40; id++ {
		_, err := base.Roster().GetStudent(ctx, id)
		assert.True(t, errors.Is(err, errs.ErrNotFound), "student id %d", id)
	}
}

func TestParseWhatsAppFlag(t *testing.T) {
	for _, v := range []interface{}{"Oui", "YES", " true ", "1", true, 1.0} {
		assert.True(t, parseWhatsAppFlag(v), "%v", v)
	}
	for _, v := range []interface{}{"non", "", nil, false, "maybe", 0.0} {
		assert.False(t, parseWhatsAppFlag(v), "%v", v)
	}
}

func TestParseBirthdate(t *testing.T) {
	want := time.Date(2012, 5, 4, 0, 0, 0, 0, time.UTC)
	for _, v := range []interface{}{"2012-05-04", "04/05/2012", "2012-05-04 08:30:00", "05-04-12", want.Add(9 * time.Hour)} {
		got := parseBirthdate(v)
		assert.True(t, got.Valid, "%v", v)
		assert.Equal(t, want, got.Time, "%v", v)
	}
	assert.False(t, parseBirthdate("yesterday").Valid)
	assert.False(t, parseBirthdate(nil).Valid)
	assert.False(t, parseBirthdate(time.Time{}).Valid)
}
