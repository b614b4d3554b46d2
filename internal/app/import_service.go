package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/errs"
	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
)

// RawRow is one already-parsed import line. Cells follow ImportColumns; a cell
// may be a string, a time.Time, a bool, a number or nil.
type RawRow []interface{}

// ImportColumns is the expected column order of an import scan.
var ImportColumns = []string{
	"last_name", "first_name", "birthdate", "class_name",
	"parent_first_name", "parent_last_name", "parent_phone", "parent_whatsapp",
}

// minImportCells is the shortest row the reconciler looks at.
const minImportCells = 4

var truthyFlags = map[string]bool{"oui": true, "yes": true, "true": true, "1": true}

var birthdateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05", "01-02-06"}

// ImportReport summarizes one import batch.
type ImportReport struct {
	Imported   int
	Duplicates int
	Skipped    int
	Classes    int // classes created on the fly
	Parents    int // parents created
}

type ImportService struct {
	store  storage.Store
	logger *logrus.Entry
}

func NewImportService(store storage.Store, logger *logrus.Entry) *ImportService {
	return &ImportService{store: store, logger: logger}
}

// Import reconciles rows against the roster in a single transaction. Existing
// students are never updated. Any persistence error rolls back the whole batch.
func (s *ImportService) Import(ctx context.Context, rows []RawRow) (ImportReport, error) {
	var report ImportReport
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		report = ImportReport{}
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.importRow(ctx, tx.Roster(), row, &report); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("rows", len(rows)).Error("Import rolled back")
		return ImportReport{}, fmt.Errorf("%w: import: %w", errs.ErrTransaction, err)
	}

	s.logger.WithFields(logrus.Fields{
		"imported":   report.Imported,
		"duplicates": report.Duplicates,
		"skipped":    report.Skipped,
	}).Info("Import committed")
	return report, nil
}

func (s *ImportService) importRow(ctx context.Context, repo roster.Repository, row RawRow, report *ImportReport) error {
	if len(row) < minImportCells {
		report.Skipped++
		return nil
	}
	lastName := cellString(row, 0)
	firstName := cellString(row, 1)
	if lastName == "" || firstName == "" {
		report.Skipped++
		return nil
	}

	classID, err := s.resolveClass(ctx, repo, cellString(row, 3), report)
	if err != nil {
		return err
	}

	_, err = repo.FindStudent(ctx, lastName, firstName, classID)
	if err == nil {
		report.Duplicates++
		return nil
	}
	if !errors.Is(err, roster.ErrStudentNotFound) {
		return fmt.Errorf("failed to check duplicate student: %w", err)
	}

	st := &roster.Student{
		FirstName: firstName,
		LastName:  lastName,
		Birthdate: parseBirthdate(cell(row, 2)),
		ClassID:   classID,
	}
	if err := repo.CreateStudent(ctx, st); err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	parentFirst := cellString(row, 4)
	parentLast := cellString(row, 5)
	phone := cellString(row, 6)
	if parentFirst != "" || parentLast != "" || phone != "" {
		p, err := findParent(ctx, repo, parentFirst, parentLast, phone)
		if err != nil {
			return fmt.Errorf("failed to look up parent: %w", err)
		}
		if p == nil {
			p = &roster.Parent{
				FirstName:     nullString(parentFirst),
				LastName:      nullString(parentLast),
				Phone:         nullString(phone),
				WhatsAppOptIn: parseWhatsAppFlag(cell(row, 7)),
			}
			if err := repo.CreateParent(ctx, p); err != nil {
				return fmt.Errorf("failed to create parent: %w", err)
			}
			report.Parents++
		}
		if err := repo.LinkParent(ctx, p.ID, st.ID); err != nil {
			return fmt.Errorf("failed to link parent %d: %w", p.ID, err)
		}
	}

	report.Imported++
	return nil
}

// resolveClass finds or creates the class by trimmed name. A blank name leaves
// the student unassigned.
func (s *ImportService) resolveClass(ctx context.Context, repo roster.Repository, name string, report *ImportReport) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}
	c, err := repo.GetClassByName(ctx, name)
	if errors.Is(err, roster.ErrClassNotFound) {
		c = &roster.Class{Name: name}
		if err = repo.CreateClass(ctx, c); err != nil {
			return sql.NullInt64{}, fmt.Errorf("failed to create class %q: %w", name, err)
		}
		report.Classes++
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to resolve class %q: %w", name, err)
	}
	return sql.NullInt64{Int64: c.ID, Valid: true}, nil
}

func cell(row RawRow, i int) interface{} {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// cellString renders a cell as trimmed text. Whole numbers lose their decimal part.
func cellString(row RawRow, i int) string {
	switch v := cell(row, i).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func parseWhatsAppFlag(v interface{}) bool {
	switch f := v.(type) {
	case nil:
		return false
	case bool:
		return f
	default:
		return truthyFlags[strings.ToLower(cellString(RawRow{f}, 0))]
	}
}

func parseBirthdate(v interface{}) sql.NullTime {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return sql.NullTime{}
		}
		return sql.NullTime{Time: truncateDay(d), Valid: true}
	case string:
		d = strings.TrimSpace(d)
		for _, layout := range birthdateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return sql.NullTime{Time: truncateDay(t), Valid: true}
			}
		}
	}
	return sql.NullTime{}
}
