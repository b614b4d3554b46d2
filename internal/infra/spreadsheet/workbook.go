package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"school_admin/internal/app"
)

const (
	headerColor  = "003F7F"
	maxSheetName = 31
)

var (
	exportHeaders   = []interface{}{"ID", "Last name", "First name", "Birthdate", "Parents"}
	templateHeaders = []interface{}{
		"Last name", "First name", "Birthdate", "Class",
		"Parent first name", "Parent last name", "Parent phone (E.164)", "WhatsApp (yes/no)",
	}
	templateExample = []interface{}{"Dupont", "Jean", "2012-05-15", "6ème A", "Marie", "Dupont", "+33612345678", "yes"}
	instructions    = []string{
		"IMPORT INSTRUCTIONS",
		"",
		"Fill the first sheet, one student per row, keeping the header row.",
		"Last name and first name are required; every other column is optional.",
		"Birthdate: YYYY-MM-DD or DD/MM/YYYY.",
		"Class: must match a name from the 'Classes' sheet or a new class is created.",
		"Parent phone: international format, e.g. +33612345678.",
		"WhatsApp: yes/no.",
		"",
		"A parent with the same phone is linked, not duplicated.",
		"A student with the same last name, first name and class is not imported twice.",
	}
)

// XLSXExporter renders class rosters as a single-sheet workbook.
type XLSXExporter struct{}

func (XLSXExporter) Export(title string, rows []app.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheet, exportHeaders); err != nil {
		return nil, err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{r.ID, r.LastName, r.FirstName, r.Birthdate, r.Parents}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "B", "D", 18); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "E", "E", 40); err != nil {
		return nil, err
	}
	return write(f)
}

// Template builds the blank import workbook: the student sheet with one
// example row, the list of existing classes and the instructions.
func Template(classNames []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const students, classes, help = "Students", "Classes", "Instructions"
	if err := f.SetSheetName(f.GetSheetName(0), students); err != nil {
		return nil, err
	}
	if err := writeHeader(f, students, templateHeaders); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(students, "A2", &templateExample); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(students, "A", "H", 20); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(classes); err != nil {
		return nil, err
	}
	if err := writeHeader(f, classes, []interface{}{"Class name"}); err != nil {
		return nil, err
	}
	for i, name := range classNames {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetCellValue(classes, cell, name); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(help); err != nil {
		return nil, err
	}
	for i, line := range instructions {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetCellValue(help, cell, line); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return write(f)
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func write(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName strips characters excel rejects and keeps the 31 character limit.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, title)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		name = "Sheet1"
	}
	return name
}

var _ app.RowExporter = XLSXExporter{}
