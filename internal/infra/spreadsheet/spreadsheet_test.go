package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"school_admin/internal/app"
)

func TestTemplateRoundTrip(t *testing.T) {
	data, err := Template([]string{"6ème A", "CM2"})
	require.NoError(t, err)

	rows, err := ReadImportRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, app.RawRow{"Dupont", "Jean", "2012-05-15", "6ème A", "Marie", "Dupont", "+33612345678", "yes"}, rows[0])

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Students", "Classes", "Instructions"}, f.GetSheetList())
	v, err := f.GetCellValue("Classes", "A3")
	require.NoError(t, err)
	assert.Equal(t, "CM2", v)
}

func TestReadImportRowsPadsShortRows(t *testing.T) {
	f := excelize.NewFile()
	header := []interface{}{"Last name", "First name", "Birthdate", "Class", "P first", "P last", "Phone", "WhatsApp"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	short := []interface{}{"Petit", "Luc"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &short))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadImportRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 8)
	assert.Equal(t, "Luc", rows[0][1])
	assert.Nil(t, rows[0][3])
}

func TestXLSXExport(t *testing.T) {
	data, err := XLSXExporter{}.Export("Class 6ème A/B", []app.ExportRow{
		{ID: 7, LastName: "Dupont", FirstName: "Jean", Birthdate: "2012-05-15", Parents: "Marie Dupont"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Class 6ème A-B")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ID", "Last name", "First name", "Birthdate", "Parents"}, rows[0])
	assert.Equal(t, []string{"7", "Dupont", "Jean", "2012-05-15", "Marie Dupont"}, rows[1])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a-b-c", sheetName("a[b]c"))
	assert.Len(t, []rune(sheetName("Class with a really long name beyond the limit")), 31)
	assert.Equal(t, "Sheet1", sheetName(""))
}
