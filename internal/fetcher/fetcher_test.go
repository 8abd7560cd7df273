package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestWorkbook(t *testing.T) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Bill 1 - Cables")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"Item", "Description", "Unit", "Qty", "Rate"} {
		header.AddCell().Value = h
	}
	row := sheet.AddRow()
	for _, v := range []string{"1.1", "4 Core 95mm XLPE Cable", "m", "120", "250.00"} {
		row.AddCell().Value = v
	}

	notes, err := f.AddSheet("Notes")
	require.NoError(t, err)
	notes.AddRow().AddCell().Value = "Notes to tenderer"

	path := filepath.Join(t.TempDir(), "boq.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestWorkbookText(t *testing.T) {
	path := writeTestWorkbook(t)

	text, err := WorkbookText(path)
	require.NoError(t, err)

	assert.Contains(t, text, "=== SHEET: Bill 1 - Cables ===")
	assert.Contains(t, text, "=== SHEET: Notes ===")
	assert.Contains(t, text, "1.1\t4 Core 95mm XLPE Cable\tm\t120\t250.00")
}

func TestWorkbookSheetNames(t *testing.T) {
	path := writeTestWorkbook(t)

	names, err := WorkbookSheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bill 1 - Cables", "Notes"}, names)
}

func TestWorkbookText_MissingFile(t *testing.T) {
	_, err := WorkbookText(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}

func TestReadCatalogXLSX_SkipsHeader(t *testing.T) {
	path := writeTestWorkbook(t)

	rows, err := ReadCatalogXLSX(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "4 Core 95mm XLPE Cable", rows[0][1])
}

func TestCSVText(t *testing.T) {
	in := "Item,Description,Qty\n1.1,\"Cable, armoured\",120\n"
	text, err := CSVText(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Item\tDescription\tQty\n1.1\tCable, armoured\t120\n", text)
}

func TestCSVText_VariableWidth(t *testing.T) {
	in := "a,b,c\nonly one\n"
	text, err := CSVText(strings.NewReader(in))
	require.NoError(t, err)
	assert.Contains(t, text, "only one\n")
}

func TestDecodeText_UTF8Passthrough(t *testing.T) {
	s := DecodeText([]byte("cable 95mm²"))
	assert.Equal(t, "cable 95mm²", s)
}

func TestDecodeText_Windows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in Windows-1252 and invalid UTF-8.
	raw := []byte{'r', 'a', 't', 'e', ' ', 0x93, 'o', 'n', 'l', 'y', 0x94}
	s := DecodeText(raw)
	assert.Equal(t, "rate “only”", s)
}

func TestLoad_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boq.txt")
	require.NoError(t, os.WriteFile(path, []byte("=== SHEET: One ===\nrow"), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, text, "=== SHEET: One ===")
}

func TestLoad_CSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boq.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	text, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n1\t2\n", text)
}
