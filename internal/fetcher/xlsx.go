package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WorkbookText reads an XLSX workbook and flattens every sheet into
// tagged text: a marker line per sheet followed by one tab-joined line
// per row. Trailing empty cells are kept so column positions survive.
func WorkbookText(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return "", eris.Errorf("xlsx: no sheets in %s", path)
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		b.WriteString("=== SHEET: ")
		b.WriteString(sheet.Name)
		b.WriteString(" ===\n")
		for _, row := range sheet.Rows {
			cells := rowToStrings(row)
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// WorkbookSheetNames returns the sheet names of a workbook in order.
func WorkbookSheetNames(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	names := make([]string, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		names = append(names, sheet.Name)
	}
	return names, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// ReadCatalogXLSX reads a flat catalog sheet as string rows, for master
// material imports. The first sheet is used; the first row is assumed
// to be a header and skipped.
func ReadCatalogXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: no sheets in %s", path)
	}

	var rows [][]string
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}
