package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVText reads a CSV stream and flattens it into tab-joined lines, the
// same row shape the workbook reader produces. CSV files carry a single
// unnamed sheet, so no sheet marker is emitted.
func CSVText(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // BOQ exports rarely keep a fixed width
	reader.LazyQuotes = true

	var b strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "csv: read row")
		}
		b.WriteString(strings.Join(record, "\t"))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
