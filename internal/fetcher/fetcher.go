// Package fetcher reads BOQ source files (XLSX, CSV, plain text) and
// normalizes them into sheet-tagged text for the row parsers.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Load reads a BOQ file and returns its sheet-tagged text form. The
// format dispatches on extension; anything unrecognized is treated as
// plain text with encoding fallback.
func Load(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WorkbookText(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return "", eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close()
		return CSVText(f)
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrap(err, "fetcher: read file")
		}
		return DecodeText(raw), nil
	}
}
