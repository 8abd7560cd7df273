// Package boq turns raw combined sheet text into structured candidate line
// items: sheet segmentation, column-mapped row parsing, and header-inference
// heuristics for unmapped sheets.
package boq

import (
	"regexp"
	"strings"
)

// Sheet is one named block of tab-delimited rows.
type Sheet struct {
	Name  string
	Lines []string
}

var sheetMarker = regexp.MustCompile(`^===\s*SHEET:\s*(.+?)\s*===\s*$`)

var billNumberPattern = regexp.MustCompile(`(?i)bill\s*(?:no\.?\s*)?([a-z0-9.]+)`)

// BillNumber extracts a bill reference from the sheet name ("Bill 3 -
// Small Power" yields "3"). Empty when the name carries none.
func (s Sheet) BillNumber() string {
	if m := billNumberPattern.FindStringSubmatch(s.Name); m != nil {
		return m[1]
	}
	return ""
}

// nonMaterialSheets name fragments that mark a sheet as carrying no line
// items worth parsing.
var nonMaterialSheets = []string{"notes", "qualifications", "summary"}

// SplitSheets splits combined raw text on "=== SHEET: <name> ===" marker
// lines and discards non-material sheets (notes, qualifications, summary).
// Text before the first marker is kept as an unnamed "Sheet1" block.
func SplitSheets(raw string) []Sheet {
	var sheets []Sheet
	current := Sheet{Name: "Sheet1"}

	flush := func() {
		if len(current.Lines) == 0 {
			return
		}
		if !materialSheet(current.Name) {
			return
		}
		sheets = append(sheets, current)
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if m := sheetMarker.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
			flush()
			current = Sheet{Name: m[1]}
			continue
		}
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		current.Lines = append(current.Lines, trimmed)
	}
	flush()

	return sheets
}

func materialSheet(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range nonMaterialSheets {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	return true
}
