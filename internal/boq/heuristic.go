package boq

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/parse"
)

// headerScanLimit bounds how deep into a sheet the header search looks.
const headerScanLimit = 10

// maxPlausibleQuantity bounds what a bare leading number can mean as a
// quantity in positional mode.
const maxPlausibleQuantity = 100000

// notePatterns identify instruction and boilerplate lines that carry no
// line-item data.
var notePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)notes? to tenderer`),
	regexp.MustCompile(`(?i)failure to comply`),
	regexp.MustCompile(`(?i)^tenderer('s)? (must|shall|to)\b`),
	regexp.MustCompile(`(?i)^refer to\b`),
	regexp.MustCompile(`(?i)^all (rates|prices) (must|shall|to)\b`),
	regexp.MustCompile(`^\s*[\d.,\s]+\s*$`), // pure numbers
	regexp.MustCompile(`^\s*\S\s*$`),        // single characters
}

// ParseHeuristic parses a sheet without a column mapping: it infers a
// header row from the first lines, and falls back to positional parsing
// when no header is found. Row numbering continues after lastRow.
func ParseHeuristic(uploadID string, sheet Sheet, lastRow int) ([]model.ExtractedItem, int) {
	mapping, headerIdx := inferHeader(sheet.Lines)
	if mapping.HasDescription() {
		mapped := Sheet{Name: sheet.Name, Lines: filterNotes(sheet.Lines[headerIdx+1:])}
		return ParseMapped(uploadID, mapped, mapping, lastRow)
	}
	return parsePositional(uploadID, sheet, lastRow)
}

// inferHeader scans the first lines for header-like tokens and records
// column indices by substring match. Returns an all-absent mapping when
// nothing header-like is found.
func inferHeader(lines []string) (model.ColumnMapping, int) {
	for i, line := range lines {
		if i >= headerScanLimit {
			break
		}
		if !strings.Contains(line, "\t") {
			continue
		}

		m := model.NewColumnMapping()
		hits := 0
		for col, cell := range strings.Split(line, "\t") {
			cl := strings.ToLower(strings.TrimSpace(cell))
			if cl == "" {
				continue
			}
			switch {
			case contains(cl, "desc", "particular"):
				setIfAbsent(&m.Description, col, &hits)
			case contains(cl, "qty", "quantity"):
				setIfAbsent(&m.Quantity, col, &hits)
			case cl == "u" || contains(cl, "unit"):
				setIfAbsent(&m.Unit, col, &hits)
			case contains(cl, "supply", "material"):
				setIfAbsent(&m.SupplyRate, col, &hits)
			case contains(cl, "install", "labour", "labor"):
				setIfAbsent(&m.InstallRate, col, &hits)
			case contains(cl, "rate"):
				setIfAbsent(&m.TotalRate, col, &hits)
			case contains(cl, "amount", "total"):
				setIfAbsent(&m.Amount, col, &hits)
			case contains(cl, "item", "ref") || cl == "no" || cl == "nr":
				setIfAbsent(&m.ItemCode, col, &hits)
			}
		}

		if m.HasDescription() && hits >= 2 {
			return m, i
		}
	}
	return model.NewColumnMapping(), 0
}

func setIfAbsent(slot *int, col int, hits *int) {
	if *slot == model.ColAbsent {
		*slot = col
		*hits++
	}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parsePositional extracts items with no header at all: the longest
// non-numeric cell is the description, a small leading number is the
// quantity, and later numeric cells become rate then amount in order.
func parsePositional(uploadID string, sheet Sheet, lastRow int) ([]model.ExtractedItem, int) {
	var items []model.ExtractedItem
	row := lastRow
	var sectionCode, sectionName string

	for _, line := range filterNotes(sheet.Lines) {
		cells := strings.Split(line, "\t")

		desc, descIdx := longestNonNumeric(cells)
		if m := sectionPattern.FindStringSubmatch(desc); m != nil {
			sectionCode, sectionName = m[1], strings.TrimSpace(m[2])
			continue
		}
		if len(desc) < 3 || totalsPattern.MatchString(desc) || isHeaderRow(line) {
			continue
		}

		item := model.ExtractedItem{
			UploadID:    uploadID,
			BillNumber:  sheet.BillNumber(),
			BillName:    sheet.Name,
			SectionCode: sectionCode,
			SectionName: sectionName,
			Description: desc,
			IsRateOnly:  rateOnlyPattern.MatchString(line),
		}

		var trailing []float64
		for i, cell := range cells {
			cell = strings.TrimSpace(cell)
			if i == descIdx || cell == "" {
				continue
			}
			if !numericCell(cell) {
				// A short alphanumeric token before the description
				// reads as the item code; a bare token like "m" or
				// "No" reads as the unit.
				if i < descIdx && item.ItemCode == "" && plausibleItemCode(cell) {
					item.ItemCode = cell
				} else if item.Unit == nil && len(cell) <= 6 {
					item.Unit = parse.StandardUnitPtr(&cell)
				}
				continue
			}

			v := parse.ParseRate(cell)
			if v <= 0 {
				continue
			}
			// First small whole number reads as the quantity; every
			// later numeric cell is a rate, then an amount.
			if item.Quantity == nil && len(trailing) == 0 &&
				v <= maxPlausibleQuantity && isWholeish(cell) {
				item.Quantity = &v
				continue
			}
			trailing = append(trailing, v)
		}

		if len(trailing) > 0 {
			item.TotalRate = &trailing[0]
		}
		if len(trailing) > 1 {
			item.Amount = &trailing[1]
		}

		if !keepRow(item) {
			continue
		}

		DeriveRates(&item)
		item.CalculatedTotal = item.QuantityOr(0) * item.TotalRateOr(0)
		row++
		item.RowNumber = row
		items = append(items, item)
	}

	return items, row
}

// filterNotes removes instruction and boilerplate lines before row parsing.
func filterNotes(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if noteLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func noteLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	for _, p := range notePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// longestNonNumeric returns the longest cell that does not read as a bare
// number, with its index, or ("", -1) when every cell is numeric.
func longestNonNumeric(cells []string) (string, int) {
	best, bestIdx := "", -1
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" || numericCell(cell) {
			continue
		}
		if len(cell) > len(best) {
			best, bestIdx = cell, i
		}
	}
	return best, bestIdx
}

func numericCell(cell string) bool {
	cleaned := strings.NewReplacer(",", "", " ", "", "R", "", "$", "").Replace(cell)
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// isWholeish reports whether the raw cell looks like a count rather than a
// currency amount (no decimal part).
func isWholeish(cell string) bool {
	return !strings.Contains(cell, ".") && !strings.Contains(cell, ",")
}
