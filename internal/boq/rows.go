package boq

import (
	"regexp"
	"strings"

	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/parse"
)

// totalsPattern marks summary rows that must never become line items.
var totalsPattern = regexp.MustCompile(`(?i)^\s*(sub[- ]?total|total|grand total|carried (forward|to)|brought forward|c/f|b/f)\b`)

// sectionPattern catches "SECTION B - SMALL POWER" style sub-grouping rows.
var sectionPattern = regexp.MustCompile(`(?i)^section\s+([a-z0-9.]+)\s*[-:–]?\s*(.*)$`)

// rateOnlyPattern marks items priced without a quantity on purpose.
var rateOnlyPattern = regexp.MustCompile(`(?i)\brate\s+only\b`)

// headerWords identify a header row that should be skipped, and drive
// column inference on unmapped sheets.
var headerWords = []string{"description", "item", "unit", "qty", "rate", "amount", "total", "code"}

// itemCodePattern accepts "A1", "1.2.3", "E-04" style references.
var itemCodePattern = regexp.MustCompile(`^[A-Za-z]{0,3}[-./]?\d+(?:[./]\d+)*[a-z]?$`)

// ParseMapped parses one sheet's rows using an explicit column mapping.
// Row numbering continues after lastRow and the highest assigned number is
// returned, so numbering stays 1-based and monotonic across sheets.
func ParseMapped(uploadID string, sheet Sheet, mapping model.ColumnMapping, lastRow int) ([]model.ExtractedItem, int) {
	if !mapping.HasDescription() {
		return nil, lastRow
	}

	var items []model.ExtractedItem
	row := lastRow
	var sectionCode, sectionName string

	lines := sheet.Lines
	if len(lines) > 0 && isHeaderRow(lines[0]) {
		lines = lines[1:]
	}

	for _, line := range lines {
		cells := strings.Split(line, "\t")

		desc := strings.TrimSpace(cellAt(cells, mapping.Description))
		if m := sectionPattern.FindStringSubmatch(desc); m != nil {
			sectionCode, sectionName = m[1], strings.TrimSpace(m[2])
			continue
		}
		if len(desc) < 3 || totalsPattern.MatchString(desc) {
			continue
		}

		item := model.ExtractedItem{
			UploadID:    uploadID,
			BillNumber:  sheet.BillNumber(),
			BillName:    sheet.Name,
			SectionCode: sectionCode,
			SectionName: sectionName,
			ItemCode:    strings.TrimSpace(cellAt(cells, mapping.ItemCode)),
			Description: desc,
			Unit:        unitPtr(cellAt(cells, mapping.Unit)),
			Quantity:    numberPtr(cellAt(cells, mapping.Quantity)),
			SupplyRate:  numberPtr(cellAt(cells, mapping.SupplyRate)),
			InstallRate: numberPtr(cellAt(cells, mapping.InstallRate)),
			TotalRate:   numberPtr(cellAt(cells, mapping.TotalRate)),
			Amount:      numberPtr(cellAt(cells, mapping.Amount)),
			IsRateOnly:  rateOnlyPattern.MatchString(line),
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

// isHeaderRow reports whether a tab-delimited line reads as a column
// header (at least one recognizable header word among its cells).
func isHeaderRow(line string) bool {
	if !strings.Contains(line, "\t") {
		return false
	}
	for _, cell := range strings.Split(line, "\t") {
		cl := strings.ToLower(strings.TrimSpace(cell))
		for _, word := range headerWords {
			if cl == word || strings.HasPrefix(cl, word+" ") || strings.HasPrefix(cl, word+"/") {
				return true
			}
		}
	}
	return false
}

// keepRow drops rows that carry no pricing signal at all: no rate, no
// quantity, no rate-only marker, and no plausible item code.
func keepRow(item model.ExtractedItem) bool {
	if item.Quantity != nil || item.TotalRate != nil || item.SupplyRate != nil ||
		item.InstallRate != nil || item.Amount != nil {
		return true
	}
	if item.IsRateOnly {
		return true
	}
	return plausibleItemCode(item.ItemCode)
}

func plausibleItemCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 12 {
		return false
	}
	return itemCodePattern.MatchString(code)
}

// DeriveRates fills the third rate component when two are known, or splits
// a bare total 70/30 supply/install.
func DeriveRates(item *model.ExtractedItem) {
	supply := item.SupplyRate
	install := item.InstallRate
	total := item.TotalRate

	switch {
	case supply != nil && install != nil && total == nil:
		item.TotalRate = model.Float64Ptr(*supply + *install)
	case supply != nil && total != nil && install == nil:
		if diff := *total - *supply; diff > 0 {
			item.InstallRate = model.Float64Ptr(diff)
		}
	case install != nil && total != nil && supply == nil:
		if diff := *total - *install; diff > 0 {
			item.SupplyRate = model.Float64Ptr(diff)
		}
	case total != nil && supply == nil && install == nil:
		item.SupplyRate = model.Float64Ptr(*total * 0.7)
		item.InstallRate = model.Float64Ptr(*total * 0.3)
	case supply != nil && total == nil && install == nil:
		item.TotalRate = model.Float64Ptr(*supply)
	}
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// numberPtr parses a cell into a nullable positive number. Empty or
// zero-valued cells stay nil: zero carries no pricing information here.
func numberPtr(cell string) *float64 {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	v := parse.ParseRate(cell)
	if v <= 0 {
		return nil
	}
	return &v
}

func unitPtr(cell string) *string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	return parse.StandardUnitPtr(&cell)
}
