package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ColAbsent marks a column as not present on the sheet.
const ColAbsent = -1

// ColumnMapping holds zero-based column indices for one sheet, produced by
// the mapping wizard or a hand-written YAML file. ColAbsent (-1) means the
// sheet has no such column. A sheet without a description column is
// unparsable and yields zero items.
type ColumnMapping struct {
	ItemCode    int `json:"item_code" yaml:"item_code"`
	Description int `json:"description" yaml:"description"`
	Quantity    int `json:"quantity" yaml:"quantity"`
	Unit        int `json:"unit" yaml:"unit"`
	SupplyRate  int `json:"supply_rate" yaml:"supply_rate"`
	InstallRate int `json:"install_rate" yaml:"install_rate"`
	TotalRate   int `json:"total_rate" yaml:"total_rate"`
	Amount      int `json:"amount" yaml:"amount"`
}

// NewColumnMapping returns a mapping with every column marked absent.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{
		ItemCode:    ColAbsent,
		Description: ColAbsent,
		Quantity:    ColAbsent,
		Unit:        ColAbsent,
		SupplyRate:  ColAbsent,
		InstallRate: ColAbsent,
		TotalRate:   ColAbsent,
		Amount:      ColAbsent,
	}
}

// HasDescription reports whether the sheet can produce items at all.
func (m ColumnMapping) HasDescription() bool {
	return m.Description >= 0
}

// LoadMappings reads a YAML file of sheet-name → ColumnMapping. Sheets not
// present in the file fall back to the heuristic parser. Omitted keys in a
// mapping entry default to absent, not zero.
func LoadMappings(path string) (map[string]ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "model: read mapping file")
	}

	var raw map[string]map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "model: parse mapping file")
	}

	out := make(map[string]ColumnMapping, len(raw))
	for sheet, cols := range raw {
		m := NewColumnMapping()
		for key, idx := range cols {
			switch key {
			case "item_code":
				m.ItemCode = idx
			case "description":
				m.Description = idx
			case "quantity":
				m.Quantity = idx
			case "unit":
				m.Unit = idx
			case "supply_rate":
				m.SupplyRate = idx
			case "install_rate":
				m.InstallRate = idx
			case "total_rate":
				m.TotalRate = idx
			case "amount":
				m.Amount = idx
			default:
				return nil, eris.Errorf("model: unknown mapping column %q for sheet %q", key, sheet)
			}
		}
		out[sheet] = m
	}
	return out, nil
}
