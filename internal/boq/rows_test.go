package boq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-group/boq-cli/internal/model"
)

func billMapping() model.ColumnMapping {
	m := model.NewColumnMapping()
	m.ItemCode = 0
	m.Description = 1
	m.Quantity = 2
	m.Unit = 3
	m.TotalRate = 4
	m.Amount = 5
	return m
}

func TestParseMapped(t *testing.T) {
	t.Parallel()

	sheet := Sheet{
		Name: "Bill 1 - Electrical",
		Lines: []string{
			"Item\tDescription\tQty\tUnit\tRate\tAmount",
			"A1\t4 Core 95mm XLPE Cable\t100\tm\tR125.50\t12550.00",
			"A2\tSh\t\t\t\t", // description under three characters is dropped
			"\tTotal carried forward\t\t\t5000\t",
			"A3\t600x600 LED Panel\t24\tNo\t850\t20400",
		},
	}

	items, last := ParseMapped("up-1", sheet, billMapping(), 0)
	require.Len(t, items, 2)
	assert.Equal(t, 2, last)

	first := items[0]
	assert.Equal(t, 1, first.RowNumber)
	assert.Equal(t, "A1", first.ItemCode)
	assert.Equal(t, "4 Core 95mm XLPE Cable", first.Description)
	assert.Equal(t, "1", first.BillNumber)
	assert.Equal(t, "Bill 1 - Electrical", first.BillName)
	require.NotNil(t, first.Unit)
	assert.Equal(t, "M", *first.Unit)
	require.NotNil(t, first.Quantity)
	assert.InDelta(t, 100, *first.Quantity, 0.001)
	require.NotNil(t, first.TotalRate)
	assert.InDelta(t, 125.50, *first.TotalRate, 0.001)
	assert.InDelta(t, 12550, first.CalculatedTotal, 0.001)

	assert.Equal(t, 2, items[1].RowNumber)
	assert.Equal(t, "A3", items[1].ItemCode)
}

func TestParseMappedRowNumbersContinueAcrossSheets(t *testing.T) {
	t.Parallel()

	m := billMapping()
	s1 := Sheet{Name: "Bill 1", Lines: []string{"A1\tCable run one\t10\tm\t50\t500"}}
	s2 := Sheet{Name: "Bill 2", Lines: []string{"B1\tCable run two\t20\tm\t60\t1200"}}

	items1, last := ParseMapped("up-1", s1, m, 0)
	items2, last := ParseMapped("up-1", s2, m, last)

	require.Len(t, items1, 1)
	require.Len(t, items2, 1)
	assert.Equal(t, 1, items1[0].RowNumber)
	assert.Equal(t, 2, items2[0].RowNumber)
	assert.Equal(t, 2, last)
}

func TestParseMappedNoDescriptionColumn(t *testing.T) {
	t.Parallel()

	m := model.NewColumnMapping()
	m.Quantity = 0
	sheet := Sheet{Name: "Bill 1", Lines: []string{"10\t20"}}

	items, last := ParseMapped("up-1", sheet, m, 0)
	assert.Empty(t, items)
	assert.Equal(t, 0, last)
}

func TestParseMappedRateDerivation(t *testing.T) {
	t.Parallel()

	m := model.NewColumnMapping()
	m.Description = 0
	m.Quantity = 1
	m.SupplyRate = 2
	m.InstallRate = 3
	m.TotalRate = 4

	t.Run("supply plus install derives total", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"Cable install works\t10\t70\t30\t"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].TotalRate)
		assert.InDelta(t, 100, *items[0].TotalRate, 0.001)
	})

	t.Run("total only apportions 70/30", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"Cable install works\t10\t\t\t200"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].SupplyRate)
		require.NotNil(t, items[0].InstallRate)
		assert.InDelta(t, 140, *items[0].SupplyRate, 0.001)
		assert.InDelta(t, 60, *items[0].InstallRate, 0.001)
	})

	t.Run("total minus supply derives install", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"Cable install works\t10\t80\t\t200"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].InstallRate)
		assert.InDelta(t, 120, *items[0].InstallRate, 0.001)
	})
}

func TestParseMappedSectionRows(t *testing.T) {
	t.Parallel()

	m := model.NewColumnMapping()
	m.Description = 0
	m.Quantity = 1
	m.TotalRate = 2

	sheet := Sheet{Name: "Bill 1", Lines: []string{
		"SECTION A - MAINS\t\t",
		"Supply 95mm cable\t100\t125",
		"SECTION B - LIGHTING\t\t",
		"Install panel light\t20\t850",
	}}

	items, _ := ParseMapped("up-1", sheet, m, 0)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].SectionCode)
	assert.Equal(t, "MAINS", items[0].SectionName)
	assert.Equal(t, "B", items[1].SectionCode)
	assert.Equal(t, "LIGHTING", items[1].SectionName)
}

func TestKeepRow(t *testing.T) {
	t.Parallel()

	m := model.NewColumnMapping()
	m.ItemCode = 0
	m.Description = 1
	m.TotalRate = 2

	t.Run("bare description dropped", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"\tUnpriced narrative row\t"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		assert.Empty(t, items)
	})

	t.Run("rate only marker kept", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"\tSpare cable Rate Only\t"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		require.Len(t, items, 1)
		assert.True(t, items[0].IsRateOnly)
	})

	t.Run("plausible item code kept", func(t *testing.T) {
		t.Parallel()
		sheet := Sheet{Name: "Bill 1", Lines: []string{"A1.2\tProvisional cable allowance\t"}}
		items, _ := ParseMapped("up-1", sheet, m, 0)
		require.Len(t, items, 1)
		assert.Equal(t, "A1.2", items[0].ItemCode)
	})
}
