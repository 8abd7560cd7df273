package boq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeuristicWithInferredHeader(t *testing.T) {
	t.Parallel()

	sheet := Sheet{
		Name: "Bill 2",
		Lines: []string{
			"Notes to tenderer: read everything",
			"Ref\tParticulars\tQuantity\tUnit\tRate\tAmount",
			"B1\tSupply 4 core 70mm cable\t250\tm\t95.00\t23750.00",
			"B2\tInstall 12 way tpn db\t2\tno\t4500\t9000",
		},
	}

	items, last := ParseHeuristic("up-1", sheet, 0)
	require.Len(t, items, 2)
	assert.Equal(t, 2, last)

	assert.Equal(t, "B1", items[0].ItemCode)
	assert.Equal(t, "Supply 4 core 70mm cable", items[0].Description)
	require.NotNil(t, items[0].Quantity)
	assert.InDelta(t, 250, *items[0].Quantity, 0.001)
	require.NotNil(t, items[0].TotalRate)
	assert.InDelta(t, 95, *items[0].TotalRate, 0.001)
	require.NotNil(t, items[0].Amount)
	assert.InDelta(t, 23750, *items[0].Amount, 0.001)
}

func TestParseHeuristicHeaderVariants(t *testing.T) {
	t.Parallel()

	sheet := Sheet{
		Name: "Bill 1",
		Lines: []string{
			"Item\tDescription\tQty\tSupply\tInstall",
			"A1\tCable tray 300mm\t50\t120\t45",
		},
	}

	items, _ := ParseHeuristic("up-1", sheet, 0)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].SupplyRate)
	assert.InDelta(t, 120, *items[0].SupplyRate, 0.001)
	require.NotNil(t, items[0].InstallRate)
	assert.InDelta(t, 45, *items[0].InstallRate, 0.001)
	// Supply + install derives the total.
	require.NotNil(t, items[0].TotalRate)
	assert.InDelta(t, 165, *items[0].TotalRate, 0.001)
}

func TestParseHeuristicPositional(t *testing.T) {
	t.Parallel()

	sheet := Sheet{
		Name: "Bill 3",
		Lines: []string{
			"Notes to tenderer",
			"A",
			"12345",
			"A1\tExcavate cable trench 600mm deep\t120\t85.50\t10260.00",
			"Failure to comply with these conditions voids the tender",
		},
	}

	items, last := ParseHeuristic("up-1", sheet, 0)
	require.Len(t, items, 1)
	assert.Equal(t, 1, last)

	it := items[0]
	assert.Equal(t, "Excavate cable trench 600mm deep", it.Description)
	assert.Equal(t, "A1", it.ItemCode)
	require.NotNil(t, it.Quantity)
	assert.InDelta(t, 120, *it.Quantity, 0.001)
	require.NotNil(t, it.TotalRate)
	assert.InDelta(t, 85.5, *it.TotalRate, 0.001)
	require.NotNil(t, it.Amount)
	assert.InDelta(t, 10260, *it.Amount, 0.001)
	assert.InDelta(t, 120*85.5, it.CalculatedTotal, 0.001)
}

func TestParseHeuristicPositionalRateWithDecimalsNotQuantity(t *testing.T) {
	t.Parallel()

	// No whole-number cell: the decimal value must read as a rate, not a
	// quantity.
	sheet := Sheet{
		Name:  "Bill 3",
		Lines: []string{"Connect earth bar to main earth\t450.75"},
	}

	items, _ := ParseHeuristic("up-1", sheet, 0)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Quantity)
	require.NotNil(t, items[0].TotalRate)
	assert.InDelta(t, 450.75, *items[0].TotalRate, 0.001)
}

func TestNoteLineFiltering(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		"Notes to Tenderer",
		"failure to comply will void",
		"Tenderer must price all items",
		"12345",
		"1,200.00",
		"A",
		"   ",
	} {
		assert.True(t, noteLine(line), "line %q", line)
	}

	assert.False(t, noteLine("A1\tCable\t10\t50"))
	assert.False(t, noteLine("Supply and install cable"))
}
