package boq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSheets(t *testing.T) {
	t.Parallel()

	t.Run("discards non-material sheets", func(t *testing.T) {
		t.Parallel()
		raw := "=== SHEET: Notes ===\nfoo\n=== SHEET: Bill 1 ===\nA1\tCable\t10\tM\t50"
		sheets := SplitSheets(raw)
		require.Len(t, sheets, 1)
		assert.Equal(t, "Bill 1", sheets[0].Name)
		assert.Equal(t, []string{"A1\tCable\t10\tM\t50"}, sheets[0].Lines)
	})

	t.Run("multiple bills in document order", func(t *testing.T) {
		t.Parallel()
		raw := "=== SHEET: Bill 1 ===\nrow a\n=== SHEET: Summary ===\nx\n=== SHEET: Bill 2 ===\nrow b\nrow c"
		sheets := SplitSheets(raw)
		require.Len(t, sheets, 2)
		assert.Equal(t, "Bill 1", sheets[0].Name)
		assert.Equal(t, "Bill 2", sheets[1].Name)
		assert.Len(t, sheets[1].Lines, 2)
	})

	t.Run("qualifications discarded case-insensitively", func(t *testing.T) {
		t.Parallel()
		raw := "=== SHEET: QUALIFICATIONS ===\nfine print\n=== SHEET: Bill 1 ===\nrow"
		sheets := SplitSheets(raw)
		require.Len(t, sheets, 1)
		assert.Equal(t, "Bill 1", sheets[0].Name)
	})

	t.Run("preamble before first marker kept as Sheet1", func(t *testing.T) {
		t.Parallel()
		raw := "loose row\n=== SHEET: Bill 1 ===\nrow"
		sheets := SplitSheets(raw)
		require.Len(t, sheets, 2)
		assert.Equal(t, "Sheet1", sheets[0].Name)
	})

	t.Run("blank lines and CR stripped", func(t *testing.T) {
		t.Parallel()
		raw := "=== SHEET: Bill 1 ===\r\n\r\nrow one\r\n\r\n"
		sheets := SplitSheets(raw)
		require.Len(t, sheets, 1)
		assert.Equal(t, []string{"row one"}, sheets[0].Lines)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, SplitSheets(""))
	})
}

func TestBillNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", Sheet{Name: "Bill 1"}.BillNumber())
	assert.Equal(t, "3", Sheet{Name: "Bill No. 3 - Small Power"}.BillNumber())
	assert.Equal(t, "", Sheet{Name: "Electrical"}.BillNumber())
}
