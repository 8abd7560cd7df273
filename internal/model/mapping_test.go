package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMappingFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMappings(t *testing.T) {
	path := writeMappingFile(t, `
Bill 1 - Cables:
  item_code: 0
  description: 1
  unit: 2
  quantity: 3
  total_rate: 4
  amount: 5
Bill 2:
  description: 0
`)

	mappings, err := LoadMappings(path)
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	m := mappings["Bill 1 - Cables"]
	assert.Equal(t, 0, m.ItemCode)
	assert.Equal(t, 1, m.Description)
	assert.Equal(t, 3, m.Quantity)
	assert.Equal(t, 4, m.TotalRate)
	assert.Equal(t, ColAbsent, m.SupplyRate, "omitted keys stay absent")
	assert.True(t, m.HasDescription())

	m2 := mappings["Bill 2"]
	assert.True(t, m2.HasDescription())
	assert.Equal(t, ColAbsent, m2.Quantity)
}

func TestLoadMappings_UnknownKey(t *testing.T) {
	path := writeMappingFile(t, `
Sheet1:
  descripton: 1
`)

	_, err := LoadMappings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mapping column")
}

func TestLoadMappings_MissingFile(t *testing.T) {
	_, err := LoadMappings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNewColumnMapping_AllAbsent(t *testing.T) {
	m := NewColumnMapping()
	assert.False(t, m.HasDescription())
	assert.Equal(t, ColAbsent, m.ItemCode)
	assert.Equal(t, ColAbsent, m.Amount)
}
