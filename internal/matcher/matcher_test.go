package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-group/boq-cli/internal/model"
)

func testCatalog() []model.MasterMaterial {
	return []model.MasterMaterial{
		{ID: "mat-1", Code: "CBL-4C95", Name: "4 Core 95mm XLPE SWA Cable"},
		{ID: "mat-2", Code: "CBL-4C70", Name: "4 Core 70mm XLPE SWA Cable"},
		{ID: "mat-3", Code: "LGT-P66", Name: "600x600 LED Panel Light"},
		{ID: "mat-4", Code: "DB-12TPN", Name: "12 Way TPN Distribution Board"},
		{ID: "mat-5", Code: "GEN-TRENCH", Name: "Excavate cable trench and backfill"},
	}
}

func testCategories() []model.MaterialCategory {
	return []model.MaterialCategory{
		{ID: "cat-1", Code: "CBL", Name: "Cables and Wiring"},
		{ID: "cat-2", Code: "LGT", Name: "Light Fittings"},
		{ID: "cat-3", Code: "DB", Name: "Distribution Boards"},
		{ID: "cat-4", Code: "SWG", Name: "Switches and Accessories"},
		{ID: "cat-5", Code: "CND", Name: "Conduit and Containment"},
	}
}

func TestMatchExactEquality(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())
	res := m.Match("4 core 95MM xlpe swa CABLE")
	require.NotNil(t, res.MaterialID)
	assert.Equal(t, "mat-1", *res.MaterialID)
	assert.InDelta(t, 0.98, res.Confidence, 0.001)
}

func TestMatchCableLadder(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())

	t.Run("core and size exact beats core only", func(t *testing.T) {
		t.Parallel()
		full := m.Match("4 Core 95mm XLPE armoured cable to spec")
		partial := m.Match("4 Core 120mm cable")
		assert.Greater(t, full.Confidence, partial.Confidence)
	})

	t.Run("matching cable picks the right size", func(t *testing.T) {
		t.Parallel()
		res := m.Match("supply and install 4 core 70mm xlpe cable")
		require.NotNil(t, res.MaterialID)
		assert.Equal(t, "mat-2", *res.MaterialID)
		assert.GreaterOrEqual(t, res.Confidence, MatchThreshold)
	})

	t.Run("core mismatch halves and stops", func(t *testing.T) {
		t.Parallel()
		res := m.Match("2 core 95mm xlpe cable")
		// 0.5/2 = 0.25 against both cable candidates, below threshold.
		assert.Nil(t, res.MaterialID)
		assert.Less(t, res.Confidence, MatchThreshold)
	})
}

func TestMatchLightLadder(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())

	res := m.Match("supply 600x600 led panel luminaire")
	require.NotNil(t, res.MaterialID)
	assert.Equal(t, "mat-3", *res.MaterialID)
	// base 0.5 + dims 0.3 + type 0.15 = 0.95 cap
	assert.InDelta(t, 0.95, res.Confidence, 0.001)
}

func TestMatchDBLadder(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())

	res := m.Match("install 12 way tpn db complete")
	require.NotNil(t, res.MaterialID)
	assert.Equal(t, "mat-4", *res.MaterialID)
	// base 0.5 + ways 0.25 + phase 0.15 = 0.90 cap
	assert.InDelta(t, 0.90, res.Confidence, 0.001)
}

func TestMatchGenericOverlap(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())

	res := m.Match("excavate trench and backfill for services")
	// Word overlap should land on the trench item but stay under the
	// generic cap.
	assert.LessOrEqual(t, res.Confidence, 0.75)
}

func TestMatchIdempotent(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())
	first := m.Match("4 core 70mm xlpe cable")
	second := m.Match("4 core 70mm xlpe cable")
	assert.Equal(t, first, second)
}

func TestMatchThresholdInvariant(t *testing.T) {
	t.Parallel()

	m := New(testCatalog(), testCategories())
	descs := []string{
		"4 core 95mm xlpe cable",
		"2 core 95mm cable",
		"something entirely unrelated",
		"600x600 panel",
		"12 way tpn db",
		"paint the wall",
	}
	for _, d := range descs {
		res := m.Match(d)
		if res.MaterialID != nil {
			assert.GreaterOrEqual(t, res.Confidence, MatchThreshold, "desc %q", d)
		}
	}
}

func TestSuggestCategoryWhenUnmatched(t *testing.T) {
	t.Parallel()

	m := New(nil, testCategories())

	t.Run("cable keywords suggest cable category", func(t *testing.T) {
		t.Parallel()
		res := m.Match("armoured cable unlike anything in the book")
		assert.Nil(t, res.MaterialID)
		require.NotNil(t, res.CategoryID)
		assert.Equal(t, "cat-1", *res.CategoryID)
		assert.Equal(t, "Cables and Wiring", *res.CategoryName)
	})

	t.Run("conduit keywords suggest containment category", func(t *testing.T) {
		t.Parallel()
		res := m.Match("25mm pvc conduit surface run")
		assert.Nil(t, res.MaterialID)
		require.NotNil(t, res.CategoryID)
		assert.Equal(t, "cat-5", *res.CategoryID)
	})

	t.Run("no keywords no suggestion", func(t *testing.T) {
		t.Parallel()
		res := m.Match("general builders work")
		assert.Nil(t, res.MaterialID)
		assert.Nil(t, res.CategoryID)
	})
}
