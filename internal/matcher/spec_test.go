package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSpecCable(t *testing.T) {
	t.Parallel()

	t.Run("full cable spec", func(t *testing.T) {
		t.Parallel()
		spec := ExtractSpec("4 Core 95mm XLPE SWA Cable")
		assert.Equal(t, KindCable, spec.Kind)
		assert.Equal(t, 4, spec.CoreCount)
		assert.InDelta(t, 95.0, spec.SizeMM, 0.001)
		assert.Equal(t, "XLPE", spec.Insulation)
	})

	t.Run("insulation priority favors xlpe", func(t *testing.T) {
		t.Parallel()
		spec := ExtractSpec("pvc xlpe swa cable")
		assert.Equal(t, "XLPE", spec.Insulation)
	})

	t.Run("core and size co-occurrence without keyword", func(t *testing.T) {
		t.Parallel()
		spec := ExtractSpec("supply 2c 16mm² armoured")
		assert.Equal(t, KindCable, spec.Kind)
		assert.Equal(t, 2, spec.CoreCount)
		assert.InDelta(t, 16.0, spec.SizeMM, 0.001)
	})

	t.Run("decimal size", func(t *testing.T) {
		t.Parallel()
		spec := ExtractSpec("3 core 2.5mm pvc cable")
		assert.InDelta(t, 2.5, spec.SizeMM, 0.001)
	})
}

func TestExtractSpecLight(t *testing.T) {
	t.Parallel()

	spec := ExtractSpec("600x600 LED Panel Light Fitting")
	assert.Equal(t, KindLightFitting, spec.Kind)
	assert.Equal(t, "600x600", spec.Dimensions)
	assert.Equal(t, "Panel", spec.FittingType)

	spec = ExtractSpec("recessed downlight 90mm cutout led")
	assert.Equal(t, KindLightFitting, spec.Kind)
	assert.Equal(t, "Downlight", spec.FittingType)

	spec = ExtractSpec("IP65 bulkhead luminaire")
	assert.Equal(t, "Bulkhead", spec.FittingType)
}

func TestExtractSpecDistributionBoard(t *testing.T) {
	t.Parallel()

	spec := ExtractSpec("12 Way TPN Distribution Board surface mounted")
	assert.Equal(t, KindDistributionBoard, spec.Kind)
	assert.Equal(t, 12, spec.WayCount)
	assert.Equal(t, "TPN", spec.Phase)

	spec = ExtractSpec("8 way spn db flush")
	assert.Equal(t, KindDistributionBoard, spec.Kind)
	assert.Equal(t, 8, spec.WayCount)
	assert.Equal(t, "SPN", spec.Phase)
}

func TestExtractSpecGeneric(t *testing.T) {
	t.Parallel()

	spec := ExtractSpec("Excavate trench and backfill")
	assert.Equal(t, KindNone, spec.Kind)
	assert.Equal(t, []string{"excavate", "trench", "and", "backfill"}, spec.Keywords)
}

func TestExtractSpecKeywordsDropShortTokens(t *testing.T) {
	t.Parallel()

	spec := ExtractSpec("dig a pit 5m deep")
	assert.NotContains(t, spec.Keywords, "a")
	assert.Contains(t, spec.Keywords, "deep")
}
