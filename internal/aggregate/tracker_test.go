package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerObserve(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Observe("mat-1", 100, 10)
	tr.Observe("mat-1", 200, 30)
	tr.Observe("mat-2", 50, 1)

	assert.Equal(t, 2, tr.Len())

	m := tr.Get("mat-1")
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Count)
	assert.InDelta(t, 100, m.Min, 0.001)
	assert.InDelta(t, 200, m.Max, 0.001)
	// (100*10 + 200*30) / 40 = 175
	assert.InDelta(t, 175, m.WeightedAverage(), 0.001)
}

func TestTrackerIgnoresUnusable(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Observe("", 100, 1)
	tr.Observe("mat-1", 0, 5)
	tr.Observe("mat-1", -10, 5)

	assert.Equal(t, 0, tr.Len())
	assert.Nil(t, tr.Get("mat-1"))
}

func TestTrackerZeroQuantityWeighsOne(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Observe("mat-1", 90, 0)
	tr.Observe("mat-1", 110, 0)

	m := tr.Get("mat-1")
	require.NotNil(t, m)
	assert.InDelta(t, 100, m.WeightedAverage(), 0.001)
}

func TestTrackerAll(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Observe("mat-1", 100, 1)
	tr.Observe("mat-2", 200, 1)

	all := tr.All()
	assert.Len(t, all, 2)
}
