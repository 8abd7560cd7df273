// Package aggregate accumulates per-material rate observations within one
// processing run, for telemetry and for sizing the guarded learning pass.
// Trackers are ephemeral: nothing here touches the catalog.
package aggregate

// Observation is one (rate, quantity) sighting of a matched material.
type Observation struct {
	Rate     float64
	Quantity float64
}

// MaterialRates holds the running statistics for one master material.
type MaterialRates struct {
	MaterialID   string
	Observations []Observation
	Count        int
	Min          float64
	Max          float64

	weightedSum float64
	totalQty    float64
}

// WeightedAverage is the quantity-weighted mean rate. Observations without
// a quantity weigh in at 1.
func (m *MaterialRates) WeightedAverage() float64 {
	if m.totalQty == 0 {
		return 0
	}
	return m.weightedSum / m.totalQty
}

// Tracker aggregates rate observations per matched material for one run.
type Tracker struct {
	materials map[string]*MaterialRates
}

// NewTracker returns an empty per-run tracker.
func NewTracker() *Tracker {
	return &Tracker{materials: make(map[string]*MaterialRates)}
}

// Observe records one rate sighting for a material. Non-positive rates are
// ignored; a non-positive quantity counts with weight 1.
func (t *Tracker) Observe(materialID string, rate, quantity float64) {
	if materialID == "" || rate <= 0 {
		return
	}

	m, ok := t.materials[materialID]
	if !ok {
		m = &MaterialRates{MaterialID: materialID, Min: rate, Max: rate}
		t.materials[materialID] = m
	}

	weight := quantity
	if weight <= 0 {
		weight = 1
	}

	m.Observations = append(m.Observations, Observation{Rate: rate, Quantity: quantity})
	m.Count++
	m.weightedSum += rate * weight
	m.totalQty += weight
	if rate < m.Min {
		m.Min = rate
	}
	if rate > m.Max {
		m.Max = rate
	}
}

// Get returns the stats for one material, or nil when unseen.
func (t *Tracker) Get(materialID string) *MaterialRates {
	return t.materials[materialID]
}

// Len returns the number of distinct materials observed.
func (t *Tracker) Len() int {
	return len(t.materials)
}

// All returns the per-material stats in no particular order.
func (t *Tracker) All() []*MaterialRates {
	out := make([]*MaterialRates, 0, len(t.materials))
	for _, m := range t.materials {
		out = append(out, m)
	}
	return out
}
