// Package outlier flags anomalous rates and failed arithmetic on extracted
// BOQ items: master-rate variance, implausibly low or high pricing against
// category benchmarks, and quantity-times-rate validation.
package outlier

import (
	"fmt"
	"math"
	"strings"
)

// Thresholds for the individual checks.
const (
	masterConfidenceFloor = 0.7     // master comparison needs a solid match
	masterVarianceLimit   = 0.5     // |rate - master| / master
	lowRateLimit          = 10.0
	highRateLimit         = 10000.0
	mathTolerance         = 0.05    // qty x rate vs amount
)

// Benchmark is the expected per-unit rate band for one item category (ZAR).
type Benchmark struct {
	Min float64
	Max float64
}

// categoryBenchmarks holds illustrative rate bands. Keys are matched by
// keyword scan in priority order via benchmarkFor.
var categoryBenchmarks = map[string]Benchmark{
	"containment": {Min: 50, Max: 500},
	"cable":       {Min: 20, Max: 2000},
	"db":          {Min: 3000, Max: 50000},
	"light":       {Min: 200, Max: 5000},
	"general":     {Min: 50, Max: 10000},
}

// benchmarkKeywords are scanned in priority order; first hit wins.
var benchmarkKeywords = []struct {
	category string
	words    []string
}{
	{"containment", []string{"conduit", "trunking", "tray", "containment", "ladder"}},
	{"cable", []string{"cable", "conductor", "wire"}},
	{"db", []string{"db", "distribution board", "board"}},
	{"light", []string{"light", "luminaire", "led", "fitting"}},
}

// labourOnlyWords mark items that are legitimately cheap.
var labourOnlyWords = []string{"labour only", "labor only", "install only", "installation only"}

// specializedWords mark equipment that is legitimately expensive.
var specializedWords = []string{"transformer", "generator", "switchgear", "mdb", "substation", "ups"}

// Input carries one item's pricing fields plus its optional master match.
// Zero values stand in for nulls on the nullable fields.
type Input struct {
	Description string
	Quantity    float64
	TotalRate   float64
	SupplyRate  float64
	InstallRate float64
	Amount      float64

	// RateOnlyMarker is true when the source row carried an explicit
	// "rate only" marker. Items priced deliberately without a quantity
	// are exempt from the low-rate check.
	RateOnlyMarker bool

	Matched       bool
	Confidence    float64
	MasterSupply  float64
	MasterInstall float64
}

// Verdict is the combined outcome of all checks. Reasons concatenate with
// "; " when more than one rule fires; rate-only and math validation are
// reported on their own axes.
type Verdict struct {
	IsOutlier     bool
	OutlierReason string
	IsRateOnly    bool
	MathValidated bool
}

func (v *Verdict) flag(reason string) {
	v.IsOutlier = true
	if v.OutlierReason == "" {
		v.OutlierReason = reason
		return
	}
	v.OutlierReason += "; " + reason
}

// Detect evaluates every rule independently and returns the combined
// verdict. A zero or missing total rate short-circuits: there is nothing
// to validate.
func Detect(in Input) Verdict {
	v := Verdict{MathValidated: true}
	lower := strings.ToLower(in.Description)

	if in.RateOnlyMarker || (in.Quantity <= 0 && in.TotalRate > 0) {
		v.IsRateOnly = true
	}

	if in.TotalRate <= 0 {
		return v
	}

	// Variance against the matched master rate.
	masterTotal := in.MasterSupply + in.MasterInstall
	if in.Matched && in.Confidence >= masterConfidenceFloor && masterTotal > 0 {
		variance := math.Abs(in.TotalRate-masterTotal) / masterTotal
		if variance > masterVarianceLimit {
			direction := "above"
			if in.TotalRate < masterTotal {
				direction = "below"
			}
			v.flag(fmt.Sprintf("rate is %.0f%% %s master rate of %.2f", variance*100, direction, masterTotal))
		}
	}

	if in.TotalRate < lowRateLimit && !in.RateOnlyMarker && !containsAny(lower, labourOnlyWords) {
		v.flag(fmt.Sprintf("suspiciously low rate %.2f", in.TotalRate))
	}

	bench, category := benchmarkFor(lower)
	if in.TotalRate > highRateLimit && !containsAny(lower, specializedWords) && in.TotalRate > 2*bench.Max {
		v.flag(fmt.Sprintf("suspiciously high rate %.2f for %s items", in.TotalRate, category))
	}

	if in.Quantity > 0 && in.Amount > 0 {
		calculated := in.Quantity * in.TotalRate
		if math.Abs(calculated-in.Amount)/in.Amount > mathTolerance {
			v.MathValidated = false
			v.flag(fmt.Sprintf("amount %.2f does not equal quantity x rate (%.2f)", in.Amount, calculated))
		}
	}

	// Benchmark floor, only when nothing else fired. Deliberately cheap
	// items are exempt like they are from the low-rate check.
	if !v.IsOutlier && !in.RateOnlyMarker && !containsAny(lower, labourOnlyWords) &&
		in.TotalRate < 0.5*bench.Min {
		v.flag(fmt.Sprintf("rate %.2f is below the %s benchmark floor", in.TotalRate, category))
	}

	return v
}

// benchmarkFor infers the benchmark category from the description by
// keyword scan, in priority order, defaulting to general.
func benchmarkFor(lower string) (Benchmark, string) {
	for _, group := range benchmarkKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return categoryBenchmarks[group.category], group.category
			}
		}
	}
	return categoryBenchmarks["general"], "general"
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
