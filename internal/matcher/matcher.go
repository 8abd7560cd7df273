package matcher

import (
	"math"
	"strings"

	"github.com/veldt-group/boq-cli/internal/model"
)

// MatchThreshold is the minimum confidence at which a catalog match is
// accepted. Below it the material is cleared and a category is suggested.
const MatchThreshold = 0.6

// Result is the outcome of matching one description against the catalog.
// MaterialID is nil whenever Confidence < MatchThreshold.
type Result struct {
	MaterialID   *string
	Confidence   float64
	CategoryID   *string
	CategoryName *string
}

// Matched reports whether the description resolved to a catalog material.
func (r Result) Matched() bool { return r.MaterialID != nil }

// candidate is one catalog entry with its pre-extracted spec.
type candidate struct {
	material  model.MasterMaterial
	nameLower string
	spec      ItemSpec
}

// Matcher scores descriptions against the full master-material list using
// type-specific ladders (cable, light fitting, distribution board) and a
// generic word-overlap fallback.
type Matcher struct {
	candidates []candidate
	categories []model.MaterialCategory
}

// New builds a Matcher over the active catalog. Master specs are extracted
// once up front so repeated matching stays cheap and deterministic.
func New(materials []model.MasterMaterial, categories []model.MaterialCategory) *Matcher {
	cands := make([]candidate, 0, len(materials))
	for _, m := range materials {
		cands = append(cands, candidate{
			material:  m,
			nameLower: strings.ToLower(strings.TrimSpace(m.Name)),
			spec:      ExtractSpec(m.Name),
		})
	}
	return &Matcher{candidates: cands, categories: categories}
}

// Match returns the single best (material, confidence) pair for desc, or an
// unmatched result with a suggested category when the best score falls
// below the threshold.
func (mt *Matcher) Match(desc string) Result {
	descLower := strings.ToLower(strings.TrimSpace(desc))
	descSpec := ExtractSpec(desc)

	var bestID string
	var bestScore float64

	for _, cand := range mt.candidates {
		// Exact equality wins outright.
		if descLower == cand.nameLower && descLower != "" {
			id := cand.material.ID
			return Result{MaterialID: &id, Confidence: 0.98}
		}

		score := scorePair(descSpec, cand.spec)
		if score > bestScore {
			bestScore = score
			bestID = cand.material.ID
		}
	}

	if bestScore < MatchThreshold {
		res := Result{Confidence: bestScore}
		mt.suggestCategory(descLower, &res)
		return res
	}
	return Result{MaterialID: &bestID, Confidence: bestScore}
}

// scorePair dispatches to the domain ladder when both sides classified the
// same way, else to generic word overlap.
func scorePair(desc, master ItemSpec) float64 {
	switch {
	case desc.Kind == KindCable && master.Kind == KindCable:
		return scoreCable(desc, master)
	case desc.Kind == KindLightFitting && master.Kind == KindLightFitting:
		return scoreLight(desc, master)
	case desc.Kind == KindDistributionBoard && master.Kind == KindDistributionBoard:
		return scoreDB(desc, master)
	default:
		return scoreGeneric(desc, master)
	}
}

func scoreCable(desc, master ItemSpec) float64 {
	score := 0.5

	if desc.CoreCount > 0 && master.CoreCount > 0 {
		if desc.CoreCount == master.CoreCount {
			score += 0.2
		} else {
			return score / 2
		}
	}

	if desc.SizeMM > 0 && master.SizeMM > 0 {
		diff := math.Abs(desc.SizeMM - master.SizeMM)
		switch {
		case diff == 0:
			score += 0.25
		case diff <= 5:
			score += 0.1
		default:
			return score / 2
		}
	}

	if desc.Insulation != "" && desc.Insulation == master.Insulation {
		score += 0.1
	}

	return math.Min(score, 0.95)
}

func scoreLight(desc, master ItemSpec) float64 {
	score := 0.5

	if desc.Dimensions != "" && master.Dimensions != "" {
		if desc.Dimensions == master.Dimensions {
			score += 0.3
		} else {
			return score * 0.6
		}
	}

	if desc.FittingType != "" && desc.FittingType == master.FittingType {
		score += 0.15
	}

	return math.Min(score, 0.95)
}

func scoreDB(desc, master ItemSpec) float64 {
	score := 0.5

	if desc.WayCount > 0 && master.WayCount > 0 {
		if desc.WayCount == master.WayCount {
			score += 0.25
		} else {
			return score / 2
		}
	}

	if desc.Phase != "" && master.Phase != "" {
		if desc.Phase == master.Phase {
			score += 0.15
		} else {
			return score * 0.6
		}
	}

	return math.Min(score, 0.90)
}

// scoreGeneric counts description tokens matched by equality or
// substring-superset against the master name tokens.
func scoreGeneric(desc, master ItemSpec) float64 {
	if len(desc.Keywords) == 0 || len(master.Keywords) == 0 {
		return 0
	}

	matches := 0
	for _, dw := range desc.Keywords {
		for _, mw := range master.Keywords {
			if dw == mw || strings.Contains(mw, dw) {
				matches++
				break
			}
		}
	}

	denom := float64(max(len(desc.Keywords), len(master.Keywords)))
	return math.Min(float64(matches)/denom*0.9, 0.75)
}

// categoryGroups map description keywords to the category-name tokens they
// suggest when no catalog match clears the threshold.
var categoryGroups = []struct {
	triggers []string
	names    []string
}{
	{[]string{"cable", "wire", "conductor"}, []string{"cable", "wiring"}},
	{[]string{"light", "led", "luminaire", "lamp"}, []string{"light", "luminaire"}},
	{[]string{"db", "distribution", "board"}, []string{"distribution", "board"}},
	{[]string{"switch", "isolator", "socket"}, []string{"switch", "accessor"}},
	{[]string{"conduit", "trunking", "tray"}, []string{"conduit", "containment"}},
}

func (mt *Matcher) suggestCategory(descLower string, res *Result) {
	for _, group := range categoryGroups {
		if !containsAny(descLower, group.triggers) {
			continue
		}
		for _, cat := range mt.categories {
			catLower := strings.ToLower(cat.Name)
			if containsAny(catLower, group.names) {
				id, name := cat.ID, cat.Name
				res.CategoryID = &id
				res.CategoryName = &name
				return
			}
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
