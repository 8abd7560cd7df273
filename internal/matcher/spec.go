// Package matcher classifies BOQ descriptions into structured electrical
// item specs and scores them against the master catalog.
package matcher

import (
	"regexp"
	"strconv"
	"strings"
)

// ItemKind is the structured domain a description classifies into.
type ItemKind string

const (
	KindNone              ItemKind = ""
	KindCable             ItemKind = "cable"
	KindLightFitting      ItemKind = "light"
	KindDistributionBoard ItemKind = "db"
)

// ItemSpec holds the attributes extracted from one description. Zero values
// mean "not present"; a spec with KindNone falls through to generic matching.
type ItemSpec struct {
	Kind ItemKind

	// Cable attributes.
	CoreCount  int
	SizeMM     float64
	Insulation string // XLPE, PVC or SWA

	// Light fitting attributes.
	Dimensions  string // "600x600" style, normalized WxH
	FittingType string // Panel, Downlight or Bulkhead

	// Distribution board attributes.
	WayCount int
	Phase    string // TPN or SPN

	// Tokens (length > 2) retained for the generic word-overlap strategy.
	Keywords []string
}

var (
	corePattern = regexp.MustCompile(`(\d+)\s*(?:core\b|c\b)`)
	sizePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mm²|mm2|sqmm|mm\b)`)
	dimPattern  = regexp.MustCompile(`(\d+)\s*[x×]\s*(\d+)`)
	wayPattern  = regexp.MustCompile(`(\d+)\s*way`)
	tokenSplit  = regexp.MustCompile(`[^a-z0-9²³]+`)
)

var cableKeywords = []string{"cable", "xlpe", "pvc", "swa", "core", "conductor"}
var lightKeywords = []string{"led", "light", "luminaire", "fitting", "downlight", "panel", "bulkhead"}
var dbKeywords = []string{"db", "distribution", "board", "mcb", "way", "tpn", "spn"}

// ExtractSpec classifies a description into at most one structured domain
// and pulls out its attributes. The input is lower-cased internally.
func ExtractSpec(desc string) ItemSpec {
	lower := strings.ToLower(strings.TrimSpace(desc))
	spec := ItemSpec{Keywords: keywordTokens(lower)}

	tokens := tokenSet(lower)

	switch {
	case isCable(lower, tokens):
		spec.Kind = KindCable
		if m := corePattern.FindStringSubmatch(lower); m != nil {
			spec.CoreCount, _ = strconv.Atoi(m[1])
		}
		if m := sizePattern.FindStringSubmatch(lower); m != nil {
			spec.SizeMM, _ = strconv.ParseFloat(m[1], 64)
		}
		// Insulation priority: XLPE over PVC over SWA.
		for _, ins := range []string{"xlpe", "pvc", "swa"} {
			if strings.Contains(lower, ins) {
				spec.Insulation = strings.ToUpper(ins)
				break
			}
		}

	case hasAnyToken(tokens, lightKeywords):
		spec.Kind = KindLightFitting
		if m := dimPattern.FindStringSubmatch(lower); m != nil {
			spec.Dimensions = m[1] + "x" + m[2]
		}
		switch {
		case strings.Contains(lower, "panel"):
			spec.FittingType = "Panel"
		case strings.Contains(lower, "downlight"):
			spec.FittingType = "Downlight"
		case strings.Contains(lower, "bulkhead"):
			spec.FittingType = "Bulkhead"
		}

	case hasAnyToken(tokens, dbKeywords):
		spec.Kind = KindDistributionBoard
		if m := wayPattern.FindStringSubmatch(lower); m != nil {
			spec.WayCount, _ = strconv.Atoi(m[1])
		}
		switch {
		case strings.Contains(lower, "tpn"):
			spec.Phase = "TPN"
		case strings.Contains(lower, "spn"):
			spec.Phase = "SPN"
		}
	}

	return spec
}

// isCable triggers on cable keywords, or on the co-occurrence of a
// core-count pattern and a size pattern ("4c 95mm" with no keyword at all).
func isCable(lower string, tokens map[string]bool) bool {
	if hasAnyToken(tokens, cableKeywords) {
		return true
	}
	return corePattern.MatchString(lower) && sizePattern.MatchString(lower)
}

func hasAnyToken(tokens map[string]bool, kws []string) bool {
	for _, kw := range kws {
		if tokens[kw] {
			return true
		}
	}
	return false
}

func tokenSet(lower string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenSplit.Split(lower, -1) {
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}

// keywordTokens returns the tokens longer than two characters, in order.
func keywordTokens(lower string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(lower, -1) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}
