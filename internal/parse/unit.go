package parse

import "strings"

// unitSynonyms maps lower-cased free-text unit tokens onto the closed
// canonical vocabulary. Extensible: unknown tokens pass through upper-cased.
var unitSynonyms = map[string]string{
	"m2":    "M2",
	"m²":    "M2",
	"sqm":   "M2",
	"sq.m":  "M2",
	"sq m":  "M2",
	"m3":    "M3",
	"m³":    "M3",
	"cum":   "M3",
	"cu.m":  "M3",
	"m":     "M",
	"lm":    "M",
	"mtr":   "M",
	"meter": "M",
	"metre": "M",
	"no":    "NO",
	"no.":   "NO",
	"nr":    "NO",
	"ea":    "NO",
	"each":  "NO",
	"kg":    "KG",
	"kgs":   "KG",
	"t":     "TON",
	"ton":   "TON",
	"tonne": "TON",
	"set":   "SET",
	"sets":  "SET",
	"lot":   "LOT",
	"item":  "ITEM",
	"ps":    "PS",
	"sum":   "PS",
	"pc":    "PC",
	"pcs":   "PC",
	"piece": "PC",
}

// StandardUnit canonicalizes a free-text unit token. Unknown tokens are
// returned upper-cased and unchanged; empty input stays empty.
func StandardUnit(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if canon, ok := unitSynonyms[strings.ToLower(s)]; ok {
		return canon
	}
	return strings.ToUpper(s)
}

// StandardUnitPtr is the nullable form of StandardUnit. Nil in, nil out;
// a token that normalizes to empty also yields nil.
func StandardUnitPtr(s *string) *string {
	if s == nil {
		return nil
	}
	canon := StandardUnit(*s)
	if canon == "" {
		return nil
	}
	return &canon
}
