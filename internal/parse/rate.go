// Package parse provides locale-tolerant numeric parsing and unit
// canonicalization for raw BOQ cell values.
package parse

import (
	"strconv"
	"strings"
)

// currencySymbols are stripped from the front of a rate string. BOQs in the
// wild mix rand, dollar, euro and pound prefixes freely.
var currencySymbols = []string{"R", "ZAR", "$", "€", "£", "USD"}

// ParseRate converts an arbitrary cell value into a non-negative float.
// It accepts absent values, numbers, and heterogeneous currency strings;
// anything unparsable yields 0.0, never an error.
//
// Separator disambiguation: a single comma followed by exactly two digits
// is a decimal mark; otherwise commas are thousands separators. When both
// "." and "," appear, whichever occurs later is the decimal separator.
func ParseRate(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return nonNegative(n)
	case float32:
		return nonNegative(float64(n))
	case int:
		return nonNegative(float64(n))
	case int64:
		return nonNegative(float64(n))
	case string:
		return parseRateString(n)
	default:
		return 0
	}
}

func parseRateString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	for _, sym := range currencySymbols {
		if strings.HasPrefix(s, sym) {
			s = strings.TrimSpace(s[len(sym):])
			break
		}
	}

	// Spaces inside the number are thousands separators ("1 234,56").
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// The later separator is the decimal mark; the other is noise.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if decimalComma(s, comma) {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	s = keepNumeric(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return nonNegative(f)
}

// decimalComma reports whether the single comma at idx reads as a decimal
// mark: exactly two trailing digits and no second comma.
func decimalComma(s string, idx int) bool {
	if strings.Count(s, ",") != 1 {
		return false
	}
	tail := s[idx+1:]
	if len(tail) != 2 {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// keepNumeric drops everything except digits, ".", and a leading "-".
func keepNumeric(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
