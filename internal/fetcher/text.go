package fetcher

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeText returns raw as a UTF-8 string. Legacy BOQ exports are
// frequently Windows-1252; anything that fails UTF-8 validation is
// transcoded from that codepage rather than rejected.
func DecodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		// Decoder for a single-byte codepage cannot fail on input, but
		// keep the raw bytes as a last resort.
		return string(raw)
	}
	return string(decoded)
}
