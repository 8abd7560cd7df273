package aiextract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// objectPattern grabs flat JSON objects for the last-resort repair pass.
// Item objects never nest, so non-greedy brace matching is enough.
var objectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// parseItems turns model output into items, repairing the common failure
// shapes in order of increasing aggression:
//  1. the text is a clean JSON array
//  2. the array is wrapped in prose or a code fence
//  3. the array was truncated mid-object by the token limit
//  4. individual objects are salvageable even when the array is not
func parseItems(text string) ([]rawItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.New("aiextract: empty response")
	}

	var items []rawItem
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, nil
	}

	if arr, ok := extractArray(text); ok {
		if err := json.Unmarshal([]byte(arr), &items); err == nil {
			zap.L().Debug("repaired response by array extraction")
			return items, nil
		}

		if trunc, ok := closeTruncatedArray(arr); ok {
			if err := json.Unmarshal([]byte(trunc), &items); err == nil {
				zap.L().Warn("repaired truncated response", zap.Int("items", len(items)))
				return items, nil
			}
		}
	}

	items = salvageObjects(text)
	if len(items) == 0 {
		return nil, eris.New("aiextract: response is not parseable JSON")
	}
	zap.L().Warn("salvaged items from malformed response", zap.Int("items", len(items)))
	return items, nil
}

// extractArray returns the substring from the first '[' to the last ']'.
// A response truncated before the closing bracket yields the open tail,
// which the truncation repair then closes.
func extractArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(text, "]")
	if end > start {
		return text[start : end+1], true
	}
	return text[start:], true
}

// closeTruncatedArray drops a trailing partial object and closes the
// array. Handles responses cut off by the output token limit.
func closeTruncatedArray(arr string) (string, bool) {
	last := strings.LastIndex(arr, "}")
	if last < 0 {
		return "", false
	}
	return arr[:last+1] + "]", true
}

// salvageObjects parses each balanced object independently, keeping the
// ones that decode and carry a description.
func salvageObjects(text string) []rawItem {
	var items []rawItem
	for _, m := range objectPattern.FindAllString(text, -1) {
		var item rawItem
		if err := json.Unmarshal([]byte(m), &item); err != nil {
			continue
		}
		if strings.TrimSpace(item.Description) == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
