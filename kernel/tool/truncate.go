package tool

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

const approxBytesPerToken = 4

// TruncationPolicy defines limits for truncating tool output before it is
// fed back to model context. HTTP bodies in particular can be arbitrarily
// large.
type TruncationPolicy struct {
	MaxTokens int
}

// DefaultTruncationPolicy returns the default tool output truncation policy.
func DefaultTruncationPolicy() TruncationPolicy {
	return TruncationPolicy{MaxTokens: 10000}
}

// TruncateMap caps the estimated token cost of a tool result map. Keys are
// visited in sorted order so truncation is deterministic. When the budget is
// exceeded the returned map carries a "truncated" marker.
func TruncateMap(input map[string]any, policy TruncationPolicy) map[string]any {
	if policy.MaxTokens <= 0 || input == nil {
		return input
	}
	total := estimateTokensForValue(input)
	if total <= policy.MaxTokens {
		return input
	}
	remaining := policy.MaxTokens
	omitted := 0
	out, _ := truncateValue(input, &remaining, &omitted).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	out["truncated"] = fmt.Sprintf("output truncated: ~%d of ~%d tokens kept, %d values omitted",
		policy.MaxTokens-remaining, total, omitted)
	return out
}

// TruncateText caps one string to the policy's token budget.
func TruncateText(text string, policy TruncationPolicy) string {
	if policy.MaxTokens <= 0 || estimateTextTokens(text) <= policy.MaxTokens {
		return text
	}
	limit := policy.MaxTokens * approxBytesPerToken
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + "\n...[truncated]"
}

func truncateValue(value any, remaining *int, omitted *int) any {
	if *remaining <= 0 {
		*omitted++
		return nil
	}
	switch v := value.(type) {
	case string:
		cost := estimateTextTokens(v)
		if cost <= *remaining {
			*remaining -= cost
			return v
		}
		out := TruncateText(v, TruncationPolicy{MaxTokens: *remaining})
		*remaining = 0
		*omitted++
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(v))
		for _, key := range keys {
			if *remaining <= 0 {
				*omitted++
				continue
			}
			out[key] = truncateValue(v[key], remaining, omitted)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, one := range v {
			if *remaining <= 0 {
				*omitted++
				continue
			}
			out = append(out, truncateValue(one, remaining, omitted))
		}
		return out
	default:
		*remaining -= estimateTokensForValue(v)
		return v
	}
}

func estimateTokensForValue(value any) int {
	switch v := value.(type) {
	case nil:
		return 1
	case string:
		return estimateTextTokens(v)
	case map[string]any:
		total := 1
		for k, one := range v {
			total += estimateTextTokens(k) + estimateTokensForValue(one)
		}
		return total
	case []any:
		total := 1
		for _, one := range v {
			total += estimateTokensForValue(one)
		}
		return total
	default:
		return 2
	}
}

func estimateTextTokens(text string) int {
	n := len(text) / approxBytesPerToken
	if n < 1 {
		return 1
	}
	return n
}
