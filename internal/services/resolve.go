package services

import (
	"strings"
)

// Identity resolution is deliberately conservative: two listings become the
// same product only on an exact normalized-name match, or on equal brands with
// a token overlap of at least resolveOverlapThreshold. Creating a duplicate
// product is recoverable; silently merging two different items is not.
const resolveOverlapThreshold = 0.75

// NormalizeName lowercases a title and collapses runs of whitespace. The
// result is the product resolution key.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func titleTokens(normalized string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.Fields(normalized) {
		out[tok] = true
	}
	return out
}

// tokenOverlap is |a ∩ b| / |smaller set|, in [0,1].
func tokenOverlap(a, b string) float64 {
	ta := titleTokens(NormalizeName(a))
	tb := titleTokens(NormalizeName(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	shared := 0
	for tok := range ta {
		if tb[tok] {
			shared++
		}
	}
	return float64(shared) / float64(smaller)
}
