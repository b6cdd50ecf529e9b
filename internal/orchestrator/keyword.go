package orchestrator

import "strings"

// normalizeKeyword lowercases for the keyword-search degradation path
// (spec.md §7): no stemming or tokenization, just a case-insensitive
// substring check.
func normalizeKeyword(s string) string {
	return strings.ToLower(s)
}

func containsKeyword(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}
