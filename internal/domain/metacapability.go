package domain

import (
	"regexp"

	"github.com/google/uuid"
)

// capRefPattern matches the literal token "$cap:<uuid-v4>" anywhere in a
// capability's code snippet (spec.md §6).
var capRefPattern = regexp.MustCompile(`\$cap:([0-9a-fA-F-]{36})`)

// ReferencedCapabilityIDs scans code for "$cap:<uuid>" tokens and returns
// the referenced capability ids in first-appearance order, deduplicated.
func ReferencedCapabilityIDs(code string) []uuid.UUID {
	matches := capRefPattern.FindAllStringSubmatch(code, -1)
	seen := make(map[uuid.UUID]bool, len(matches))
	out := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m[1])
		if err != nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
