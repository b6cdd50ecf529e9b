package graphstore

import (
	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
)

// ContainmentMatrix is a dense incidence matrix between capabilities at
// hierarchy level k and their direct members (tools or level k-1
// capabilities), used by C7's E^k -> E^(k+1) message passing.
type ContainmentMatrix struct {
	Level int

	// ParentIDs indexes rows; MemberRefs indexes columns.
	ParentIDs  []uuid.UUID
	MemberRefs []MemberRef

	// Data is row-major, len(ParentIDs) x len(MemberRefs); Data[r*cols+c]
	// is 1 if ParentIDs[r] directly contains MemberRefs[c], else 0.
	Data []float64
	cols int
}

// MemberRef names a containment-matrix column: either a tool id or a
// capability id.
type MemberRef struct {
	IsCapability bool
	ToolID       string
	CapabilityID uuid.UUID
}

// At returns the entry for (parent row r, member column c).
func (m *ContainmentMatrix) At(r, c int) float64 {
	return m.Data[r*m.cols+c]
}

// BuildContainmentMatrix builds the incidence matrix between every
// capability at hierarchy level k and its direct members (spec.md §4.2,
// feeding C7's multi-level message passing).
func (s *Store) BuildContainmentMatrix(levelK int) *ContainmentMatrix {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var parents []uuid.UUID
	for id, c := range s.capabilities {
		if c.HierarchyLevel == levelK {
			parents = append(parents, id)
		}
	}

	memberIndex := make(map[MemberRef]int)
	var members []MemberRef
	for _, pid := range parents {
		for _, m := range s.capabilities[pid].Members {
			var ref MemberRef
			if m.Kind == domain.MemberTool {
				ref = MemberRef{ToolID: m.ToolID}
			} else {
				ref = MemberRef{IsCapability: true, CapabilityID: m.CapabilityID}
			}
			if _, ok := memberIndex[ref]; !ok {
				memberIndex[ref] = len(members)
				members = append(members, ref)
			}
		}
	}

	cm := &ContainmentMatrix{
		Level:      levelK,
		ParentIDs:  parents,
		MemberRefs: members,
		cols:       len(members),
		Data:       make([]float64, len(parents)*len(members)),
	}
	for r, pid := range parents {
		for _, m := range s.capabilities[pid].Members {
			var ref MemberRef
			if m.Kind == domain.MemberTool {
				ref = MemberRef{ToolID: m.ToolID}
			} else {
				ref = MemberRef{IsCapability: true, CapabilityID: m.CapabilityID}
			}
			c := memberIndex[ref]
			cm.Data[r*cm.cols+c] = 1
		}
	}
	return cm
}
