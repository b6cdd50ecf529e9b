package domain

import "time"

// NodeRef identifies either a tool or a capability in the graph store's
// unified node space, used as edge endpoints.
type NodeRef struct {
	Kind MemberKind
	ID   string // tool id, or capability UUID string
}

// Edge is a graph-level relationship between two nodes (spec.md §3). It is
// distinct from StaticEdge, which lives inside a single capability's
// static structure.
type Edge struct {
	From NodeRef
	To   NodeRef
	Type EdgeType

	Weight         float64
	ObservedCount  int
	ConfidenceScore float64
	Source         EdgeSource

	UpdatedAt time.Time
}

// Promote upgrades Source from inferred to observed once ObservedCount
// reaches PromotionThreshold (spec.md §3 invariant 4, §4.2).
func (e *Edge) Promote() {
	if e.Source == EdgeSourceInferred && e.ObservedCount >= PromotionThreshold {
		e.Source = EdgeSourceObserved
	}
}

// Key identifies an edge by its (from, to, type) triple — the same triple
// AddEdge upserts against (spec.md §8 idempotence property).
func (e *Edge) Key() string {
	return string(e.From.Kind) + ":" + e.From.ID + "->" + string(e.To.Kind) + ":" + e.To.ID + "#" + string(e.Type)
}
