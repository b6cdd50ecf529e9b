package domain

import "fmt"

// EdgeType is the closed set of graph-level edge kinds (spec.md §3).
// Only Contains and Dependency are DAG-checked on insert.
type EdgeType string

const (
	EdgeContains   EdgeType = "contains"
	EdgeDependency EdgeType = "dependency"
	EdgeSequence   EdgeType = "sequence"
	EdgeProvides   EdgeType = "provides"

	// EdgeAlternative is deprecated; only valid when
	// config.EnableAlternativeEdgeType is set (SPEC_FULL.md Redesign §2).
	EdgeAlternative EdgeType = "alternative"
)

// IsDAGChecked reports whether cycles are rejected for this edge type.
func (t EdgeType) IsDAGChecked() bool {
	return t == EdgeContains || t == EdgeDependency
}

func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeContains, EdgeDependency, EdgeSequence, EdgeProvides, EdgeAlternative:
		return true
	default:
		return false
	}
}

// EdgeSource tracks provenance and drives the inferred->observed promotion.
type EdgeSource string

const (
	EdgeSourceTemplate EdgeSource = "template"
	EdgeSourceInferred EdgeSource = "inferred"
	EdgeSourceObserved EdgeSource = "observed"
)

// PromotionThreshold is the observedCount at which an inferred edge is
// promoted to observed (spec.md §3 invariant 4).
const PromotionThreshold = 3

// CapabilitySource distinguishes learned (emergent) capabilities from
// hand-authored ones.
type CapabilitySource string

const (
	CapabilitySourceEmergent CapabilitySource = "emergent"
	CapabilitySourceManual   CapabilitySource = "manual"
)

// NodeKind is the set of static-structure node kinds a capability's code
// snippet can describe (spec.md §3).
type NodeKind string

const (
	NodeKindTask       NodeKind = "task"
	NodeKindDecision   NodeKind = "decision"
	NodeKindCapability NodeKind = "capability"
	NodeKindFork       NodeKind = "fork"
	NodeKindJoin       NodeKind = "join"
	NodeKindLoop       NodeKind = "loop"
)

// StaticEdgeKind is the set of static-structure edge kinds.
type StaticEdgeKind string

const (
	StaticEdgeSequence    StaticEdgeKind = "sequence"
	StaticEdgeProvides    StaticEdgeKind = "provides"
	StaticEdgeConditional StaticEdgeKind = "conditional"
	StaticEdgeContains    StaticEdgeKind = "contains"
	StaticEdgeLoopBody    StaticEdgeKind = "loop_body"
)

// ArgKind tags the variant held by an ArgumentValue.
type ArgKind string

const (
	ArgLiteral   ArgKind = "literal"
	ArgReference ArgKind = "reference"
	ArgParameter ArgKind = "parameter"
)

// ArgumentValue is the tagged union of {literal | reference | parameter}
// carried by task-node arguments (spec.md §3, §9).
type ArgumentValue struct {
	Kind      ArgKind `json:"kind"`
	Literal   any     `json:"literal,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Parameter string  `json:"parameter,omitempty"`
}

// NeighborDirection selects which side of an edge GetNeighbors walks.
type NeighborDirection string

const (
	DirIn   NeighborDirection = "in"
	DirOut  NeighborDirection = "out"
	DirBoth NeighborDirection = "both"
)

// DiscoveryMode distinguishes a user-initiated search from a passive,
// context-driven suggestion. It is recorded in decision-log records; C5's
// alpha calculation does not take it as an input.
type DiscoveryMode string

const (
	ModeActiveSearch      DiscoveryMode = "active_search"
	ModePassiveSuggestion DiscoveryMode = "passive_suggestion"
)

// TargetType is either a tool or a capability.
type TargetType string

const (
	TargetTool       TargetType = "tool"
	TargetCapability TargetType = "capability"
)

// Decision is the outcome recorded for a ranked candidate.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// EmbeddingDim is the fixed dimensionality required for every stored
// embedding (spec.md §3 invariant 1).
const EmbeddingDim = 1024

// ValidateEmbeddingDim checks the fixed-size invariant.
func ValidateEmbeddingDim(v []float32) error {
	if len(v) != EmbeddingDim {
		return fmt.Errorf("embedding has %d dims, want %d", len(v), EmbeddingDim)
	}
	return nil
}
