// Package graphstore implements C2: the exclusive owner of Tool and
// Capability records plus the four graph edge types between them. It is
// grounded on the teacher's internal/engine/graph.go Kahn's-algorithm
// toposort, generalized from a single workflow DAG to a recursive
// superhypergraph over tools and capabilities.
//
// Single-writer discipline (spec.md §5): callers mutate through one Store
// instance guarded by a sync.RWMutex, and every accessor takes the read
// lock. There is no snapshot type and no atomic swap: accessors such as
// AllTools and AllCapabilities return a fresh slice that holds the
// store's own record pointers, so a reader can observe later writes made
// to those records.
package graphstore

import (
	"sync"

	"github.com/google/uuid"

	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/domain"
)

// nodeKey uniquely identifies a tool or capability in the unified node
// space.
type nodeKey struct {
	kind domain.MemberKind
	id   string
}

func toolKey(id string) nodeKey             { return nodeKey{domain.MemberTool, id} }
func capKey(id uuid.UUID) nodeKey           { return nodeKey{domain.MemberCapability, id.String()} }
func refKey(ref domain.NodeRef) nodeKey      { return nodeKey{ref.Kind, ref.ID} }

// Store is the in-memory graph of tools, capabilities and their edges.
type Store struct {
	mu sync.RWMutex

	tools        map[string]*domain.Tool
	capabilities map[uuid.UUID]*domain.Capability

	// edges indexed by key() for upsert, plus adjacency by direction for
	// traversal.
	edges map[string]*domain.Edge
	out   map[nodeKey][]*domain.Edge
	in    map[nodeKey][]*domain.Edge

	enableAlternativeEdge bool
}

// New creates an empty Store.
func New(enableAlternativeEdge bool) *Store {
	return &Store{
		tools:                 make(map[string]*domain.Tool),
		capabilities:          make(map[uuid.UUID]*domain.Capability),
		edges:                 make(map[string]*domain.Edge),
		out:                   make(map[nodeKey][]*domain.Edge),
		in:                    make(map[nodeKey][]*domain.Edge),
		enableAlternativeEdge: enableAlternativeEdge,
	}
}

// UpsertTool inserts or replaces a tool; its embedding is normalized on
// write by domain.NewTool.
func (s *Store) UpsertTool(id, description string, embedding []float32) *domain.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.NewTool(id, description, embedding)
	if existing, ok := s.tools[id]; ok {
		t.Features = existing.Features
	}
	s.tools[id] = t
	return t
}

// GetTool returns the tool by id, if present.
func (s *Store) GetTool(id string) (*domain.Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[id]
	return t, ok
}

// AllTools returns a snapshot slice of every tool.
func (s *Store) AllTools() []*domain.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	return out
}

// UpsertCapability validates the FQDN, recomputes the hierarchy level the
// new membership set would produce, and rejects the write with
// HierarchyCycle if it would introduce a contains-cycle (spec.md §4.2).
// On success the write is applied and the full hierarchy is recomputed so
// level(...) stays consistent for every capability, not just this one.
func (s *Store) UpsertCapability(c *domain.Capability) error {
	if _, err := domain.ParseFQDN(c.FQDN); err != nil {
		return err
	}
	// Store a private copy, so a caller that mutates its own pointer
	// afterwards cannot alter the stored record or the rollback state.
	stored := *c
	stored.Members = append([]domain.Member(nil), c.Members...)
	c = &stored

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.capabilities[c.ID]
	s.capabilities[c.ID] = c
	s.rebuildContainsFromMembers(c)

	if err := s.recomputeHierarchyLevelsLocked(); err != nil {
		// Roll back: the write must be atomic (spec.md §3 invariant 3).
		if hadPrev {
			s.capabilities[c.ID] = prev
			s.rebuildContainsFromMembers(prev)
		} else {
			delete(s.capabilities, c.ID)
			s.removeContainsFrom(c.ID)
		}
		_ = s.recomputeHierarchyLevelsLocked()
		return err
	}
	return nil
}

// GetCapability returns the capability by id, if present.
func (s *Store) GetCapability(id uuid.UUID) (*domain.Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.capabilities[id]
	return c, ok
}

// AllCapabilities returns a snapshot slice of every capability.
func (s *Store) AllCapabilities() []*domain.Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Capability, 0, len(s.capabilities))
	for _, c := range s.capabilities {
		out = append(out, c)
	}
	return out
}

// rebuildContainsFromMembers replaces every "contains" edge owned by c
// (c -> member) with the edges implied by c.Members. Must be called with
// the write lock held.
func (s *Store) rebuildContainsFromMembers(c *domain.Capability) {
	s.removeContainsFrom(c.ID)
	from := capKey(c.ID)
	for _, m := range c.Members {
		var to domain.NodeRef
		if m.Kind == domain.MemberTool {
			to = domain.NodeRef{Kind: domain.MemberTool, ID: m.ToolID}
		} else {
			to = domain.NodeRef{Kind: domain.MemberCapability, ID: m.CapabilityID.String()}
		}
		e := &domain.Edge{
			From: domain.NodeRef{Kind: domain.MemberCapability, ID: c.ID.String()},
			Type: domain.EdgeContains,
			To:   to,
			Weight: 1, ObservedCount: 1, ConfidenceScore: 1,
			Source: domain.EdgeSourceTemplate,
		}
		s.edges[e.Key()] = e
		s.out[from] = append(s.out[from], e)
		s.in[refKey(to)] = append(s.in[refKey(to)], e)
	}
}

func (s *Store) removeContainsFrom(capID uuid.UUID) {
	from := capKey(capID)
	existing := s.out[from]
	if len(existing) == 0 {
		return
	}
	kept := existing[:0]
	for _, e := range existing {
		if e.Type != domain.EdgeContains {
			kept = append(kept, e)
			continue
		}
		delete(s.edges, e.Key())
		s.removeFromIn(e)
	}
	s.out[from] = kept
}

func (s *Store) removeFromIn(e *domain.Edge) {
	k := refKey(e.To)
	list := s.in[k]
	for i, x := range list {
		if x == e {
			s.in[k] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// AddEdge upserts a weighted edge. Calling it twice with the same
// (from, to, type) increments ObservedCount by the requested count each
// time (spec.md §8 idempotence property) and promotes inferred->observed
// at >=3 observations. Every "contains" edge is rejected here, since
// containment is derived exclusively from UpsertCapability's Members.
func (s *Store) AddEdge(from, to domain.NodeRef, typ domain.EdgeType, source domain.EdgeSource, weight float64, count int) error {
	if typ == domain.EdgeAlternative && !s.enableAlternativeEdge {
		return domerr.NewConfigurationError("graphstore", "alternative edge type is disabled")
	}
	if !typ.IsValid() {
		return domerr.NewValidationError("type", "unknown edge type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if typ == domain.EdgeContains {
		return domerr.NewValidationError("type", "contains edges are derived from capability membership; use UpsertCapability")
	}

	e := &domain.Edge{From: from, To: to, Type: typ, Source: source, Weight: weight}
	key := e.Key()
	if existing, ok := s.edges[key]; ok {
		existing.ObservedCount += count
		existing.Weight = weight
		existing.ConfidenceScore = computeConfidence(existing.ObservedCount)
		existing.Promote()
		return s.checkDAGIfNeeded(typ)
	}

	e.ObservedCount = count
	e.ConfidenceScore = computeConfidence(count)
	e.Promote()
	s.edges[key] = e
	s.out[refKey(from)] = append(s.out[refKey(from)], e)
	s.in[refKey(to)] = append(s.in[refKey(to)], e)

	if err := s.checkDAGIfNeeded(typ); err != nil {
		// Roll back the insert.
		delete(s.edges, key)
		s.out[refKey(from)] = s.out[refKey(from)][:len(s.out[refKey(from)])-1]
		s.in[refKey(to)] = s.in[refKey(to)][:len(s.in[refKey(to)])-1]
		return err
	}
	return nil
}

// computeConfidence maps an observation count to a monotone-non-decreasing
// confidence score in [0, 1): 0 for a non-positive count, otherwise
// 1 - 1/(1+count).
func computeConfidence(count int) float64 {
	if count <= 0 {
		return 0
	}
	c := 1 - 1/(1+float64(count))
	if c > 1 {
		c = 1
	}
	return c
}

func (s *Store) checkDAGIfNeeded(typ domain.EdgeType) error {
	if !typ.IsDAGChecked() {
		return nil
	}
	if cycleFrom, cycleTo, ok := s.detectCycle(typ); ok {
		return &domerr.HierarchyCycle{From: cycleFrom, To: cycleTo}
	}
	return nil
}

// detectCycle runs Kahn's algorithm restricted to edges of typ; if a
// cycle exists it returns one edge inside it.
func (s *Store) detectCycle(typ domain.EdgeType) (from, to string, found bool) {
	indeg := make(map[nodeKey]int)
	adj := make(map[nodeKey][]nodeKey)
	nodes := make(map[nodeKey]bool)

	for _, e := range s.edges {
		if e.Type != typ {
			continue
		}
		fk, tk := refKey(e.From), refKey(e.To)
		nodes[fk] = true
		nodes[tk] = true
		adj[fk] = append(adj[fk], tk)
		indeg[tk]++
	}

	queue := make([]nodeKey, 0, len(nodes))
	for n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, m := range adj[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	if visited == len(nodes) {
		return "", "", false
	}
	// Find an edge whose target still has nonzero indegree: part of a cycle.
	for _, e := range s.edges {
		if e.Type != typ {
			continue
		}
		if indeg[refKey(e.To)] > 0 {
			return e.From.ID, e.To.ID, true
		}
	}
	return "", "", true
}

// AllEdges returns a snapshot slice of every edge in the graph, used by
// the spectral manager (C4) to build its adjacency.
func (s *Store) AllEdges() []*domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

// GetNeighbors returns the edges touching nodeID in the requested
// direction.
func (s *Store) GetNeighbors(ref domain.NodeRef, dir domain.NeighborDirection) []*domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch dir {
	case domain.DirOut:
		return append([]*domain.Edge(nil), s.out[refKey(ref)]...)
	case domain.DirIn:
		return append([]*domain.Edge(nil), s.in[refKey(ref)]...)
	default:
		out := append([]*domain.Edge(nil), s.out[refKey(ref)]...)
		return append(out, s.in[refKey(ref)]...)
	}
}

// Degree is the total number of edges touching ref.
func (s *Store) Degree(ref domain.NodeRef) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.out[refKey(ref)]) + len(s.in[refKey(ref)])
}

// InNeighbors returns the set of node refs with an edge pointing at ref.
func (s *Store) InNeighbors(ref domain.NodeRef) []domain.NodeRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.in[refKey(ref)]
	out := make([]domain.NodeRef, len(edges))
	for i, e := range edges {
		out[i] = e.From
	}
	return out
}

// OutNeighbors returns the set of node refs ref has an edge pointing at.
func (s *Store) OutNeighbors(ref domain.NodeRef) []domain.NodeRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.out[refKey(ref)]
	out := make([]domain.NodeRef, len(edges))
	for i, e := range edges {
		out[i] = e.To
	}
	return out
}

// RecomputeHierarchyLevels recomputes every capability's HierarchyLevel
// from its Members (spec.md §4.2): level(c) = 1 + max(level(m) for m in
// Members where m is a capability), 0 if c has no capability members.
func (s *Store) RecomputeHierarchyLevels() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeHierarchyLevelsLocked()
}

func (s *Store) recomputeHierarchyLevelsLocked() error {
	indeg := make(map[uuid.UUID]int, len(s.capabilities))
	childEdges := make(map[uuid.UUID][]uuid.UUID) // parent -> child capability ids
	for id := range s.capabilities {
		indeg[id] = 0
	}
	for _, c := range s.capabilities {
		for _, m := range c.Members {
			if m.Kind != domain.MemberCapability {
				continue
			}
			if _, ok := s.capabilities[m.CapabilityID]; !ok {
				continue
			}
			childEdges[m.CapabilityID] = append(childEdges[m.CapabilityID], c.ID)
			indeg[c.ID]++
		}
	}

	queue := make([]uuid.UUID, 0, len(indeg))
	level := make(map[uuid.UUID]int, len(indeg))
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
			level[id] = 0
		}
	}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, parent := range childEdges[n] {
			if level[n]+1 > level[parent] {
				level[parent] = level[n] + 1
			}
			indeg[parent]--
			if indeg[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}
	if visited != len(indeg) {
		// Find a capability still stuck (part of the cycle) to report.
		for id, d := range indeg {
			if d > 0 {
				for _, m := range s.capabilities[id].Members {
					if m.Kind == domain.MemberCapability {
						return &domerr.HierarchyCycle{From: id.String(), To: m.CapabilityID.String()}
					}
				}
			}
		}
		return &domerr.HierarchyCycle{}
	}

	for id, c := range s.capabilities {
		hasCapMember := false
		maxChildLevel := -1
		for _, m := range c.Members {
			if m.Kind != domain.MemberCapability {
				continue
			}
			hasCapMember = true
			if lvl, ok := level[m.CapabilityID]; ok && lvl > maxChildLevel {
				maxChildLevel = lvl
			}
		}
		if hasCapMember {
			c.HierarchyLevel = maxChildLevel + 1
		} else {
			c.HierarchyLevel = 0
		}
		_ = id
	}
	return nil
}
