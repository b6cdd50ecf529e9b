package graphstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/domain"
)

func embedding() []float32 {
	v := make([]float32, domain.EmbeddingDim)
	v[0] = 1
	return v
}

func mustCap(t *testing.T, s *Store, fqdn domain.FQDN, members ...domain.Member) *domain.Capability {
	t.Helper()
	c := domain.NewCapability(uuid.New(), fqdn, members, embedding(), domain.CapabilitySourceEmergent)
	require.NoError(t, s.UpsertCapability(c))
	return c
}

func TestHierarchyLevelIsOnePlusMaxMemberLevel(t *testing.T) {
	s := New(false)
	s.UpsertTool("t1", "tool one", embedding())

	leaf := mustCap(t, s, "o.p.n.leaf.aaaa", domain.ToolMember("t1"))
	mid := mustCap(t, s, "o.p.n.mid.bbbb", domain.CapabilityMember(leaf.ID))
	top := mustCap(t, s, "o.p.n.top.cccc", domain.CapabilityMember(mid.ID), domain.ToolMember("t1"))

	leaf, _ = s.GetCapability(leaf.ID)
	mid, _ = s.GetCapability(mid.ID)
	top, _ = s.GetCapability(top.ID)

	assert.Equal(t, 0, leaf.HierarchyLevel)
	assert.Equal(t, 1, mid.HierarchyLevel)
	assert.Equal(t, 2, top.HierarchyLevel)
}

func TestUpsertCapabilityRejectsContainsCycle(t *testing.T) {
	s := New(false)

	a := domain.NewCapability(uuid.New(), "o.p.n.a.aaaa", nil, embedding(), domain.CapabilitySourceEmergent)
	require.NoError(t, s.UpsertCapability(a))

	b := domain.NewCapability(uuid.New(), "o.p.n.b.bbbb", []domain.Member{domain.CapabilityMember(a.ID)}, embedding(), domain.CapabilitySourceEmergent)
	require.NoError(t, s.UpsertCapability(b))

	// a -> contains -> b would close a cycle a -> b -> a.
	a.Members = []domain.Member{domain.CapabilityMember(b.ID)}
	err := s.UpsertCapability(a)
	require.Error(t, err)
	var cyc *domerr.HierarchyCycle
	assert.ErrorAs(t, err, &cyc)

	// The store must be left consistent: b still only depends on a's
	// pre-cycle definition, no partial state leaked.
	got, ok := s.GetCapability(a.ID)
	require.True(t, ok)
	assert.Empty(t, got.Members)
}

func TestAddEdgePromotesInferredToObservedAtThreshold(t *testing.T) {
	s := New(false)
	from := domain.NodeRef{Kind: domain.MemberTool, ID: "t1"}
	to := domain.NodeRef{Kind: domain.MemberTool, ID: "t2"}

	require.NoError(t, s.AddEdge(from, to, domain.EdgeSequence, domain.EdgeSourceInferred, 1, 1))
	require.NoError(t, s.AddEdge(from, to, domain.EdgeSequence, domain.EdgeSourceInferred, 1, 1))

	edges := s.GetNeighbors(from, domain.DirOut)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].ObservedCount)
	assert.Equal(t, domain.EdgeSourceInferred, edges[0].Source)

	require.NoError(t, s.AddEdge(from, to, domain.EdgeSequence, domain.EdgeSourceInferred, 1, 1))
	edges = s.GetNeighbors(from, domain.DirOut)
	assert.Equal(t, 3, edges[0].ObservedCount)
	assert.Equal(t, domain.EdgeSourceObserved, edges[0].Source)
}

func TestAddEdgeIsIdempotentOnObservedCount(t *testing.T) {
	s := New(false)
	from := domain.NodeRef{Kind: domain.MemberTool, ID: "t1"}
	to := domain.NodeRef{Kind: domain.MemberTool, ID: "t2"}

	require.NoError(t, s.AddEdge(from, to, domain.EdgeProvides, domain.EdgeSourceObserved, 1, 1))
	require.NoError(t, s.AddEdge(from, to, domain.EdgeProvides, domain.EdgeSourceObserved, 1, 1))

	edges := s.GetNeighbors(from, domain.DirOut)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].ObservedCount)
}

func TestAddEdgeRejectsDependencyCycle(t *testing.T) {
	s := New(false)
	a := domain.NodeRef{Kind: domain.MemberTool, ID: "a"}
	b := domain.NodeRef{Kind: domain.MemberTool, ID: "b"}
	c := domain.NodeRef{Kind: domain.MemberTool, ID: "c"}

	s.UpsertTool("a", "", embedding())
	s.UpsertTool("b", "", embedding())
	s.UpsertTool("c", "", embedding())

	require.NoError(t, s.AddEdge(a, b, domain.EdgeDependency, domain.EdgeSourceObserved, 1, 1))
	require.NoError(t, s.AddEdge(b, c, domain.EdgeDependency, domain.EdgeSourceObserved, 1, 1))

	err := s.AddEdge(c, a, domain.EdgeDependency, domain.EdgeSourceObserved, 1, 1)
	require.Error(t, err)
	var cyc *domerr.HierarchyCycle
	assert.ErrorAs(t, err, &cyc)

	// The rejected edge must not have been left in the graph: c keeps only
	// its incoming b -> c edge.
	assert.Equal(t, 1, s.Degree(c))
	assert.Len(t, s.GetNeighbors(a, domain.DirOut), 1)
}

func TestSequenceEdgesAllowCycles(t *testing.T) {
	s := New(false)
	a := domain.NodeRef{Kind: domain.MemberTool, ID: "a"}
	b := domain.NodeRef{Kind: domain.MemberTool, ID: "b"}

	require.NoError(t, s.AddEdge(a, b, domain.EdgeSequence, domain.EdgeSourceObserved, 1, 1))
	require.NoError(t, s.AddEdge(b, a, domain.EdgeSequence, domain.EdgeSourceObserved, 1, 1))
}

func TestAlternativeEdgeDisabledByDefault(t *testing.T) {
	s := New(false)
	a := domain.NodeRef{Kind: domain.MemberTool, ID: "a"}
	b := domain.NodeRef{Kind: domain.MemberTool, ID: "b"}
	err := s.AddEdge(a, b, domain.EdgeAlternative, domain.EdgeSourceObserved, 1, 1)
	require.Error(t, err)

	s2 := New(true)
	require.NoError(t, s2.AddEdge(a, b, domain.EdgeAlternative, domain.EdgeSourceObserved, 1, 1))
}

func TestContainsEdgeMustGoThroughUpsertCapability(t *testing.T) {
	s := New(false)
	a := domain.NodeRef{Kind: domain.MemberTool, ID: "a"}
	b := domain.NodeRef{Kind: domain.MemberTool, ID: "b"}
	err := s.AddEdge(a, b, domain.EdgeContains, domain.EdgeSourceObserved, 1, 1)
	require.Error(t, err)
}

func TestBuildContainmentMatrixShape(t *testing.T) {
	s := New(false)
	s.UpsertTool("t1", "", embedding())
	s.UpsertTool("t2", "", embedding())
	leaf := mustCap(t, s, "o.p.n.leaf.aaaa", domain.ToolMember("t1"), domain.ToolMember("t2"))
	_ = leaf

	cm := s.BuildContainmentMatrix(0)
	require.Len(t, cm.ParentIDs, 1)
	require.Len(t, cm.MemberRefs, 2)
	assert.Equal(t, 1.0, cm.At(0, 0))
	assert.Equal(t, 1.0, cm.At(0, 1))
}

func TestGetNeighborsDirections(t *testing.T) {
	s := New(false)
	a := domain.NodeRef{Kind: domain.MemberTool, ID: "a"}
	b := domain.NodeRef{Kind: domain.MemberTool, ID: "b"}
	require.NoError(t, s.AddEdge(a, b, domain.EdgeSequence, domain.EdgeSourceObserved, 1, 1))

	assert.Len(t, s.GetNeighbors(a, domain.DirOut), 1)
	assert.Len(t, s.GetNeighbors(a, domain.DirIn), 0)
	assert.Len(t, s.GetNeighbors(b, domain.DirIn), 1)
	assert.Len(t, s.GetNeighbors(a, domain.DirBoth), 1)
	assert.Equal(t, []domain.NodeRef{b}, s.OutNeighbors(a))
	assert.Equal(t, []domain.NodeRef{a}, s.InNeighbors(b))
}
