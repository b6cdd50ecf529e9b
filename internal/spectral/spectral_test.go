package spectral

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/kernel"
)

var testUUID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func identityAdjacency(n int) *kernel.Matrix {
	m := kernel.NewMatrix(n, n)
	for i := 0; i < n-1; i++ {
		m.Set(i, i+1, 1)
		m.Set(i+1, i, 1)
	}
	return m
}

func TestJacobiEigenReturnsAscendingValues(t *testing.T) {
	m := identityAdjacency(4)
	lap := NormalizedLaplacian(&Adjacency{Matrix: m})
	res := JacobiEigen(lap, 100)
	require.Len(t, res.Values, 4)
	for i := 1; i < len(res.Values); i++ {
		assert.LessOrEqual(t, res.Values[i-1], res.Values[i]+1e-9)
	}
	// smallest eigenvalue of a normalized Laplacian on a connected graph is ~0
	assert.InDelta(t, 0, res.Values[0], 1e-6)
}

func TestEigengapKClampedRange(t *testing.T) {
	assert.GreaterOrEqual(t, EigengapK([]float64{0, 0.1, 0.2, 5, 5.1, 5.2}), 2)
	assert.LessOrEqual(t, EigengapK([]float64{0, 0.1, 0.2, 5, 5.1, 5.2}), 5)
	assert.Equal(t, 2, EigengapK([]float64{0, 0.1}))
}

func TestKMeansPlusPlusAssignsEveryPoint(t *testing.T) {
	rows := [][]float64{{0, 0}, {0, 0.01}, {10, 10}, {10, 10.01}}
	rng := kernel.NewMulberry32(7)
	res := KMeansPlusPlus(rows, 2, rng, 50)
	require.Len(t, res.Assignments, 4)
	assert.Equal(t, res.Assignments[0], res.Assignments[1])
	assert.Equal(t, res.Assignments[2], res.Assignments[3])
	assert.NotEqual(t, res.Assignments[0], res.Assignments[2])
}

func TestHypergraphPageRankSumsToOne(t *testing.T) {
	m := identityAdjacency(5)
	rank := HypergraphPageRank(m, DefaultPageRankConfig())
	sum := 0.0
	for _, r := range rank {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestHypergraphPageRankHandlesDanglingNode(t *testing.T) {
	m := kernel.NewMatrix(3, 3)
	m.Set(0, 1, 1)
	// node 2 has no outgoing edges at all (dangling)
	rank := HypergraphPageRank(m, DefaultPageRankConfig())
	sum := 0.0
	for _, r := range rank {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestManagerCachesResultUntilInvalidated(t *testing.T) {
	mgr := NewManager(1)
	snap := Snapshot{}
	first := mgr.Compute(snap)
	second := mgr.Compute(snap)
	assert.Equal(t, first.K, second.K)

	mgr.Invalidate()
	_ = mgr.Compute(snap) // recomputes without panicking on an empty snapshot
}

func TestActiveClusterIsMajorityAmongContextTools(t *testing.T) {
	res := Result{ClusterOf: map[AdjacencyNode]int{
		ToolNode("a"): 0,
		ToolNode("b"): 0,
		ToolNode("c"): 1,
	}}
	cluster, count, ok := ActiveCluster([]string{"a", "b", "c"}, res)
	require.True(t, ok)
	assert.Equal(t, 0, cluster)
	assert.Equal(t, 2, count)
}

func TestClusterBoostSameClusterIsHalf(t *testing.T) {
	res := Result{ClusterOf: map[AdjacencyNode]int{
		CapNode(testUUID): 0,
	}}
	boost := ClusterBoost(CapNode(testUUID), res, 0, 2, 3, true)
	assert.Equal(t, 0.5, boost)
}

func TestClusterBoostDifferentClusterUsesRatio(t *testing.T) {
	res := Result{ClusterOf: map[AdjacencyNode]int{
		CapNode(testUUID): 1,
	}}
	boost := ClusterBoost(CapNode(testUUID), res, 0, 2, 4, true)
	assert.InDelta(t, 0.125, boost, 1e-9)
}

func TestClusterBoostMissingAssignmentIsZero(t *testing.T) {
	res := Result{}
	boost := ClusterBoost(ToolNode("missing"), res, 0, 1, 1, true)
	assert.Equal(t, 0.0, boost)
}
