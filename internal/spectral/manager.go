package spectral

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/kernel"
)

// Result is the per-run spectral output: a cluster id, a
// hypergraph-PageRank score, and the raw k-dimensional spectral embedding
// row for every node the run covered (spec.md §4.4 step 5: "store
// per-node spectral embedding rows and cluster ids").
type Result struct {
	ClusterOf   map[AdjacencyNode]int
	RankOf      map[AdjacencyNode]float64
	EmbeddingOf map[AdjacencyNode][]float64
	K           int
}

// cacheEntry is one TTL-bounded cached Result.
type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// Manager computes and caches spectral clusters and hypergraph PageRank
// over a tool/capability graph snapshot (spec.md §4.4). Its cache key is
// the sorted set of node ids in the snapshot, so re-running on an
// unchanged graph is free until the TTL expires or Invalidate is called.
type Manager struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
	rng   *kernel.Mulberry32
}

// NewManager creates a spectral Manager with a 5 minute cache TTL (spec.md
// §4.4) seeded for deterministic k-means++ seeding.
func NewManager(seed uint32) *Manager {
	return &Manager{
		cache: make(map[string]cacheEntry),
		ttl:   5 * time.Minute,
		rng:   kernel.NewMulberry32(seed),
	}
}

// Invalidate drops every cached result, forcing the next Compute call to
// recompute from scratch (called by the graph-sync controller, C9, after
// an incremental sync touches the graph).
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]cacheEntry)
}

// Snapshot is the minimal graph-store view Compute needs: tools,
// capabilities and the non-contains edges linking them. It is decoupled
// from graphstore.Store so this package has no import-cycle dependency on
// it.
type Snapshot struct {
	Tools        []*domain.Tool
	Capabilities []*domain.Capability
	Edges        []*domain.Edge
}

func (s Snapshot) cacheKey() string {
	ids := make([]string, 0, len(s.Tools)+len(s.Capabilities))
	for _, t := range s.Tools {
		ids = append(ids, "t:"+t.ID)
	}
	for _, c := range s.Capabilities {
		ids = append(ids, "c:"+c.ID.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Compute returns the cached Result for this exact snapshot if it is
// still within its TTL, else recomputes: builds the adjacency, runs
// spectral clustering (Laplacian -> eigengap -> k-means++) and hypergraph
// PageRank, and caches the result.
func (m *Manager) Compute(s Snapshot) Result {
	key := s.cacheKey()

	m.mu.Lock()
	if entry, ok := m.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		m.mu.Unlock()
		return entry.result
	}
	m.mu.Unlock()

	result := m.computeFresh(s)

	m.mu.Lock()
	m.cache[key] = cacheEntry{result: result, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return result
}

func (m *Manager) computeFresh(s Snapshot) Result {
	adj := buildAdjacency(s)
	if len(adj.Nodes) == 0 {
		return Result{
			ClusterOf:   map[AdjacencyNode]int{},
			RankOf:      map[AdjacencyNode]float64{},
			EmbeddingOf: map[AdjacencyNode][]float64{},
		}
	}

	laplacian := NormalizedLaplacian(&adj)
	eig := JacobiEigen(laplacian, 100)
	k := EigengapK(eig.Values)

	rows := make([][]float64, len(adj.Nodes))
	for i := range rows {
		row := make([]float64, k)
		for c := 0; c < k; c++ {
			row[c] = float64(eig.Vectors.At(i, c))
		}
		rows[i] = row
	}
	km := KMeansPlusPlus(rows, k, m.rng, 100)

	rank := HypergraphPageRank(adj.Matrix, DefaultPageRankConfig())

	clusterOf := make(map[AdjacencyNode]int, len(adj.Nodes))
	rankOf := make(map[AdjacencyNode]float64, len(adj.Nodes))
	embeddingOf := make(map[AdjacencyNode][]float64, len(adj.Nodes))
	for i, node := range adj.Nodes {
		clusterOf[node] = km.Assignments[i]
		rankOf[node] = rank[i]
		embeddingOf[node] = rows[i]
	}
	return Result{ClusterOf: clusterOf, RankOf: rankOf, EmbeddingOf: embeddingOf, K: k}
}

// buildAdjacency constructs the combined bipartite (tool<->capability
// membership) and capability<->capability (non-contains edges) adjacency
// matrix the clustering and PageRank passes share.
func buildAdjacency(s Snapshot) Adjacency {
	index := make(map[AdjacencyNode]int)
	var nodes []AdjacencyNode
	add := func(n AdjacencyNode) int {
		if idx, ok := index[n]; ok {
			return idx
		}
		idx := len(nodes)
		index[n] = idx
		nodes = append(nodes, n)
		return idx
	}
	for _, t := range s.Tools {
		add(AdjacencyNode{ID: t.ID})
	}
	for _, c := range s.Capabilities {
		add(AdjacencyNode{IsCapability: true, ID: c.ID.String()})
	}

	m := kernel.NewMatrix(len(nodes), len(nodes))
	link := func(a, b AdjacencyNode, w float64) {
		ai, aok := index[a]
		bi, bok := index[b]
		if !aok || !bok {
			return
		}
		m.Set(ai, bi, m.At(ai, bi)+float32(w))
		m.Set(bi, ai, m.At(bi, ai)+float32(w))
	}

	for _, c := range s.Capabilities {
		capNode := AdjacencyNode{IsCapability: true, ID: c.ID.String()}
		for _, member := range c.Members {
			if member.Kind == domain.MemberTool {
				link(capNode, AdjacencyNode{ID: member.ToolID}, 1)
			} else {
				link(capNode, AdjacencyNode{IsCapability: true, ID: member.CapabilityID.String()}, 1)
			}
		}
	}
	for _, e := range s.Edges {
		if e.Type == domain.EdgeContains {
			continue
		}
		from := refToNode(e.From)
		to := refToNode(e.To)
		link(from, to, e.Weight)
	}

	return Adjacency{Nodes: nodes, Matrix: m}
}

func refToNode(ref domain.NodeRef) AdjacencyNode {
	return AdjacencyNode{IsCapability: ref.Kind == domain.MemberCapability, ID: ref.ID}
}

// ActiveCluster identifies the majority cluster among a set of context
// tools (spec.md §4.4), and how many of those tools fall in it.
func ActiveCluster(contextTools []string, res Result) (cluster int, toolsInActiveCluster int, ok bool) {
	counts := make(map[int]int)
	for _, id := range contextTools {
		c, assigned := res.ClusterOf[ToolNode(id)]
		if !assigned {
			continue
		}
		counts[c]++
	}
	best, bestCount := 0, -1
	for c, n := range counts {
		if n > bestCount {
			best, bestCount = c, n
		}
	}
	if bestCount < 0 {
		return 0, 0, false
	}
	return best, bestCount, true
}

// ClusterBoost implements spec.md §4.4's cluster-agreement boost: 0.5 if
// the capability shares the active cluster, else
// 0.25 x (toolsInActiveCluster/totalTools), else 0 if the capability has
// no cluster assignment or there is no active cluster at all.
func ClusterBoost(capability AdjacencyNode, res Result, activeCluster, toolsInActiveCluster, totalTools int, haveActiveCluster bool) float64 {
	capCluster, assigned := res.ClusterOf[capability]
	if !assigned || !haveActiveCluster {
		return 0
	}
	if capCluster == activeCluster {
		return 0.5
	}
	if totalTools == 0 {
		return 0
	}
	return 0.25 * float64(toolsInActiveCluster) / float64(totalTools)
}

// ToolNode and CapNode are small convenience constructors matching the
// domain package's id types.
func ToolNode(id string) AdjacencyNode       { return AdjacencyNode{ID: id} }
func CapNode(id uuid.UUID) AdjacencyNode     { return AdjacencyNode{IsCapability: true, ID: id.String()} }
