// Package graphsync implements C9: the scheduled + on-demand controller
// that reconciles storage (the durable GraphRepository) into C2's
// in-memory graph store, invalidates C4's spectral cache, and notifies
// C7 of affected node ids so attention views can be rebuilt for
// impacted levels. It is the single writer of the graph: readers only
// ever observe a consistent snapshot through C2's own locking.
package graphsync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/spectral"
)

// AffectedIDs is the delta C9 reports to C7 after a sync: the tool and
// capability ids whose record changed (added or updated) since the
// previous sync.
type AffectedIDs struct {
	ToolIDs        []string
	CapabilityIDs  []uuid.UUID
	AnyEdgeChanged bool
}

// Notifier receives the affected ids after every sync that changed
// something. C7 has no mutable per-node state of its own (every score
// call re-derives its view from C2), so in this engine "notify" means
// "tell interested callers (e.g. C10's result cache) what moved".
type Notifier interface {
	NotifyGraphChanged(affected AffectedIDs)
}

// Controller runs Sync on a schedule and on explicit SyncNow calls. It
// is the only writer into Store; a sync in flight is deduplicated via
// singleflight so a scheduled tick and an explicit SyncNow racing each
// other collapse into one actual reconciliation.
type Controller struct {
	Store    *graphstore.Store
	Repo     domain.GraphRepository
	Spectral *spectral.Manager
	Notifier Notifier
	Interval time.Duration

	mu          sync.Mutex
	lastTools   map[string]string // id -> description+embedding fingerprint
	lastCaps    map[uuid.UUID]string
	group       singleflight.Group

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Controller. notifier may be nil if nothing needs to
// observe graph-change notifications.
func New(store *graphstore.Store, repo domain.GraphRepository, mgr *spectral.Manager, notifier Notifier, interval time.Duration) *Controller {
	return &Controller{
		Store:     store,
		Repo:      repo,
		Spectral:  mgr,
		Notifier:  notifier,
		Interval:  interval,
		lastTools: map[string]string{},
		lastCaps:  map[uuid.UUID]string{},
	}
}

// Start launches the background scheduled-sync loop; call Stop to halt
// it. A zero Interval disables the scheduled loop (SyncNow still works).
func (c *Controller) Start(ctx context.Context) {
	if c.Interval <= 0 {
		return
	}
	c.stop = make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				_, _ = c.SyncNow(ctx)
			}
		}
	}()
}

// Stop halts the scheduled loop started by Start and waits for it to
// exit.
func (c *Controller) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.wg.Wait()
}

// SyncNow reads tools/capabilities/edges from the repository, upserts
// every delta into C2, invalidates C4's cache if anything changed, and
// notifies C7 with the affected ids. Concurrent callers collapse onto
// one in-flight sync.
func (c *Controller) SyncNow(ctx context.Context) (AffectedIDs, error) {
	v, err, _ := c.group.Do("sync", func() (any, error) {
		return c.syncOnce(ctx)
	})
	if err != nil {
		return AffectedIDs{}, err
	}
	return v.(AffectedIDs), nil
}

func (c *Controller) syncOnce(ctx context.Context) (AffectedIDs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tools, err := c.Repo.LoadTools(ctx)
	if err != nil {
		return AffectedIDs{}, err
	}
	caps, err := c.Repo.LoadCapabilities(ctx)
	if err != nil {
		return AffectedIDs{}, err
	}
	edges, err := c.Repo.LoadEdges(ctx)
	if err != nil {
		return AffectedIDs{}, err
	}

	var affected AffectedIDs

	for _, t := range tools {
		fp := toolFingerprint(t)
		if c.lastTools[t.ID] == fp {
			continue
		}
		c.Store.UpsertTool(t.ID, t.Description, t.Embedding)
		c.lastTools[t.ID] = fp
		affected.ToolIDs = append(affected.ToolIDs, t.ID)
	}

	for _, cap := range caps {
		fp := capFingerprint(cap)
		if c.lastCaps[cap.ID] == fp {
			continue
		}
		if err := c.Store.UpsertCapability(cap); err != nil {
			return AffectedIDs{}, err
		}
		c.lastCaps[cap.ID] = fp
		affected.CapabilityIDs = append(affected.CapabilityIDs, cap.ID)
	}

	existing := make(map[string]*domain.Edge)
	for _, se := range c.Store.AllEdges() {
		existing[se.Key()] = se
	}
	for _, e := range edges {
		if e.Type == domain.EdgeContains {
			continue // contains edges are derived from Members, not synced directly
		}
		count := e.ObservedCount
		if prev, ok := existing[e.Key()]; ok {
			if prev.ObservedCount >= e.ObservedCount && prev.Weight == e.Weight {
				continue // already in C2 with at least the stored count
			}
			count = max(e.ObservedCount-prev.ObservedCount, 0)
		}
		if err := c.Store.AddEdge(e.From, e.To, e.Type, e.Source, e.Weight, count); err != nil {
			continue // a rejected edge (e.g. would-be cycle) is not a sync failure
		}
		affected.AnyEdgeChanged = true
	}

	if len(affected.ToolIDs) > 0 || len(affected.CapabilityIDs) > 0 || affected.AnyEdgeChanged {
		if c.Spectral != nil {
			c.Spectral.Invalidate()
			c.recomputeSpectralFeaturesLocked()
		}
		if c.Notifier != nil {
			c.Notifier.NotifyGraphChanged(affected)
		}
	}

	return affected, nil
}

// recomputeSpectralFeaturesLocked re-runs C4's clustering/PageRank pass
// over the just-synced graph and writes each tool's/capability's cluster
// id and hypergraph rank back onto its Features, so a discovery call made
// right after this sync sees values refreshed by this cycle rather than
// the zero value every record starts at. Reads the store's own records
// (not the repository rows just loaded) since those are the pointers C2
// actually owns and serves to every other reader. Must be called with
// c.mu held.
func (c *Controller) recomputeSpectralFeaturesLocked() {
	storeTools := c.Store.AllTools()
	storeCaps := c.Store.AllCapabilities()
	snapshot := spectral.Snapshot{
		Tools:        storeTools,
		Capabilities: storeCaps,
		Edges:        c.Store.AllEdges(),
	}
	res := c.Spectral.Compute(snapshot)

	for _, t := range storeTools {
		node := spectral.ToolNode(t.ID)
		if cluster, ok := res.ClusterOf[node]; ok {
			t.Features.LouvainCommunity = cluster
		}
		if rank, ok := res.RankOf[node]; ok {
			t.Features.PageRank = rank
		}
	}
	for _, cap := range storeCaps {
		node := spectral.CapNode(cap.ID)
		if cluster, ok := res.ClusterOf[node]; ok {
			cap.Features.SpectralClusterID = cluster
		}
		if rank, ok := res.RankOf[node]; ok {
			cap.Features.HypergraphPageRank = rank
		}
	}
}

func toolFingerprint(t *domain.Tool) string {
	return t.Description + embeddingFingerprint(t.Embedding)
}

func capFingerprint(c *domain.Capability) string {
	return string(c.FQDN) + ":" + itoa(c.HierarchyLevel) + embeddingFingerprint(c.IntentEmbedding)
}

func embeddingFingerprint(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	// A coarse fingerprint (first/last/len) is enough to detect a changed
	// embedding without hashing the full 1024-dim vector on every sync.
	return itoa(len(v)) + ":" + ftoa(v[0]) + ":" + ftoa(v[len(v)-1])
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func ftoa(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', 6, 32)
}
