// Package tracestore implements C6: the experience trace store. It
// appends execution traces at a cold-start priority, samples training
// batches via prioritized experience replay, and answers
// queryIntentSimilar for C7's TraceStats feature. Grounded on the
// teacher's internal/infrastructure/storage/memory.go map-backed store
// (RWMutex-guarded map, snapshot-on-read) generalized to carry PER's
// priority bookkeeping instead of plain CRUD.
package tracestore

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/kernel"
)

// PERConfig holds the prioritized-experience-replay exponents (spec.md
// §4.6): AlphaPER controls how strongly priority skews sampling,
// BetaPER controls how strongly importance weights correct for that
// skew.
type PERConfig struct {
	AlphaPER float64
	BetaPER  float64
	Epsilon  float64
}

// DefaultPERConfig returns commonly used PER exponents.
func DefaultPERConfig() PERConfig {
	return PERConfig{AlphaPER: 0.6, BetaPER: 0.4, Epsilon: 0.01}
}

// record pairs a stored trace with its replay priority.
type record struct {
	trace    *domain.ExecutionTrace
	priority float64
}

// Store is the in-memory experience trace store.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*record
	order   []uuid.UUID // insertion order, for deterministic iteration
	cfg     PERConfig
	rng     *kernel.Mulberry32
}

// New creates an empty Store.
func New(cfg PERConfig, seed uint32) *Store {
	return &Store{
		records: make(map[uuid.UUID]*record),
		cfg:     cfg,
		rng:     kernel.NewMulberry32(seed),
	}
}

// Append stores a new trace at the cold-start priority (spec.md §4.6:
// domain.ColdStartPriority = 0.5).
func (s *Store) Append(t *domain.ExecutionTrace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[t.ID] = &record{trace: t, priority: domain.ColdStartPriority}
	s.order = append(s.order, t.ID)
}

// Len reports how many traces are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SampledTrace is one element of a SampleBatch result: the trace, its
// importance-sampling weight, and its id (for a later UpdatePriorities
// call). C8 multiplies the example's reported loss by Weight; it does not
// scale the example's gradient by it.
type SampledTrace struct {
	Trace  *domain.ExecutionTrace
	Weight float64
	ID     uuid.UUID
}

// SampleBatch draws n traces with replacement, probability proportional
// to priority_i^alphaPER, and returns importance-sampling weights
// proportional to (n * p_i)^(-betaPER), normalized so the maximum weight
// in the batch is 1 (spec.md §4.6).
func (s *Store) SampleBatch(n int) []SampledTrace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	if total == 0 || n <= 0 {
		return nil
	}

	weighted := make([]float64, total)
	sum := 0.0
	for i, id := range s.order {
		p := s.records[id].priority
		wp := pow(p, s.cfg.AlphaPER)
		weighted[i] = wp
		sum += wp
	}
	if sum == 0 {
		// Degenerate: every priority is zero. Fall back to uniform.
		for i := range weighted {
			weighted[i] = 1
		}
		sum = float64(total)
	}

	probs := make([]float64, total)
	for i, w := range weighted {
		probs[i] = w / sum
	}

	out := make([]SampledTrace, n)
	maxWeight := 0.0
	isWeights := make([]float64, n)
	for k := 0; k < n; k++ {
		idx := sampleIndex(probs, s.rng)
		id := s.order[idx]
		rec := s.records[id]
		w := pow(float64(total)*probs[idx], -s.cfg.BetaPER)
		isWeights[k] = w
		if w > maxWeight {
			maxWeight = w
		}
		out[k] = SampledTrace{Trace: rec.trace, ID: id}
	}
	if maxWeight == 0 {
		maxWeight = 1
	}
	for k := range out {
		out[k].Weight = isWeights[k] / maxWeight
	}
	return out
}

func sampleIndex(probs []float64, rng *kernel.Mulberry32) int {
	target := float64(rng.Float32())
	cum := 0.0
	for i, p := range probs {
		cum += p
		if target <= cum {
			return i
		}
	}
	return len(probs) - 1
}

func pow(base, exp float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Pow(base, exp)
}

// UpdatePriorities sets priority = |tdError| + epsilon, clipped to
// [0, 1], for each given trace id (spec.md §4.6).
func (s *Store) UpdatePriorities(ids []uuid.UUID, tdErrors []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		if i >= len(tdErrors) {
			break
		}
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		p := abs(tdErrors[i]) + s.cfg.Epsilon
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		rec.priority = p
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// IntentMatch is one queryIntentSimilar result: a stored trace's
// similarity to the query and whether it succeeded.
type IntentMatch struct {
	Similarity float32
	Success    bool
}

// QueryIntentSimilar returns the average success rate over the top-k
// stored traces by cosine similarity of their intentEmbedding to
// embedding (spec.md §4.6), used as a TraceStats feature by C7.
func (s *Store) QueryIntentSimilar(embedding []float32, k int) (avgSuccessRate float64, matched int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		sim     float32
		success bool
		id      uuid.UUID
	}
	all := make([]scored, 0, len(s.order))
	for _, id := range s.order {
		tr := s.records[id].trace
		sim := kernel.Cosine(embedding, tr.IntentEmbedding)
		all = append(all, scored{sim: sim, success: tr.Success, id: id})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].sim != all[j].sim {
			return all[i].sim > all[j].sim
		}
		return all[i].id.String() < all[j].id.String()
	})
	if k >= 0 && k < len(all) {
		all = all[:k]
	}
	if len(all) == 0 {
		return 0, 0
	}
	successes := 0
	for _, m := range all {
		if m.success {
			successes++
		}
	}
	return float64(successes) / float64(len(all)), len(all)
}
