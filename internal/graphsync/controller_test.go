package graphsync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/domain"
	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/spectral"
)

type fakeRepo struct {
	tools []*domain.Tool
	caps  []*domain.Capability
	edges []*domain.Edge
	err   error
}

func (f *fakeRepo) SaveTool(ctx context.Context, t *domain.Tool) error { return nil }
func (f *fakeRepo) LoadTools(ctx context.Context) ([]*domain.Tool, error) {
	return f.tools, f.err
}
func (f *fakeRepo) SaveCapability(ctx context.Context, c *domain.Capability) error { return nil }
func (f *fakeRepo) LoadCapabilities(ctx context.Context) ([]*domain.Capability, error) {
	return f.caps, f.err
}
func (f *fakeRepo) SaveEdge(ctx context.Context, e *domain.Edge) error { return nil }
func (f *fakeRepo) LoadEdges(ctx context.Context) ([]*domain.Edge, error) {
	return f.edges, f.err
}

type fakeNotifier struct {
	calls []AffectedIDs
}

func (f *fakeNotifier) NotifyGraphChanged(affected AffectedIDs) {
	f.calls = append(f.calls, affected)
}

func vec(dim int) []float32 { return make([]float32, dim) }

func TestSyncNowUpsertsNewToolsAndNotifies(t *testing.T) {
	store := graphstore.New(false)
	repo := &fakeRepo{tools: []*domain.Tool{domain.NewTool("t1", "desc", vec(4))}}
	notifier := &fakeNotifier{}
	mgr := spectral.NewManager(1)
	ctrl := New(store, repo, mgr, notifier, 0)

	affected, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, affected.ToolIDs)
	assert.Len(t, notifier.calls, 1)

	_, ok := store.GetTool("t1")
	assert.True(t, ok)
}

func TestSyncNowIsIdempotentOnUnchangedRecords(t *testing.T) {
	store := graphstore.New(false)
	repo := &fakeRepo{tools: []*domain.Tool{domain.NewTool("t1", "desc", vec(4))}}
	notifier := &fakeNotifier{}
	ctrl := New(store, repo, nil, notifier, 0)

	_, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	affected, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, affected.ToolIDs)
	assert.Len(t, notifier.calls, 1) // only the first sync notified
}

func TestSyncNowDetectsChangedToolDescription(t *testing.T) {
	store := graphstore.New(false)
	repo := &fakeRepo{tools: []*domain.Tool{domain.NewTool("t1", "v1", vec(4))}}
	ctrl := New(store, repo, nil, nil, 0)

	_, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)

	repo.tools[0] = domain.NewTool("t1", "v2", vec(4))
	affected, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, affected.ToolIDs)
}

func TestSyncNowUpsertsCapabilities(t *testing.T) {
	store := graphstore.New(false)
	store.UpsertTool("t1", "", vec(4))
	capID := uuid.New()
	cap := domain.NewCapability(capID, "o.p.n.a.aaaa", []domain.Member{domain.ToolMember("t1")}, vec(4), domain.CapabilitySourceEmergent)
	repo := &fakeRepo{caps: []*domain.Capability{cap}}
	ctrl := New(store, repo, nil, nil, 0)

	affected, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{capID}, affected.CapabilityIDs)
	_, ok := store.GetCapability(capID)
	assert.True(t, ok)
}

func TestSyncNowPropagatesRepoError(t *testing.T) {
	store := graphstore.New(false)
	repo := &fakeRepo{err: assertError("boom")}
	ctrl := New(store, repo, nil, nil, 0)
	_, err := ctrl.SyncNow(context.Background())
	assert.Error(t, err)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestSyncNowSkipsContainsEdgesFromEdgeList(t *testing.T) {
	store := graphstore.New(false)
	store.UpsertTool("t1", "", vec(4))
	store.UpsertTool("t2", "", vec(4))
	edge := &domain.Edge{
		From: domain.NodeRef{Kind: domain.MemberTool, ID: "t1"},
		To:   domain.NodeRef{Kind: domain.MemberTool, ID: "t2"},
		Type: domain.EdgeContains,
	}
	repo := &fakeRepo{edges: []*domain.Edge{edge}}
	ctrl := New(store, repo, nil, nil, 0)
	affected, err := ctrl.SyncNow(context.Background())
	require.NoError(t, err)
	assert.False(t, affected.AnyEdgeChanged)
}
