package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/toolgraph/shgat/internal/graphstore"
	"github.com/toolgraph/shgat/internal/orchestrator"
)

func newTestServer() *Server {
	orch := orchestrator.New(graphstore.New(false))
	return New(orch, nil, nil, zerolog.Nop(), Config{})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestScoreToolsMissingIntentReturns400(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/score_tools", ScoreToolsRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "MISSING_INTENT", body.Code)
}

func TestScoreToolsNoSearchEngineReturns503(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/score_tools", ScoreToolsRequest{Intent: "send an email"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "NO_SEARCH_ENGINE", body.Code)
}

func TestTrainWithoutLauncherReturns503(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/train", TrainRequest{})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebsocketRouteAbsentWithoutHub(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv.Router(), http.MethodGet, "/ws/telemetry", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSMiddlewareSetsWildcardByDefault(t *testing.T) {
	orch := orchestrator.New(graphstore.New(false))
	srv := New(orch, nil, nil, zerolog.Nop(), Config{EnableCORS: true})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddlewareRejectsAfterLimit(t *testing.T) {
	orch := orchestrator.New(graphstore.New(false))
	srv := New(orch, nil, nil, zerolog.Nop(), Config{EnableRateLimit: true, RateLimitMax: 1})
	router := srv.Router()

	rec1 := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
