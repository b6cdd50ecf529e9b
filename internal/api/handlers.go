package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/toolgraph/shgat/internal/domain"
	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/orchestrator"
	"github.com/toolgraph/shgat/internal/storage"
)

// ErrorResponse is the envelope every non-2xx handler response uses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ScoreToolsRequest is the score_tools endpoint's request body.
type ScoreToolsRequest struct {
	Intent          string    `json:"intent"`
	IntentEmbedding []float32 `json:"intentEmbedding,omitempty"`
	ContextTools    []string  `json:"contextTools,omitempty"`
	Mode            string    `json:"mode,omitempty"`
	Limit           int       `json:"limit,omitempty"`
}

// ScoreCapabilitiesRequest is the score_capabilities endpoint's request body.
type ScoreCapabilitiesRequest struct {
	Intent          string    `json:"intent"`
	IntentEmbedding []float32 `json:"intentEmbedding,omitempty"`
	ContextTools    []string  `json:"contextTools,omitempty"`
	Mode            string    `json:"mode,omitempty"`
	Limit           int       `json:"limit,omitempty"`
}

// TrainRequest is the train endpoint's request body.
type TrainRequest struct {
	UserID string `json:"userId,omitempty"`
}

// ReportOutcomeRequest is the report_outcome endpoint's request body: a
// caller tells the engine how a previously scored tool/capability actually
// performed, feeding C6's replay buffer and, for a capability, its running
// success/usage counters.
type ReportOutcomeRequest struct {
	Intent          string     `json:"intent"`
	IntentEmbedding []float32  `json:"intentEmbedding,omitempty"`
	CapabilityID    *uuid.UUID `json:"capabilityId,omitempty"`
	ExecutedPath    []string   `json:"executedPath,omitempty"`
	Success         bool       `json:"success"`
	DurationMs      float64    `json:"durationMs"`
	UserID          string     `json:"userId,omitempty"`
}

func discoveryMode(raw string) domain.DiscoveryMode {
	if raw == string(domain.ModePassiveSuggestion) {
		return domain.ModePassiveSuggestion
	}
	return domain.ModeActiveSearch
}

func (s *Server) scoreTools(c *gin.Context) {
	var req ScoreToolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	results, err := s.orch.DiscoverTools(c.Request.Context(), orchestrator.DiscoverToolsRequest{
		Intent:          req.Intent,
		IntentEmbedding: req.IntentEmbedding,
		ContextTools:    req.ContextTools,
		Mode:            discoveryMode(req.Mode),
		Limit:           req.Limit,
	})
	if err != nil {
		writeDiscoveryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) scoreCapabilities(c *gin.Context) {
	var req ScoreCapabilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	results, err := s.orch.DiscoverCapabilities(c.Request.Context(), orchestrator.DiscoverCapabilitiesRequest{
		Intent:          req.Intent,
		IntentEmbedding: req.IntentEmbedding,
		ContextTools:    req.ContextTools,
		Mode:            discoveryMode(req.Mode),
		Limit:           req.Limit,
	})
	if err != nil {
		writeDiscoveryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func writeDiscoveryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domerr.ErrMissingIntent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "MISSING_INTENT"})
	case errors.Is(err, domerr.ErrNoSearchEngine):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "NO_SEARCH_ENGINE"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL_ERROR"})
	}
}

func (s *Server) train(c *gin.Context) {
	if s.launcher == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "training launcher not configured", Code: "TRAINING_UNAVAILABLE"})
		return
	}

	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength != 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}

	// A nil ExistingParams starts training from a freshly initialized
	// model; resuming from a saved model is the caller's job via a
	// future "load existing params" request field once that round-trip
	// is needed.
	resp, err := s.launcher.Run(c.Request.Context(), req.UserID, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "TRAINING_FAILED"})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": resp.Error})
		return
	}

	if s.orch.Traces != nil && len(resp.TDErrors) > 0 {
		ids := make([]uuid.UUID, len(resp.TDErrors))
		tdErrors := make([]float64, len(resp.TDErrors))
		for i, e := range resp.TDErrors {
			ids[i] = e.TraceID
			tdErrors[i] = e.TDError
		}
		s.orch.Traces.UpdatePriorities(ids, tdErrors)
	}

	reloaded := false
	if resp.SavedToDB && s.orch.Scorer != nil && s.dsn != "" {
		params, err := storage.LoadParams(c.Request.Context(), s.dsn, req.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("train: weights saved but hot-reload fetch failed")
		} else if err := s.orch.Scorer.ImportParams(params); err != nil {
			s.logger.Warn().Err(err).Msg("train: hot-reload rejected, shapes no longer match")
		} else {
			reloaded = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        resp.Success,
		"finalLoss":      resp.FinalLoss,
		"finalAccuracy":  resp.FinalAccuracy,
		"tdErrors":       resp.TDErrors,
		"savedToDb":      resp.SavedToDB,
		"paramsReloaded": reloaded,
	})
}

// reportOutcome records how a previously scored tool/capability actually
// performed: it appends a cold-start-priority ExecutionTrace to C6's
// replay buffer and, for a capability outcome, updates that capability's
// running success/usage counters (spec.md §3's usageCount/successCount,
// consumed by C5's local-alpha calculator).
func (s *Server) reportOutcome(c *gin.Context) {
	var req ReportOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
		return
	}
	if req.Intent == "" && len(req.IntentEmbedding) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "intent or intentEmbedding is required", Code: "MISSING_INTENT"})
		return
	}
	if s.orch.Traces == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "trace store not configured", Code: "TRACES_UNAVAILABLE"})
		return
	}

	intentEmbedding := req.IntentEmbedding
	if len(intentEmbedding) == 0 && s.orch.Embedder != nil {
		if emb, err := s.orch.Embedder.Encode(c.Request.Context(), req.Intent); err == nil {
			intentEmbedding = emb
		}
	}

	trace := domain.NewExecutionTrace(req.Intent, intentEmbedding, req.CapabilityID)
	trace.ExecutedPath = req.ExecutedPath
	trace.Success = req.Success
	trace.DurationMs = req.DurationMs
	trace.UserID = req.UserID
	s.orch.Traces.Append(trace)

	if req.CapabilityID != nil {
		if cap, ok := s.orch.Store.GetCapability(*req.CapabilityID); ok {
			cap.RecordOutcome(req.Success, req.DurationMs)
		}
	}

	c.JSON(http.StatusAccepted, gin.H{"traceId": trace.ID})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
