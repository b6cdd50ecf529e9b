// Package api implements the Scorer/Training REST surface (spec.md
// §4.10/§7's score_tools/score_capabilities, §4.8's train) on top of
// gin-gonic/gin — the teacher's own pkg/server/routes.go reaches for gin
// for its REST API, so this package generalizes the same middleware
// chain shape (recovery, request logging, CORS, rate limiting) to the
// discovery engine's much smaller surface instead of carrying over
// workflow/execution/auth routes that have no equivalent here.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/toolgraph/shgat/internal/orchestrator"
	"github.com/toolgraph/shgat/internal/trainlauncher"
	"github.com/toolgraph/shgat/internal/wsapi"
)

// Config tunes the router's middleware.
type Config struct {
	EnableCORS      bool
	CORSOrigins     []string
	EnableRateLimit bool
	RateLimitMax    int
	RateLimitWindow time.Duration
	Debug           bool

	// DatabaseDSN lets the train handler re-open a short-lived connection
	// to reload the weights the training subprocess just saved, hot-loading
	// them into the live Scorer instead of requiring a server restart.
	DatabaseDSN string
}

// Server holds the router's dependencies.
type Server struct {
	orch     *orchestrator.Orchestrator
	launcher *trainlauncher.Launcher
	wsHub    *wsapi.Hub
	logger   zerolog.Logger
	cfg      Config
	dsn      string
}

// New builds a Server. launcher and wsHub may be nil: /api/v1/train and
// /ws/telemetry degrade to 503/absent-route respectively rather than
// panicking, matching the rest of the engine's "nil optional dependency
// degrades gracefully" convention.
func New(orch *orchestrator.Orchestrator, launcher *trainlauncher.Launcher, wsHub *wsapi.Hub, logger zerolog.Logger, cfg Config) *Server {
	return &Server{orch: orch, launcher: launcher, wsHub: wsHub, logger: logger, cfg: cfg, dsn: cfg.DatabaseDSN}
}

// Router builds the gin.Engine exposing every route.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(recoveryMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	if s.cfg.EnableCORS {
		r.Use(corsMiddleware(s.cfg.CORSOrigins))
	}

	if s.cfg.EnableRateLimit {
		max := s.cfg.RateLimitMax
		if max <= 0 {
			max = 100
		}
		window := s.cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(rateLimitMiddleware(newRateLimiter(max, window)))
	}

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	v1.POST("/score_tools", s.scoreTools)
	v1.POST("/score_capabilities", s.scoreCapabilities)
	v1.POST("/train", s.train)
	v1.POST("/report_outcome", s.reportOutcome)

	if s.wsHub != nil {
		handler := wsapi.NewHandler(s.wsHub, s.logger)
		r.GET("/ws/telemetry", gin.WrapH(handler))
	}

	return r
}
