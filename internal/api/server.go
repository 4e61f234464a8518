// Package api exposes the training game over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cubicle/internal/agents"
	"cubicle/internal/content"
	"cubicle/internal/game"
	"cubicle/internal/guardrail"
	"cubicle/internal/logging"
	"cubicle/internal/orchestrator"
	"cubicle/internal/session"
)

// Server wires the HTTP surface over the turn pipeline.
type Server struct {
	sessions     *session.Manager
	orchestrator *orchestrator.Orchestrator
	initializer  *content.Initializer
	loader       *content.Loader
	coach        agents.Coach
	log          *zap.Logger
}

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Sessions     *session.Manager
	Orchestrator *orchestrator.Orchestrator
	Initializer  *content.Initializer
	Loader       *content.Loader
	Coach        agents.Coach
	Logger       *zap.Logger
}

// NewServer creates the HTTP server.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sessions:     cfg.Sessions,
		orchestrator: cfg.Orchestrator,
		initializer:  cfg.Initializer,
		loader:       cfg.Loader,
		coach:        cfg.Coach,
		log:          log,
	}
}

// Routes builds the gin handler.
func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/api/modules/:module/scenarios", s.handleListScenarios)
	engine.POST("/api/sessions", s.handleStartSession)
	engine.GET("/api/sessions/:id", s.handleGetSession)
	engine.POST("/api/sessions/:id/turns", s.handleSubmitTurn)
	engine.POST("/api/sessions/:id/retry", s.handleRetry)
	engine.GET("/api/sessions/:id/debrief", s.handleDebrief)
	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListScenarios(c *gin.Context) {
	ids, err := s.loader.ListScenarios(c.Param("module"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": ids})
}

type startSessionRequest struct {
	ModuleID   string             `json:"module_id"`
	ScenarioID string             `json:"scenario_id"`
	Profile    game.PlayerProfile `json:"profile"`
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ModuleID == "" || req.ScenarioID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "module_id and scenario_id required"})
		return
	}

	seeded, err := s.initializer.NewSession(req.Profile, req.ModuleID, req.ScenarioID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	created, err := s.sessions.Create(c.Request.Context(), seeded)
	if err != nil {
		s.writeError(c, err)
		return
	}
	logging.API("session %s started (%s/%s)", created.ID, req.ModuleID, req.ScenarioID)
	c.JSON(http.StatusCreated, sessionView(created))
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(sess))
}

type submitTurnRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleSubmitTurn(c *gin.Context) {
	var req submitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sess, err := s.orchestrator.ProcessTurn(c.Request.Context(), c.Param("id"), req.Input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(sess))
}

// handleRetry resets a lost session to its starting state and re-seeds the
// scenario's entry turn.
func (s *Server) handleRetry(c *gin.Context) {
	id := c.Param("id")
	sess, err := s.sessions.Reset(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	entry, err := s.initializer.EntryTurn(sess.ModuleID, sess.ScenarioID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sess, err = s.sessions.SeedEntry(c.Request.Context(), id, entry)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.orchestrator.DropActors(id)
	logging.API("session %s reset for retry", id)
	c.JSON(http.StatusOK, sessionView(sess))
}

func (s *Server) handleDebrief(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if sess.Status == game.StatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "session is still active"})
		return
	}

	debrief, err := s.coach.Debrief(c.Request.Context(), agents.DebriefRequest{
		Status:  sess.Status,
		Context: sess.Context(),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, debrief)
}

func (s *Server) writeError(c *gin.Context, err error) {
	var violation *guardrail.Violation
	switch {
	case errors.As(err, &violation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "input rejected",
			"code":   violation.Code,
			"reason": violation.Reason,
		})
	case errors.Is(err, session.ErrNotFound), errors.Is(err, content.ErrScenarioNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrResetNotAllowed),
		errors.Is(err, session.ErrAlreadySeeded),
		errors.Is(err, orchestrator.ErrSessionFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
