package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openfiscal/cclastrib/internal/agent"
)

// Server wires the classification agent to HTTP handlers.
type Server struct {
	agent *agent.Agent
}

// New creates a server around an agent.
func New(a *agent.Agent) *Server {
	return &Server{agent: a}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)
	r.POST("/classificar", s.handleClassify)
	r.POST("/classificar/lote", s.handleClassifyBatch)
	r.POST("/reload", s.handleReload)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"data_dir":   s.agent.DataDir(),
		"loaded_at":  s.agent.Snapshot().LoadedAt.Format(time.RFC3339),
		"cache_size": s.agent.CacheSize(),
	})
}

// handleClassify answers one item. Malformed requests are rejected with
// 400; missing reference data never produces an error status, it degrades
// into alerts and pending items inside a 200 response.
func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.agent.Handle(c.Request.Context(), req.toModel())
	if err != nil {
		slog.Error("classification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClassifyBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := s.agent.HandleBatch(c.Request.Context(), req.toAgent())
	if err != nil {
		slog.Error("batch classification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ano_emissao": req.AnoEmissao,
		"itens":       results,
	})
}

// handleReload rebuilds the reference snapshot. On failure the previous
// snapshot keeps serving and the operator gets the error.
func (s *Server) handleReload(c *gin.Context) {
	if err := s.agent.Reload(c.Request.Context()); err != nil {
		slog.Error("reload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
