// Package httpapi exposes the Unified Handler over the OpenAI-compatible
// HTTP surface named in spec.md §6, under /api/v1. Router setup and SSE
// emission are grounded on proxy/proxymanager.go's setupGinEngine and
// apiSendEvents, generalized from "reverse proxy to llama-server" to
// "call internal/handler.Handler directly" and from the teacher's
// envelope-wrapped event stream to raw OpenAI chunk framing.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthrun/hearthrun/internal/handler"
)

// Server wraps a gin.Engine bound to one Handler.
type Server struct {
	engine    *gin.Engine
	handler   *handler.Handler
	log       *slog.Logger
	startedAt time.Time
	genStats  genStats
	streams   *streamRegistry
}

// New builds the gin router and registers every /api/v1 route.
func New(h *handler.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{engine: gin.New(), handler: h, log: log, startedAt: time.Now(), streams: newStreamRegistry()}
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())
	s.routes()
	return s
}

// ServeHTTP satisfies http.Handler so Server can be assigned directly to
// an http.Server, matching the teacher's *ProxyManager usage in frogllm.go.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")

	api.GET("/health", s.health)
	api.GET("/models", s.listKnownModels)
	api.POST("/chat/completions", s.chatCompletions)
	api.POST("/completions", s.completions)
	api.POST("/embeddings", s.embeddings)
	api.POST("/reranking", s.reranking)
	api.POST("/semantic-search", s.semanticSearch)
	api.POST("/cluster", s.cluster)
	api.POST("/recommend", s.recommend)
	api.POST("/pull", s.pull)
	api.POST("/load", s.load)
	api.POST("/unload", s.unload)
	api.POST("/delete", s.deleteModel)
	api.GET("/resources", s.resources)
	api.POST("/resources/estimate", s.estimateResources)
	api.GET("/models/loaded", s.modelsLoaded)
	api.POST("/models/select", s.modelsSelect)
	api.GET("/params", s.getParams)
	api.POST("/params", s.setParams)
	api.POST("/halt", s.halt)
	api.GET("/stats", s.stats)

	// Additive Prometheus exposition alongside the spec's JSON /stats,
	// per SPEC_FULL.md's telemetry wiring.
	s.engine.GET("/metrics", gin.WrapH(metricsHandler()))
}
