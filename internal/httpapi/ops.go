package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/handler"
	"github.com/hearthrun/hearthrun/internal/telemetry"
)

type embeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

func (s *Server) embeddings(c *gin.Context) {
	var req embeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Input) == 0 {
		sendError(c, errInvalidBody)
		return
	}
	vectors, err := s.handler.GenerateEmbeddings(c.Request.Context(), req.Model, req.Input)
	if err != nil {
		sendError(c, err)
		return
	}
	data := make([]gin.H, len(vectors))
	for i, v := range vectors {
		data[i] = gin.H{"index": i, "embedding": v, "object": "embedding"}
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data, "model": req.Model})
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopK      int      `json:"top_k,omitempty"`
}

func (s *Server) reranking(c *gin.Context) {
	var req rerankRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" || len(req.Documents) == 0 {
		sendError(c, errInvalidBody)
		return
	}
	results, err := s.handler.RerankDocuments(c.Request.Context(), req.Model, req.Query, req.Documents, req.TopK)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type semanticSearchRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	K         int      `json:"k"`
	Threshold float64  `json:"threshold,omitempty"`
}

func (s *Server) semanticSearch(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" || len(req.Documents) == 0 {
		sendError(c, errInvalidBody)
		return
	}
	results, err := s.handler.SemanticSearch(c.Request.Context(), req.Model, req.Query, req.Documents, req.K, req.Threshold)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type clusterRequest struct {
	Model     string                   `json:"model,omitempty"`
	Texts     []string                 `json:"texts"`
	K         int                      `json:"k,omitempty"`
	Algorithm handler.ClusterAlgorithm `json:"algorithm"`
	Seed      int64                    `json:"seed,omitempty"`
	Linkage   handler.Linkage          `json:"linkage,omitempty"`
	Eps       float64                  `json:"eps,omitempty"`
	MinPoints int                      `json:"min_points,omitempty"`
}

func (s *Server) cluster(c *gin.Context) {
	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Texts) == 0 {
		sendError(c, errInvalidBody)
		return
	}
	opts := handler.ClusterOptions{
		Algorithm: req.Algorithm,
		K:         req.K,
		Seed:      req.Seed,
		Linkage:   req.Linkage,
		Eps:       req.Eps,
		MinPoints: req.MinPoints,
	}
	result, err := s.handler.Cluster(c.Request.Context(), req.Model, req.Texts, opts)
	if err != nil {
		sendError(c, err)
		return
	}
	telemetry.ClusterRequestsTotal.WithLabelValues(string(req.Algorithm)).Inc()
	c.JSON(http.StatusOK, gin.H{"labels": result.Labels, "silhouette": result.Silhouette})
}

type recommendRequest struct {
	Model           string    `json:"model,omitempty"`
	Items           []string  `json:"items"`
	Mode            string    `json:"mode,omitempty"` // "similar" (default), "profile", "diverse"
	QueryIndex      int       `json:"query_index,omitempty"`
	QueryEmbedding  []float32 `json:"query_embedding,omitempty"`
	K               int       `json:"k,omitempty"`
	ScoreThreshold  float64   `json:"score_threshold,omitempty"`
	DiversityWeight float64   `json:"diversity_weight,omitempty"`
}

func (s *Server) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		sendError(c, errInvalidBody)
		return
	}
	opts := handler.RecommendOptions{
		K:               req.K,
		QueryIndex:      req.QueryIndex,
		QueryEmbedding:  req.QueryEmbedding,
		ScoreThreshold:  req.ScoreThreshold,
		DiversityWeight: req.DiversityWeight,
	}

	var (
		items []handler.RecommendedItem
		err   error
	)
	switch req.Mode {
	case "profile":
		items, err = s.handler.RecommendForProfile(c.Request.Context(), req.Model, req.Items, opts)
	case "diverse":
		items, err = s.handler.RecommendDiverse(c.Request.Context(), req.Model, req.Items, opts)
	default:
		items, err = s.handler.RecommendSimilar(c.Request.Context(), req.Model, req.Items, opts)
	}
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) getParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.handler.GetParams())
}

func (s *Server) setParams(c *gin.Context) {
	var settings engine.Settings
	current := s.handler.GetParams()
	settings = current
	if err := c.ShouldBindJSON(&settings); err != nil {
		sendError(c, errInvalidBody)
		return
	}
	c.JSON(http.StatusOK, s.handler.SetParams(settings))
}

type haltRequest struct {
	ModelID string `json:"model_id,omitempty"`
}

// halt looks up the in-flight cancel signal for modelID (or the active
// model) via the Server-side registry populated by streamChat, and trips
// it — the HTTP surface's realization of halt_generation for callers
// that don't hold the stream connection themselves.
func (s *Server) halt(c *gin.Context) {
	var req haltRequest
	_ = c.ShouldBindJSON(&req)

	result := s.haltActiveStream(req.ModelID)
	if result.WasGenerating {
		telemetry.HaltedGenerationsTotal.Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"was_generating":   result.WasGenerating,
		"tokens_generated": result.TokensGenerated,
	})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.genStats.snapshot())
}
