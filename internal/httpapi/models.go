package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/hearthrun/hearthrun/internal/telemetry"
)

// listKnownModels returns every currently loaded model id, per spec.md
// §6's GET /models ("list of known model ids").
func (s *Server) listKnownModels(c *gin.Context) {
	models := s.handler.ListModels()
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	c.JSON(http.StatusOK, gin.H{"models": ids})
}

type loadRequest struct {
	Source      string             `json:"source"`
	AuthToken   string             `json:"auth_token,omitempty"`
	Engine      recipe.Engine      `json:"engine,omitempty"`
	Accelerator recipe.Accelerator `json:"accelerator,omitempty"`
	ContextSize int                `json:"context_size,omitempty"`
	BatchSize   int                `json:"batch_size,omitempty"`
	Threads     int                `json:"threads,omitempty"`
}

func (r loadRequest) explicitRecipe() *recipe.Explicit {
	if r.Engine == "" {
		return nil
	}
	return &recipe.Explicit{
		Engine:      r.Engine,
		Accelerator: r.Accelerator,
		ContextSize: r.ContextSize,
		BatchSize:   r.BatchSize,
		Threads:     r.Threads,
	}
}

// pull and load are aliases over the same load_model operation: spec.md
// §6 lists them as separate verbs (pull = fetch+load a remote source,
// load = load an already-local/known source) but both reduce to the
// Unified Handler's single LoadModel, the same collapse the design
// notes direct for overlapping surfaces.
func (s *Server) pull(c *gin.Context) { s.doLoad(c) }
func (s *Server) load(c *gin.Context) { s.doLoad(c) }

func (s *Server) doLoad(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, errInvalidBody)
		return
	}
	if req.Source == "" {
		sendError(c, errInvalidBody)
		return
	}

	result, err := s.handler.LoadModel(c.Request.Context(), req.Source, req.AuthToken, req.explicitRecipe())
	if err != nil {
		telemetry.LoadFailuresTotal.WithLabelValues(errKind(err)).Inc()
		sendError(c, err)
		return
	}
	telemetry.ModelsLoaded.WithLabelValues(string(result.Engine)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"model_id": result.ModelID,
		"engine":   result.Engine,
		"plan":     result.Plan,
	})
}

type modelIDRequest struct {
	ModelID string `json:"model_id,omitempty"`
}

func (s *Server) unload(c *gin.Context) {
	var req modelIDRequest
	_ = c.ShouldBindJSON(&req)
	var engineName string
	for _, m := range s.handler.ListModels() {
		if m.ID == req.ModelID || (req.ModelID == "" && m.Active) {
			engineName = string(m.Recipe.Engine)
		}
	}
	if err := s.handler.UnloadModel(c.Request.Context(), req.ModelID); err != nil {
		sendError(c, err)
		return
	}
	if engineName != "" {
		telemetry.ModelsLoaded.WithLabelValues(engineName).Dec()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// deleteModel unloads the model; this runtime does not own persistent
// artifact storage (spec.md §1 Non-goals: "transactional model storage"),
// so delete reduces to unload rather than removing files from disk.
func (s *Server) deleteModel(c *gin.Context) { s.unload(c) }

func (s *Server) modelsLoaded(c *gin.Context) {
	models := s.handler.ListModels()
	out := make([]gin.H, len(models))
	for i, m := range models {
		out[i] = gin.H{
			"id":        m.ID,
			"engine":    m.Recipe.Engine,
			"task":      m.Descriptor.Task,
			"state":     m.State,
			"active":    m.Active,
			"plan":      m.Plan,
			"loaded_at": m.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

func (s *Server) modelsSelect(c *gin.Context) {
	var req modelIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ModelID == "" {
		sendError(c, errInvalidBody)
		return
	}
	if err := s.handler.SelectActive(req.ModelID); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) health(c *gin.Context) {
	active := s.handler.ListModels()
	var engineName any
	loaded := false
	for _, m := range active {
		if m.Active {
			engineName = m.Recipe.Engine
			loaded = true
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": loaded,
		"engine":       engineName,
		"uptime":       time.Since(s.startedAt).Seconds(),
	})
}

func errKind(err error) string {
	return string(hearthrunerr.AsError(err).Kind)
}
