package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) resources(c *gin.Context) {
	status := s.handler.QueryResources()
	c.JSON(http.StatusOK, gin.H{
		"total_ram_bytes":  status.TotalRAMBytes,
		"free_ram_bytes":   status.FreeRAMBytes,
		"total_vram_bytes": status.TotalVRAMBytes,
		"free_vram_bytes":  status.FreeVRAMBytes,
		"per_model":        status.PerModel,
	})
}

type estimateRequest struct {
	Source    string `json:"source"`
	AuthToken string `json:"auth_token,omitempty"`
}

func (s *Server) estimateResources(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Source == "" {
		sendError(c, errInvalidBody)
		return
	}
	plans, err := s.handler.EstimateModelSize(c.Request.Context(), req.Source, req.AuthToken)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
