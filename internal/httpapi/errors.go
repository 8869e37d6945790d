package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// errorBody is the wire shape spec.md §7 requires: {kind, message, hint?}.
type errorBody struct {
	Kind    hearthrunerr.Kind `json:"kind"`
	Message string            `json:"message"`
	Hint    string            `json:"hint,omitempty"`
}

// sendError maps err to its documented HTTP status and {kind, message,
// hint?} body, the single place this transport performs that mapping
// (hearthrunerr.HTTPStatus), mirroring proxy/proxymanager_api.go's
// sendErrorResponse but carrying the typed kind instead of a bare string.
func sendError(c *gin.Context, err error) {
	e := hearthrunerr.AsError(err)
	c.JSON(hearthrunerr.HTTPStatus(e.Kind), errorBody{Kind: e.Kind, Message: e.Message, Hint: e.Hint})
}
