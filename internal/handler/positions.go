package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbot/internal/repository"
	"stockbot/internal/trader"
)

type PositionHandler struct {
	Engine *trader.Engine
	Repo   repository.Repository
}

func (h *PositionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/positions")
	g.GET("", h.live)
	g.GET("/mirror", h.mirror)
}

// live serves the engine's in-memory book, the state trading decisions
// actually run on.
func (h *PositionHandler) live(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	positions := h.Engine.Snapshot()
	Ok(c, positions, countMeta(len(positions)))
}

// mirror serves the database copy, which also carries refreshed prices and
// unrealized PnL.
func (h *PositionHandler) mirror(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListOpenPositions(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, countMeta(len(items)))
}
