package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockbot/internal/repository"
)

type EquityHandler struct {
	Repo repository.Repository
}

func (h *EquityHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/equity", h.history)
}

func (h *EquityHandler) history(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 168)
	since := time.Time{}
	if t := timeQueryPtr(c, "since"); t != nil {
		since = *t
	}
	items, err := h.Repo.ListEquitySnapshots(c.Request.Context(), since, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, countMeta(len(items)))
}
