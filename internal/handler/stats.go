package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenwatch/internal/repository"
)

type StatsHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *StatsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stats", h.summary)
	r.GET("/api/v1/scans", h.listScans)
}

// @Summary Aggregate check and alert counters
// @Tags stats
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/stats [get]
func (h *StatsHandler) summary(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	since := timeQueryPtr(c, "since")
	summary, err := h.Repo.StatsSummary(c.Request.Context(), since)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("stats summary failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	tiers, err := h.Repo.AlertTierBreakdown(c.Request.Context(), since)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("tier breakdown failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"summary": summary, "tiers": tiers}, nil)
}

// @Summary List scan cycle statistics
// @Tags stats
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/scans [get]
func (h *StatsHandler) listScans(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListScanStatsParams{
		Limit:  limit,
		Offset: offset,
		Since:  timeQueryPtr(c, "since"),
	}
	items, err := h.Repo.ListScanStats(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list scans failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{
		"limit":  limit,
		"offset": offset,
		"count":  len(items),
	})
}
