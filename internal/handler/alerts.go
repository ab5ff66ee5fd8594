package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenwatch/internal/repository"
)

type AlertHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *AlertHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/alerts")
	group.GET("", h.listAlerts)
}

// @Summary List sent alerts
// @Tags alerts
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param chain query string false "chain (solana|bsc|ethereum)"
// @Param tier query string false "tier"
// @Param address query string false "token address"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param order_by query string false "order by field"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/alerts [get]
func (h *AlertHandler) listAlerts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"sent_at":    "sent_at",
		"risk_score": "risk_score",
		"tier":       "tier",
	})

	params := repository.ListAlertsParams{
		Limit:   limit,
		Offset:  offset,
		Chain:   strQueryPtr(c, "chain"),
		Tier:    strQueryPtr(c, "tier"),
		Address: strQueryPtr(c, "address"),
		Since:   timeQueryPtr(c, "since"),
		Until:   timeQueryPtr(c, "until"),
		OrderBy: orderBy,
		Asc:     boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListAlerts(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list alerts failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAlerts(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("count alerts failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
