package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenwatch/internal/repository"
)

type CheckHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *CheckHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/checks")
	group.GET("", h.listChecks)
}

// @Summary List token evaluations
// @Tags checks
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param chain query string false "chain (solana|bsc|ethereum)"
// @Param status query string false "status (passed|rejected|duplicate)"
// @Param tier query string false "tier"
// @Param address query string false "token address"
// @Param since query string false "RFC3339 lower bound"
// @Param order_by query string false "order by field"
// @Param ascending query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/checks [get]
func (h *CheckHandler) listChecks(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"created_at": "created_at",
		"risk_score": "risk_score",
		"status":     "status",
	})

	params := repository.ListTokenChecksParams{
		Limit:   limit,
		Offset:  offset,
		Chain:   strQueryPtr(c, "chain"),
		Status:  strQueryPtr(c, "status"),
		Tier:    strQueryPtr(c, "tier"),
		Address: strQueryPtr(c, "address"),
		Since:   timeQueryPtr(c, "since"),
		OrderBy: orderBy,
		Asc:     boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListTokenChecks(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list checks failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTokenChecks(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("count checks failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
