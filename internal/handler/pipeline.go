package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenwatch/internal/pipeline"
)

type PipelineHandler struct {
	Pipeline *pipeline.Pipeline
	Logger   *zap.Logger
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pipeline")
	group.GET("/status", h.status)
	group.POST("/scan", h.scan)
}

// @Summary Pipeline runtime status
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/status [get]
func (h *PipelineHandler) status(c *gin.Context) {
	if h.Pipeline == nil {
		Error(c, http.StatusInternalServerError, "pipeline unavailable", nil)
		return
	}
	Ok(c, h.Pipeline.Status(), nil)
}

// @Summary Run one scan cycle now
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/scan [post]
func (h *PipelineHandler) scan(c *gin.Context) {
	if h.Pipeline == nil {
		Error(c, http.StatusInternalServerError, "pipeline unavailable", nil)
		return
	}
	result, err := h.Pipeline.RunCycle(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual scan failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}
