package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Tokenwatch

Scans Dexscreener for new tokens on Solana, BSC and Ethereum, filters out
obvious rugs and manipulated volume, classifies the survivors into risk
tiers and alerts over Telegram at a paced rate.

## Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- GET /api/v1/alerts
- GET /api/v1/alerts/stream (WebSocket)
- GET /api/v1/checks
- GET /api/v1/stats
- GET /api/v1/scans
- GET /api/v1/pipeline/status
- POST /api/v1/pipeline/scan

## Auth

When TW_API_TOKEN is set, all /api/* routes plus swagger and this page
require "Authorization: Bearer <token>". Health endpoints are always public.

## Alert tiers

ultra_risk < medium_risk < mini_gem < real_gem < premium_gem, ordered by
desirability. The live stream and the alerts list both carry the tier.
`)
	})
}
