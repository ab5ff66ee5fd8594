package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"tokenwatch/internal/stream"
)

const streamWriteTimeout = 10 * time.Second

type StreamHandler struct {
	Hub    *stream.Hub
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/alerts/stream", h.subscribe)
}

// @Summary Live alert stream over WebSocket
// @Tags alerts
// @Success 101 {string} string "switching protocols"
// @Router /api/v1/alerts/stream [get]
func (h *StreamHandler) subscribe(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "stream disabled", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	id, events := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)
	if h.Logger != nil {
		h.Logger.Debug("stream subscriber connected", zap.Uint64("subscriber", id))
	}

	// CloseRead watches for client close frames; the returned context ends
	// when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Debug("stream write failed", zap.Uint64("subscriber", id), zap.Error(err))
				}
				return
			}
		}
	}
}
