package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/agent-relay/afk/internal/ws"
)

// WebSocketHandler exposes the relay hub's two WebSocket endpoints on
// the Gin router.
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Hook handles GET /ws/hook - agent connections.
func (h *WebSocketHandler) Hook(c *gin.Context) {
	h.hub.HandleHook(c.Writer, c.Request)
}

// UI handles GET /ws/ui - operator dashboard connections.
func (h *WebSocketHandler) UI(c *gin.Context) {
	h.hub.HandleUI(c.Writer, c.Request)
}

// RegisterRoutes registers the WebSocket routes on the Gin engine.
func (h *WebSocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/hook", h.Hook)
	r.GET("/ws/ui", h.UI)
}
