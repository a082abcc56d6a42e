package handler

import (
	"skillswap/backend/internal/api/middleware"
	"skillswap/backend/internal/chathub"

	"github.com/gin-gonic/gin"
)

// ServeWebSocket upgrades an authenticated request to a realtime connection.
// RequireAuth has already resolved the user from the header, cookie or token query.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	chathub.NewWebSocketClient(h.Hub, conn, middleware.UserID(c)).Run()
}
