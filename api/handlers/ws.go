package handlers

import (
	"net/http"

	"socialfeed/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSFeedHandler - WebSocket с событиями ленты
func (h *Handlers) WSFeedHandler(c *gin.Context) {
	feed := c.Param("feed")
	if _, ok := h.refresher(feed); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown feed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected","message":"WebSocket connected"}`))

	h.WS.Add(feed, conn)
	defer h.WS.Remove(feed, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logger.Log.Debug("WebSocket read error", zap.Error(err))
			break
		}
	}
}
