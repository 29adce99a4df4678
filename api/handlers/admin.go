package handlers

import (
	"net/http"

	"socialfeed/services"

	"github.com/gin-gonic/gin"
)

// RebuildFeed ставит перестроение ленты в очередь, без Redis перестраивает сразу
func (h *Handlers) RebuildFeed(c *gin.Context) {
	name := c.Param("feed")
	feed, ok := h.refresher(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown feed"})
		return
	}

	if h.Queue != nil {
		if err := h.Queue.EnqueueRefresh(c.Request.Context(), name); err == nil {
			c.JSON(http.StatusAccepted, gin.H{"message": "Feed rebuild enqueued"})
			return
		}
	}

	if err := feed.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to rebuild feed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feed rebuilt successfully"})
}

// GetQueueStats возвращает статистику очереди
func (h *Handlers) GetQueueStats(c *gin.Context) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}
	queueLength, err := h.Queue.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue_length": queueLength,
		"workers":      services.QUEUE_WORKER_COUNT,
	})
}
