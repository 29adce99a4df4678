package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) GetNotifications(c *gin.Context) {
	list, err := h.Notifications.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handlers) ClearNotifications(c *gin.Context) {
	if err := h.Notifications.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications cleared"})
}
