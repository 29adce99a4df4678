package handlers

import (
	"net/http"
	"strconv"

	"socialfeed/logger"
	"socialfeed/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetProfiles отдает окно ленты профилей. ?q= фильтрует видимое окно по имени.
func (h *Handlers) GetProfiles(c *gin.Context) {
	err := h.Profiles.Load(c.Request.Context())
	snap := h.Profiles.Snapshot()
	if q := c.Query("q"); q != "" {
		snap.Items = h.Profiles.Search(q)
	}
	writeCachedSnapshot(c, snap, err)
}

func (h *Handlers) RefreshProfiles(c *gin.Context) {
	err := h.Profiles.Refresh(c.Request.Context())
	writeSnapshot(c, h.Profiles.Snapshot(), err)
}

func (h *Handlers) LoadMoreProfiles(c *gin.Context) {
	_, err := h.Profiles.LoadMore()
	writeSnapshot(c, h.Profiles.Snapshot(), err)
}

// GetUser ищет пользователя в загруженной ленте профилей, затем в апстриме.
// Если апстрим не ответил, отдается заглушка с аватаром по умолчанию.
func (h *Handlers) GetUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if h.Profiles != nil {
		if user, ok := h.Profiles.User(userID); ok {
			c.JSON(http.StatusOK, user)
			return
		}
	}

	if h.Users != nil {
		user, err := h.Users.FetchUser(c.Request.Context(), userID)
		if err == nil {
			c.JSON(http.StatusOK, user)
			return
		}
		logger.Log.Warn("failed to fetch user", zap.Int64("user_id", userID), zap.Error(err))
	}

	fallback := models.UnknownUser()
	fallback.ID = userID
	fallback.Image = models.DefaultAvatar
	c.JSON(http.StatusOK, fallback)
}
