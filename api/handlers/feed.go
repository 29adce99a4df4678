package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"socialfeed/services"

	"github.com/gin-gonic/gin"
)

// GetFeed отдает видимое окно ленты постов, при необходимости загружая ее
func (h *Handlers) GetFeed(c *gin.Context) {
	err := h.Posts.Load(c.Request.Context())
	writeCachedSnapshot(c, h.Posts.Snapshot(), err)
}

// RefreshFeed - pull-to-refresh
func (h *Handlers) RefreshFeed(c *gin.Context) {
	err := h.Posts.Refresh(c.Request.Context())
	writeSnapshot(c, h.Posts.Snapshot(), err)
}

// LoadMoreFeed расширяет видимое окно на одну страницу
func (h *Handlers) LoadMoreFeed(c *gin.Context) {
	_, err := h.Posts.LoadMore()
	writeSnapshot(c, h.Posts.Snapshot(), err)
}

func (h *Handlers) ClearFeedCache(c *gin.Context) {
	if err := h.Posts.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}

// GetPost отдает один пост с автором и комментариями
func (h *Handlers) GetPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	post, ok := h.Posts.Post(postID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// LikePost оптимистично меняет счетчик лайков (delta: 1 или -1)
func (h *Handlers) LikePost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req struct {
		Delta int64 `json:"delta" binding:"required,oneof=-1 1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	post, err := h.Posts.Like(postID, req.Delta)
	if errors.Is(err, services.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to like post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": post.ID, "likes": post.Reactions.Likes})
}
