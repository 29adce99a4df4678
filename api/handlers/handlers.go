package handlers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"socialfeed/models"
	"socialfeed/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"
)

// UserSource - получение одного пользователя из апстрима
type UserSource interface {
	FetchUser(ctx context.Context, userID int64) (*models.User, error)
}

// Handlers - HTTP-обработчики для клиента ленты
type Handlers struct {
	Posts         *services.PostFeed
	Profiles      *services.ProfileFeed
	Users         UserSource
	Notifications *services.NotificationService
	WS            *services.WSConnManager
	// Queue может быть nil, если Redis недоступен
	Queue *services.QueueService
}

func (h *Handlers) refresher(name string) (services.Refresher, bool) {
	switch name {
	case services.FeedPosts:
		return h.Posts, h.Posts != nil
	case services.FeedProfiles:
		return h.Profiles, h.Profiles != nil
	}
	return nil, false
}

// writeSnapshot отвечает состоянием ленты. Ошибка загрузки отдается вместе с последними данными.
func writeSnapshot[T any](c *gin.Context, snap services.Snapshot[T], err error) {
	switch {
	case err == nil, errors.Is(err, services.ErrCacheWrite):
		c.JSON(http.StatusOK, snap)
	case errors.Is(err, services.ErrFeedClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed is closed"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load feed", "feed": snap})
	}
}

// writeCachedSnapshot - то же, что writeSnapshot, но с ETag и 304 для неизменившейся ленты
func writeCachedSnapshot[T any](c *gin.Context, snap services.Snapshot[T], err error) {
	if err != nil && !errors.Is(err, services.ErrCacheWrite) {
		writeSnapshot(c, snap, err)
		return
	}

	body, marshalErr := json.Marshal(snap)
	if marshalErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode feed"})
		return
	}
	etag := snapshotETag(body)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func snapshotETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
