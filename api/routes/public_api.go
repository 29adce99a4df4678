package routes

import (
	"socialfeed/api/handlers"

	"github.com/gin-gonic/gin"
)

func PublicApi(router *gin.Engine, h *handlers.Handlers) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	{
		// Лента постов
		publicEndpoints.GET("feed", h.GetFeed)
		publicEndpoints.POST("feed/refresh", h.RefreshFeed)
		publicEndpoints.POST("feed/more", h.LoadMoreFeed)
		publicEndpoints.DELETE("feed/cache", h.ClearFeedCache)
		publicEndpoints.GET("posts/:post_id", h.GetPost)
		publicEndpoints.POST("posts/:post_id/like", h.LikePost)

		// Профили
		publicEndpoints.GET("profiles", h.GetProfiles)
		publicEndpoints.POST("profiles/refresh", h.RefreshProfiles)
		publicEndpoints.POST("profiles/more", h.LoadMoreProfiles)
		publicEndpoints.GET("users/:user_id", h.GetUser)

		publicEndpoints.GET("notifications", h.GetNotifications)
		publicEndpoints.DELETE("notifications", h.ClearNotifications)
		publicEndpoints.GET("ws/feed/:feed", h.WSFeedHandler)
	}
	return publicEndpoints
}

func AdminApi(router *gin.Engine, h *handlers.Handlers) *gin.RouterGroup {
	adminEndpoints := router.Group("/api/v1/admin/")
	{
		adminEndpoints.POST("feed/:feed/rebuild", h.RebuildFeed)
		adminEndpoints.GET("queue/stats", h.GetQueueStats)
	}
	return adminEndpoints
}
