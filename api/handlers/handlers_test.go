package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialfeed/api/handlers"
	"socialfeed/api/routes"
	"socialfeed/models"
	"socialfeed/services"
	"socialfeed/services/upstreamtest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	router   *gin.Engine
	upstream *upstreamtest.Server
	handlers *handlers.Handlers
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users, posts, comments := upstreamtest.Fixture(21, 12, 35, 80)
	upstream := upstreamtest.New(users, posts, comments)
	t.Cleanup(upstream.Close)

	kv := services.NewMemoryKV()
	notifications := services.NewNotificationService(kv, nil)
	ws := services.NewWSConnManager()
	opts := services.FeedOptions{
		WindowSize: 10,
		Publisher:  &services.DirectPublisher{WS: ws, Notifications: notifications},
	}

	source := services.NewHTTPSource(upstream.URL, time.Second)
	fetcher := services.NewFetcher(source, 30, 0)
	cache := services.NewCacheStore(kv, "cached:", 10*time.Minute, nil)
	postFeed := services.NewPostFeed(fetcher, cache, opts)
	profileFeed := services.NewProfileFeed(fetcher, cache, opts)
	t.Cleanup(postFeed.Close)
	t.Cleanup(profileFeed.Close)

	h := &handlers.Handlers{
		Posts:         postFeed,
		Profiles:      profileFeed,
		Users:         source,
		Notifications: notifications,
		WS:            ws,
	}
	router := gin.New()
	routes.PublicApi(router, h)
	routes.AdminApi(router, h)
	return &testApp{router: router, upstream: upstream, handlers: h}
}

func (a *testApp) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type feedResponse struct {
	State     string                    `json:"state"`
	Items     []models.DenormalizedPost `json:"items"`
	Total     int                       `json:"total"`
	HasMore   bool                      `json:"hasMore"`
	FromCache bool                      `json:"fromCache"`
}

func TestGetFeedWithETag(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/v1/feed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var resp feedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ready", resp.State)
	require.Len(t, resp.Items, 10)
	require.Equal(t, 35, resp.Total)
	require.True(t, resp.HasMore)

	w = app.do(http.MethodGet, "/api/v1/feed", "", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Equal(t, 2, app.upstream.Requests(services.CollectionPosts), "fresh feed is not refetched")

	w = app.do(http.MethodPost, "/api/v1/feed/more", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 20)

	w = app.do(http.MethodGet, "/api/v1/feed", "", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestLikePost(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/feed", "", nil).Code)

	post, ok := app.handlers.Posts.Post(1)
	require.True(t, ok)

	w := app.do(http.MethodPost, "/api/v1/posts/1/like", `{"delta":1}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var liked struct {
		ID    int64 `json:"id"`
		Likes int64 `json:"likes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &liked))
	require.Equal(t, int64(1), liked.ID)
	require.Equal(t, post.Reactions.Likes+1, liked.Likes)

	require.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/api/v1/posts/1/like", `{"delta":5}`, nil).Code)
	require.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/api/v1/posts/1/like", `{}`, nil).Code)
	require.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/api/v1/posts/abc/like", `{"delta":1}`, nil).Code)
	require.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/v1/posts/9999/like", `{"delta":-1}`, nil).Code)

	w = app.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.DenormalizedPost
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, post.Reactions.Likes+1, got.Reactions.Likes)
	require.NotNil(t, got.Comments)

	require.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/v1/posts/9999", "", nil).Code)
}

func TestFeedUpstreamDown(t *testing.T) {
	app := newTestApp(t)
	app.upstream.FailCollection(services.CollectionPosts, 0)

	w := app.do(http.MethodGet, "/api/v1/feed", "", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		Error string       `json:"error"`
		Feed  feedResponse `json:"feed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "Failed to load feed", resp.Error)
	require.Equal(t, "failed", resp.Feed.State)

	app.upstream.Heal()
	w = app.do(http.MethodPost, "/api/v1/feed/refresh", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshKeepsDataWhenUpstreamFails(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/feed", "", nil).Code)

	app.upstream.FailCollection(services.CollectionComments, 0)
	w := app.do(http.MethodPost, "/api/v1/feed/refresh", "", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		Feed feedResponse `json:"feed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "failed", resp.Feed.State)
	require.Len(t, resp.Feed.Items, 10)
}

func TestNotificationsAfterRefresh(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/v1/feed/refresh", "", nil).Code)

	w := app.do(http.MethodGet, "/api/v1/notifications", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	require.Equal(t, "Feed posts refreshed: 35 items", resp.Notifications[0].Message)

	require.Equal(t, http.StatusOK, app.do(http.MethodDelete, "/api/v1/notifications", "", nil).Code)
	w = app.do(http.MethodGet, "/api/v1/notifications", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Notifications)
}

func TestProfilesSearchAndUser(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/v1/profiles", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []models.User `json:"items"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 10)
	require.Equal(t, 12, resp.Total)

	first := resp.Items[0]
	w = app.do(http.MethodGet, "/api/v1/profiles?q="+first.Username, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Items)
	require.Equal(t, first.ID, resp.Items[0].ID)

	// 12 за пределами видимого окна, но лента загружена целиком
	w = app.do(http.MethodGet, "/api/v1/users/12", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, int64(12), user.ID)
	require.False(t, user.IsPlaceholder())
}

func TestGetUserFallback(t *testing.T) {
	app := newTestApp(t)
	app.upstream.FailCollection(services.CollectionUsers, 0)

	w := app.do(http.MethodGet, "/api/v1/users/77", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.Equal(t, int64(77), user.ID)
	require.Equal(t, "Unknown", user.Username)
	require.Equal(t, models.DefaultAvatar, user.Image)

	require.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/v1/users/x", "", nil).Code)
}

func TestClearFeedCacheKeepsMemoryFeed(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/v1/feed", "", nil).Code)
	require.Equal(t, http.StatusOK, app.do(http.MethodDelete, "/api/v1/feed/cache", "", nil).Code)

	w := app.do(http.MethodGet, "/api/v1/feed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, app.upstream.Requests(services.CollectionPosts), "in-memory feed is still fresh")
}

func TestAdminWithoutQueue(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/v1/admin/feed/profiles/rebuild", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, app.upstream.Requests(services.CollectionUsers))

	require.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/v1/admin/feed/stories/rebuild", "", nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, app.do(http.MethodGet, "/api/v1/admin/queue/stats", "", nil).Code)
	require.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/v1/ws/feed/stories", "", nil).Code)
}
