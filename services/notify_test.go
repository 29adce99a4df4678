package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestNotificationsNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc := NewNotificationService(NewMemoryKV(), clock.Now)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	for i := 0; i < MaxNotifications+5; i++ {
		n, err := svc.Add(ctx, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		require.NotEmpty(t, n.ID)
		clock.Advance(time.Second)
	}

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, MaxNotifications)
	require.Equal(t, fmt.Sprintf("message %d", MaxNotifications+4), list[0].Message)
	require.Greater(t, list[0].Time, list[1].Time)
	require.NotEqual(t, list[0].ID, list[1].ID)

	require.NoError(t, svc.Clear(ctx))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestNotificationsCorruptListStartsOver(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, NotificationsKey, "not json"))

	svc := NewNotificationService(kv, nil)
	_, err := svc.Add(ctx, "hello")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestNotificationMessages(t *testing.T) {
	cases := []struct {
		event FeedEvent
		want  string
	}{
		{FeedEvent{Feed: "posts", State: "loading"}, ""},
		{FeedEvent{Feed: "posts", State: "refreshing"}, ""},
		{FeedEvent{Feed: "posts", State: "ready", Total: 30}, "Feed posts refreshed: 30 items"},
		{FeedEvent{Feed: "posts", State: "ready", Total: 30, Error: "cache down"}, "Feed posts refreshed (30 items), but was not cached"},
		{FeedEvent{Feed: "profiles", State: "failed"}, "Failed to refresh profiles. Pull to retry."},
	}
	for _, tc := range cases {
		t.Run(tc.event.State, func(t *testing.T) {
			require.Equal(t, tc.want, notificationMessage(tc.event))
		})
	}
}

func TestDirectPublisherPushesAndNotifies(t *testing.T) {
	ctx := context.Background()
	ws := NewWSConnManager()
	notifications := NewNotificationService(NewMemoryKV(), nil)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.Add(FeedPosts, conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return ws.Count(FeedPosts) == 1 }, time.Second, 10*time.Millisecond)

	pub := &DirectPublisher{WS: ws, Notifications: notifications}
	require.NoError(t, pub.PublishFeedEvent(ctx, FeedEvent{Feed: FeedPosts, State: "loading"}))
	require.NoError(t, pub.PublishFeedEvent(ctx, FeedEvent{Feed: FeedPosts, State: "ready", Total: 3, Visible: 3}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	for _, state := range []string{"loading", "ready"} {
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		var push struct {
			Event string `json:"event"`
			FeedEvent
		}
		require.NoError(t, json.Unmarshal(data, &push))
		require.Equal(t, "feed_state", push.Event)
		require.Equal(t, state, push.State)
	}

	list, err := notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Feed posts refreshed: 3 items", list[0].Message)
}

type failingPublisher struct{}

func (failingPublisher) PublishFeedEvent(context.Context, FeedEvent) error {
	return fmt.Errorf("broker unavailable")
}

func TestFallbackPublisher(t *testing.T) {
	fallback := &recordingPublisher{}
	pub := &FallbackPublisher{Primary: failingPublisher{}, Fallback: fallback}
	require.NoError(t, pub.PublishFeedEvent(context.Background(), FeedEvent{Feed: FeedPosts, State: "failed"}))
	require.Equal(t, []string{"failed"}, fallback.states())

	primary := &recordingPublisher{}
	pub = &FallbackPublisher{Primary: primary, Fallback: fallback}
	require.NoError(t, pub.PublishFeedEvent(context.Background(), FeedEvent{Feed: FeedPosts, State: "ready"}))
	require.Equal(t, []string{"ready"}, primary.states())
	require.Len(t, fallback.states(), 1)
}

func TestFeedRoutingKey(t *testing.T) {
	require.Equal(t, "feed.posts.ready", FeedRoutingKey(FeedEvent{Feed: "posts", State: "ready"}))
}

func dialFeedSubscriber(t *testing.T, ws *WSConnManager) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.Add(FeedPosts, conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWSSendDropsStalledSubscriber(t *testing.T) {
	ws := NewWSConnManager()
	ws.writeTimeout = 50 * time.Millisecond
	_ = dialFeedSubscriber(t, ws) // клиент ничего не читает
	require.Eventually(t, func() bool { return ws.Count(FeedPosts) == 1 }, time.Second, 10*time.Millisecond)

	payload := make([]byte, 1<<20)
	start := time.Now()
	for i := 0; i < 200 && ws.Count(FeedPosts) > 0; i++ {
		ws.Send(FeedPosts, payload)
	}
	require.Zero(t, ws.Count(FeedPosts))
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestWSSendKeepsHealthySubscribers(t *testing.T) {
	ws := NewWSConnManager()
	client := dialFeedSubscriber(t, ws)
	require.Eventually(t, func() bool { return ws.Count(FeedPosts) == 1 }, time.Second, 10*time.Millisecond)

	ws.Send(FeedPosts, []byte(`{"event":"ping"}`))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"ping"}`, string(data))
	require.Equal(t, 1, ws.Count(FeedPosts))
}
