package services

import (
	"context"
	"encoding/json"
	"fmt"

	"socialfeed/logger"

	"go.uber.org/zap"
)

// FeedEvent - событие перехода ленты в новое состояние
type FeedEvent struct {
	Feed    string `json:"feed"`
	State   string `json:"state"`
	Total   int    `json:"total"`
	Visible int    `json:"visible"`
	Error   string `json:"error,omitempty"`
	At      int64  `json:"at"`
}

type EventPublisher interface {
	PublishFeedEvent(ctx context.Context, event FeedEvent) error
}

// DirectPublisher доставляет события без брокера: сразу в WebSocket и уведомления
type DirectPublisher struct {
	WS            *WSConnManager
	Notifications *NotificationService
}

func (p *DirectPublisher) PublishFeedEvent(ctx context.Context, event FeedEvent) error {
	return deliverFeedEvent(ctx, p.WS, p.Notifications, event)
}

// FallbackPublisher пробует основной publisher и при ошибке отдает событие запасному
type FallbackPublisher struct {
	Primary  EventPublisher
	Fallback EventPublisher
}

func (p *FallbackPublisher) PublishFeedEvent(ctx context.Context, event FeedEvent) error {
	err := p.Primary.PublishFeedEvent(ctx, event)
	if err == nil {
		return nil
	}
	logger.Log.Debug("primary publisher failed, using fallback", zap.String("feed", event.Feed), zap.Error(err))
	return p.Fallback.PublishFeedEvent(ctx, event)
}

func deliverFeedEvent(ctx context.Context, ws *WSConnManager, notifications *NotificationService, event FeedEvent) error {
	if ws != nil {
		pushData, err := json.Marshal(struct {
			Event string `json:"event"`
			FeedEvent
		}{Event: "feed_state", FeedEvent: event})
		if err != nil {
			return fmt.Errorf("failed to marshal push message: %w", err)
		}
		ws.Send(event.Feed, pushData)
	}

	if notifications != nil {
		if message := notificationMessage(event); message != "" {
			if _, err := notifications.Add(ctx, message); err != nil {
				return err
			}
		}
	}
	return nil
}

func notificationMessage(event FeedEvent) string {
	switch event.State {
	case StateReady.String():
		if event.Error != "" {
			return fmt.Sprintf("Feed %s refreshed (%d items), but was not cached", event.Feed, event.Total)
		}
		return fmt.Sprintf("Feed %s refreshed: %d items", event.Feed, event.Total)
	case StateFailed.String():
		return fmt.Sprintf("Failed to refresh %s. Pull to retry.", event.Feed)
	}
	return ""
}
