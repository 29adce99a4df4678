package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"socialfeed/models"

	"github.com/google/uuid"
)

const (
	NotificationsKey = "notifications"
	MaxNotifications = 50
)

// NotificationService хранит список уведомлений одним JSON-массивом в KVStore, новые первыми
type NotificationService struct {
	kv  KVStore
	now func() time.Time
	mu  sync.Mutex
}

func NewNotificationService(kv KVStore, now func() time.Time) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{kv: kv, now: now}
}

func (s *NotificationService) Add(ctx context.Context, message string) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(ctx)
	if err != nil {
		return models.Notification{}, err
	}

	n := models.Notification{
		ID:      uuid.NewString(),
		Message: message,
		Time:    s.now().UnixMilli(),
	}
	list = append([]models.Notification{n}, list...)
	if len(list) > MaxNotifications {
		list = list[:MaxNotifications]
	}

	data, err := json.Marshal(list)
	if err != nil {
		return models.Notification{}, err
	}
	if err := s.kv.Set(ctx, NotificationsKey, string(data)); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

func (s *NotificationService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(ctx, NotificationsKey)
}

func (s *NotificationService) list(ctx context.Context) ([]models.Notification, error) {
	raw, err := s.kv.Get(ctx, NotificationsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.Notification{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []models.Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		// битый список не чиним, начинаем заново
		return []models.Notification{}, nil
	}
	return list, nil
}
