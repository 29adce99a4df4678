package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialfeed/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	FEED_REFRESH_QUEUE = "feed_refresh_queue"
	QUEUE_WORKER_COUNT = 2
	QUEUE_POP_TIMEOUT  = 5 * time.Second
)

// FeedRefreshTask - задача перестроить ленту
type FeedRefreshTask struct {
	Feed       string `json:"feed"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// QueueService перестраивает ленты в фоне по задачам из Redis-списка
type QueueService struct {
	client *redis.Client
	queue  string

	mu    sync.RWMutex
	feeds map[string]Refresher
}

func NewQueueService(client *redis.Client, feeds ...Refresher) *QueueService {
	qs := &QueueService{
		client: client,
		queue:  FEED_REFRESH_QUEUE,
		feeds:  make(map[string]Refresher, len(feeds)),
	}
	for _, f := range feeds {
		qs.feeds[f.Name()] = f
	}
	return qs
}

func (qs *QueueService) Feed(name string) (Refresher, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	f, ok := qs.feeds[name]
	return f, ok
}

// EnqueueRefresh добавляет задачу обновления ленты в очередь
func (qs *QueueService) EnqueueRefresh(ctx context.Context, feed string) error {
	if _, ok := qs.Feed(feed); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	if qs.client == nil {
		return fmt.Errorf("redis not available")
	}

	taskData, err := json.Marshal(FeedRefreshTask{Feed: feed, EnqueuedAt: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := qs.client.RPush(ctx, qs.queue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	logger.Log.Info("enqueued feed refresh task", zap.String("feed", feed))
	return nil
}

// StartWorkers запускает воркеры обработки очереди
func (qs *QueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

func (qs *QueueService) worker(ctx context.Context, workerID int) {
	logger.Log.Info("feed refresh worker started", zap.Int("worker", workerID))
	for {
		if ctx.Err() != nil {
			logger.Log.Info("feed refresh worker stopping", zap.Int("worker", workerID))
			return
		}
		if _, err := qs.ProcessNext(ctx, QUEUE_POP_TIMEOUT); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			logger.Log.Warn("feed refresh task failed", zap.Int("worker", workerID), zap.Error(err))
			time.Sleep(time.Second)
		}
	}
}

// ProcessNext ждет одну задачу не дольше timeout и выполняет ее.
// Возвращает false, если очередь пуста.
func (qs *QueueService) ProcessNext(ctx context.Context, timeout time.Duration) (bool, error) {
	result, err := qs.client.BLPop(ctx, timeout, qs.queue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(result) < 2 {
		return false, nil
	}

	var task FeedRefreshTask
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return true, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	feed, ok := qs.Feed(task.Feed)
	if !ok {
		return true, fmt.Errorf("%w: %s", ErrUnknownFeed, task.Feed)
	}
	logger.Log.Info("processing feed refresh task", zap.String("feed", task.Feed))
	return true, feed.Refresh(ctx)
}

// Stats возвращает длину очереди
func (qs *QueueService) Stats(ctx context.Context) (int64, error) {
	if qs.client == nil {
		return 0, fmt.Errorf("redis not available")
	}
	return qs.client.LLen(ctx, qs.queue).Result()
}
