package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"socialfeed/logger"

	"go.uber.org/zap"
)

// FeedState - состояние ленты
type FeedState int

const (
	StateIdle FeedState = iota
	StateLoading
	StateReady
	StateRefreshing
	StateLoadingMore
	StateFailed
)

var feedStateNames = map[FeedState]string{
	StateIdle:        "idle",
	StateLoading:     "loading",
	StateReady:       "ready",
	StateRefreshing:  "refreshing",
	StateLoadingMore: "loading_more",
	StateFailed:      "failed",
}

func (s FeedState) String() string {
	if name, ok := feedStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s FeedState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FeedState) UnmarshalText(text []byte) error {
	for state, name := range feedStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown feed state %q", text)
}

// Loader загружает ленту целиком из апстрима
type Loader[T any] func(ctx context.Context) ([]T, error)

// Snapshot - то, что видит клиент: окно ленты и флаги загрузки
type Snapshot[T any] struct {
	Feed        string    `json:"feed"`
	State       FeedState `json:"state"`
	Items       []T       `json:"items"`
	Total       int       `json:"total"`
	HasMore     bool      `json:"hasMore"`
	Loading     bool      `json:"loading"`
	Refreshing  bool      `json:"refreshing"`
	LoadingMore bool      `json:"loadingMore"`
	FromCache   bool      `json:"fromCache"`
	LastUpdated int64     `json:"lastUpdated,omitempty"`
	Error       string    `json:"error,omitempty"`
	Warning     string    `json:"warning,omitempty"`
}

type FeedOptions struct {
	WindowSize int
	Publisher  EventPublisher
}

// Feed - конечный автомат ленты: загрузка из кеша или апстрима, обновление,
// клиентская пагинация уже загруженных данных. Переходы выполняются строго по одному.
type Feed[T any] struct {
	name       string
	load       Loader[T]
	cache      *CacheStore
	windowSize int
	publisher  EventPublisher

	// opMu держится на все время перехода
	opMu sync.Mutex

	mu          sync.RWMutex
	state       FeedState
	items       []T
	visible     int
	fromCache   bool
	lastUpdated int64
	lastErr     error
	warning     error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewFeed[T any](name string, cache *CacheStore, load Loader[T], opts FeedOptions) *Feed[T] {
	if opts.WindowSize <= 0 {
		opts.WindowSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed[T]{
		name:       name,
		load:       load,
		cache:      cache,
		windowSize: opts.WindowSize,
		publisher:  opts.Publisher,
		state:      StateIdle,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (f *Feed[T]) Name() string {
	return f.name
}

func (f *Feed[T]) State() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Load - первичная загрузка: из свежего кеша, иначе из апстрима.
// Если лента уже загружена и не устарела, ничего не делает.
func (f *Feed[T]) Load(ctx context.Context) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	if f.ctx.Err() != nil {
		return ErrFeedClosed
	}

	f.mu.RLock()
	state, hasData, lastUpdated := f.state, f.items != nil, f.lastUpdated
	f.mu.RUnlock()

	if state == StateReady && f.isFresh(lastUpdated) {
		return nil
	}

	if entry, ok := f.cache.Lookup(ctx, f.name); ok {
		var items []T
		err := json.Unmarshal(entry.Data, &items)
		if err == nil {
			f.install(items, entry.LastUpdated, true, nil)
			logger.Log.Debug("feed served from cache", zap.String("feed", f.name), zap.Int("items", len(items)))
			return nil
		}
		logger.Log.Warn("cached feed has unexpected shape", zap.String("feed", f.name), zap.Error(err))
	}

	if hasData {
		return f.fetch(ctx, StateRefreshing)
	}
	return f.fetch(ctx, StateLoading)
}

// Refresh сбрасывает кеш и загружает ленту заново. При ошибке старые данные остаются.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	if f.ctx.Err() != nil {
		return ErrFeedClosed
	}

	if err := f.cache.Invalidate(ctx, f.name); err != nil {
		logger.Log.Warn("cache invalidate failed", zap.String("feed", f.name), zap.Error(err))
	}

	f.mu.RLock()
	hasData := f.items != nil
	f.mu.RUnlock()

	if hasData {
		return f.fetch(ctx, StateRefreshing)
	}
	return f.fetch(ctx, StateLoading)
}

// LoadMore добавляет к видимому окну следующую порцию. Сеть не используется.
// Возвращает false, если окно уже покрывает всю ленту.
func (f *Feed[T]) LoadMore() (bool, error) {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	if f.ctx.Err() != nil {
		return false, ErrFeedClosed
	}

	f.mu.Lock()
	if f.visible >= len(f.items) {
		f.mu.Unlock()
		return false, nil
	}
	prev := f.state
	f.setStateLocked(StateLoadingMore)
	f.visible = min(f.visible+f.windowSize, len(f.items))
	total, visible := len(f.items), f.visible
	f.mu.Unlock()

	// подписчики видят loading_more, пока событие доставляется
	f.publish(context.Background(), FeedEvent{Feed: f.name, State: StateLoadingMore.String(), Total: total, Visible: visible})

	f.mu.Lock()
	f.setStateLocked(prev)
	f.mu.Unlock()
	return true, nil
}

// Update применяет mutate к первому элементу, для которого match вернул true.
// Меняются только данные в памяти, кеш не трогается.
func (f *Feed[T]) Update(match func(T) bool, mutate func(*T)) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if match(f.items[i]) {
			mutate(&f.items[i])
			return f.items[i], true
		}
	}
	var zero T
	return zero, false
}

func (f *Feed[T]) Find(match func(T) bool) (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, item := range f.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// ClearCache удаляет запись кеша. Лента в памяти остается.
func (f *Feed[T]) ClearCache(ctx context.Context) error {
	f.opMu.Lock()
	defer f.opMu.Unlock()
	if f.ctx.Err() != nil {
		return ErrFeedClosed
	}
	return f.cache.Invalidate(ctx, f.name)
}

func (f *Feed[T]) Snapshot() Snapshot[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items := make([]T, f.visible)
	copy(items, f.items[:f.visible])

	snap := Snapshot[T]{
		Feed:        f.name,
		State:       f.state,
		Items:       items,
		Total:       len(f.items),
		HasMore:     f.visible < len(f.items),
		Loading:     f.state == StateLoading,
		Refreshing:  f.state == StateRefreshing,
		LoadingMore: f.state == StateLoadingMore,
		FromCache:   f.fromCache,
		LastUpdated: f.lastUpdated,
	}
	if f.lastErr != nil {
		snap.Error = f.lastErr.Error()
	}
	if f.warning != nil {
		snap.Warning = f.warning.Error()
	}
	return snap
}

// Close останавливает ленту: текущая загрузка отменяется, ее результат отбрасывается
func (f *Feed[T]) Close() {
	f.cancel()
}

func (f *Feed[T]) isFresh(lastUpdated int64) bool {
	return f.cache.now().UnixMilli()-lastUpdated < f.cache.TTL().Milliseconds()
}

func (f *Feed[T]) fetch(ctx context.Context, transitional FeedState) error {
	f.mu.Lock()
	f.setStateLocked(transitional)
	f.mu.Unlock()
	f.publish(ctx, FeedEvent{Feed: f.name, State: transitional.String()})

	// Загрузка общая для всех клиентов ленты: уход вызывающего ее не прерывает,
	// остановить ее может только Close. Дедлайн страницы задает источник.
	shared := context.WithoutCancel(ctx)
	fetchCtx, cancel := context.WithCancel(shared)
	defer cancel()
	stop := context.AfterFunc(f.ctx, cancel)
	defer stop()

	items, err := f.load(fetchCtx)
	if f.ctx.Err() != nil {
		return ErrFeedClosed
	}
	if err != nil {
		f.mu.Lock()
		f.lastErr = err
		f.setStateLocked(StateFailed)
		total := len(f.items)
		f.mu.Unlock()

		logger.Log.Error("feed fetch failed", zap.String("feed", f.name), zap.Error(err))
		f.publish(ctx, FeedEvent{Feed: f.name, State: StateFailed.String(), Total: total, Error: err.Error()})
		return err
	}
	if items == nil {
		items = []T{}
	}

	writeErr := f.cache.Write(shared, f.name, items)
	if writeErr != nil {
		logger.Log.Warn("feed cache write failed", zap.String("feed", f.name), zap.Error(writeErr))
	}
	f.install(items, f.cache.now().UnixMilli(), false, writeErr)

	snap := f.Snapshot()
	f.publish(ctx, FeedEvent{Feed: f.name, State: StateReady.String(), Total: snap.Total, Visible: len(snap.Items), Error: snap.Warning})
	return writeErr
}

func (f *Feed[T]) install(items []T, lastUpdated int64, fromCache bool, warning error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
	f.visible = min(f.windowSize, len(items))
	f.lastUpdated = lastUpdated
	f.fromCache = fromCache
	f.lastErr = nil
	f.warning = warning
	f.setStateLocked(StateReady)
}

func (f *Feed[T]) setStateLocked(state FeedState) {
	f.state = state
	feedTransitionsTotal.WithLabelValues(f.name, state.String()).Inc()
}

func (f *Feed[T]) publish(ctx context.Context, event FeedEvent) {
	if f.publisher == nil {
		return
	}
	event.At = f.cache.now().UnixMilli()
	if err := f.publisher.PublishFeedEvent(context.WithoutCancel(ctx), event); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Warn("feed event publish failed", zap.String("feed", f.name), zap.Error(err))
	}
}
