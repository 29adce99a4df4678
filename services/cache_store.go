package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"socialfeed/logger"
	"socialfeed/models"

	"go.uber.org/zap"
)

const lastUpdatedSuffix = ":lastUpdated"

// CacheStore хранит ленты в KVStore: данные и отметка времени лежат под двумя ключами
// и всегда пишутся/удаляются вместе.
type CacheStore struct {
	kv     KVStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewCacheStore(kv KVStore, prefix string, ttl time.Duration, now func() time.Time) *CacheStore {
	if now == nil {
		now = time.Now
	}
	return &CacheStore{kv: kv, prefix: prefix, ttl: ttl, now: now}
}

func (c *CacheStore) TTL() time.Duration {
	return c.ttl
}

func (c *CacheStore) dataKey(key string) string {
	return c.prefix + key
}

func (c *CacheStore) timestampKey(key string) string {
	return c.prefix + key + lastUpdatedSuffix
}

// Read возвращает запись независимо от возраста. Ошибки хранилища и битые данные считаются промахом.
func (c *CacheStore) Read(ctx context.Context, key string) (*models.CacheEntry, bool) {
	dataKey, tsKey := c.dataKey(key), c.timestampKey(key)
	values, err := c.kv.MultiGet(ctx, dataKey, tsKey)
	if err != nil {
		logger.Log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		cacheLookupsTotal.WithLabelValues(key, "error").Inc()
		return nil, false
	}

	data, hasData := values[dataKey]
	ts, hasTS := values[tsKey]
	if !hasData || !hasTS {
		return nil, false
	}

	lastUpdated, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || !json.Valid([]byte(data)) {
		logger.Log.Warn("cache entry is corrupted", zap.String("key", key))
		cacheLookupsTotal.WithLabelValues(key, "error").Inc()
		return nil, false
	}

	return &models.CacheEntry{Data: json.RawMessage(data), LastUpdated: lastUpdated}, true
}

func (c *CacheStore) IsFresh(entry *models.CacheEntry) bool {
	return entry != nil && entry.Age(c.now()) < c.ttl
}

// Lookup возвращает только свежую запись
func (c *CacheStore) Lookup(ctx context.Context, key string) (*models.CacheEntry, bool) {
	entry, ok := c.Read(ctx, key)
	switch {
	case !ok:
		cacheLookupsTotal.WithLabelValues(key, "miss").Inc()
		return nil, false
	case !c.IsFresh(entry):
		cacheLookupsTotal.WithLabelValues(key, "stale").Inc()
		return nil, false
	}
	cacheLookupsTotal.WithLabelValues(key, "hit").Inc()
	return entry, true
}

// Write сериализует данные и ставит lastUpdated = now одной операцией
func (c *CacheStore) Write(ctx context.Context, key string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, key, err)
	}
	err = c.kv.MultiSet(ctx, map[string]string{
		c.dataKey(key):      string(payload),
		c.timestampKey(key): strconv.FormatInt(c.now().UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, key, err)
	}
	return nil
}

func (c *CacheStore) Invalidate(ctx context.Context, key string) error {
	return c.kv.MultiRemove(ctx, c.dataKey(key), c.timestampKey(key))
}
