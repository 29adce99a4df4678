package services

import (
	"fmt"

	"socialfeed/config"
	"socialfeed/db"
)

// NewKVStoreFromConfig выбирает хранилище кеша по cache.backend
func NewKVStoreFromConfig(cfg *config.ConfigSchema) (KVStore, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemoryKV(), nil
	case "redis":
		if RedisClient == nil {
			if err := InitRedis(cfg.Redis); err != nil {
				return nil, err
			}
		}
		return NewRedisKV(RedisClient, cfg.Cache.Retention), nil
	case "sql":
		if err := db.ConnectDB(cfg); err != nil {
			return nil, fmt.Errorf("failed to connect to the database: %w", err)
		}
		return NewSQLKV(db.ORM), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}
