package models

import (
	"encoding/json"
	"time"
)

// CacheEntry - сериализованные данные ленты и время их записи (мс с начала эпохи)
type CacheEntry struct {
	Data        json.RawMessage `json:"data"`
	LastUpdated int64           `json:"lastUpdated"`
}

func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.LastUpdated))
}

// KVEntry - строка key-value хранилища в SQL
type KVEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:255" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
