package services

import (
	"context"
	"errors"
	"time"

	"socialfeed/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// SQLKV - KVStore поверх таблицы kv_entries. Чтение идет с реплик, запись в мастер.
type SQLKV struct {
	orm *gorm.DB
}

func NewSQLKV(orm *gorm.DB) *SQLKV {
	return &SQLKV{orm: orm}
}

func (s *SQLKV) readDB(ctx context.Context) *gorm.DB {
	return s.orm.WithContext(ctx).Clauses(dbresolver.Read)
}

func (s *SQLKV) writeDB(ctx context.Context) *gorm.DB {
	return s.orm.WithContext(ctx).Clauses(dbresolver.Write)
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := s.readDB(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	return upsertEntries(s.writeDB(ctx), []models.KVEntry{{Key: key, Value: value, UpdatedAt: time.Now()}})
}

func (s *SQLKV) Remove(ctx context.Context, key string) error {
	return s.writeDB(ctx).Where("entry_key = ?", key).Delete(&models.KVEntry{}).Error
}

func (s *SQLKV) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	var entries []models.KVEntry
	if err := s.readDB(ctx).Where("entry_key IN ?", keys).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (s *SQLKV) MultiSet(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	now := time.Now()
	entries := make([]models.KVEntry, 0, len(pairs))
	for k, v := range pairs {
		entries = append(entries, models.KVEntry{Key: k, Value: v, UpdatedAt: now})
	}
	return s.writeDB(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertEntries(tx, entries)
	})
}

func (s *SQLKV) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.writeDB(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("entry_key IN ?", keys).Delete(&models.KVEntry{}).Error
	})
}

func upsertEntries(tx *gorm.DB, entries []models.KVEntry) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entries).Error
}
