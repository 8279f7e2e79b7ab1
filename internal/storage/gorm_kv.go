package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// KVEntry Postgres 中的键值表
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// GormKV 以 gorm 表实现 KV，便于多实例共享偏好与缓存
type GormKV struct {
	db *gorm.DB
}

// NewGormKV 自动迁移 kv_entries 表
func NewGormKV(db *gorm.DB) (*GormKV, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &GormKV{db: db}, nil
}

func (g *GormKV) silent() *gorm.DB {
	// 未命中属于正常情况，不需要 gorm 打印 record not found
	return g.db.Session(&gorm.Session{Logger: g.db.Logger.LogMode(logger.Silent)})
}

func (g *GormKV) Get(key string) (string, error) {
	var e KVEntry
	err := g.silent().Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

func (g *GormKV) Set(key, value string) error {
	e := KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (g *GormKV) Delete(key string) error {
	return g.db.Where("key = ?", key).Delete(&KVEntry{}).Error
}

func (g *GormKV) Keys(prefix string) ([]string, error) {
	var keys []string
	q := g.db.Model(&KVEntry{})
	if prefix != "" {
		q = q.Where("key LIKE ?", escapeLike(prefix)+"%")
	}
	if err := q.Order("key ASC").Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (g *GormKV) Clear() error {
	return g.db.Where("1 = 1").Delete(&KVEntry{}).Error
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
