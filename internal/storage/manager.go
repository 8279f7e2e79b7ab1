package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/metrics"
	"github.com/LJTian/HotFeed/internal/model"
)

const (
	PreferencesKey = "user_preferences"
	CacheKeyPrefix = "news_cache"

	DefaultCacheDuration = 5 * time.Minute
)

// Manager 偏好设置与分类缓存。所有方法都不向调用方返回错误：
// 内部失败只记日志，读操作退化为“无缓存”。
type Manager struct {
	// prefMu 串行化偏好的读改写；WithClock 的副本共用同一把锁
	prefMu *sync.Mutex

	kv            KV
	cacheDuration time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewManager cacheDuration <= 0 时使用 5 分钟
func NewManager(kv KV, cacheDuration time.Duration, logger *slog.Logger) *Manager {
	if cacheDuration <= 0 {
		cacheDuration = DefaultCacheDuration
	}
	return &Manager{
		prefMu:        &sync.Mutex{},
		kv:            kv,
		cacheDuration: cacheDuration,
		now:           time.Now,
		logger:        logging.OrDefault(logger).With("component", "storage"),
	}
}

// WithClock 替换时钟，测试 TTL 边界用
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// CacheDuration 缓存有效期
func (m *Manager) CacheDuration() time.Duration {
	return m.cacheDuration
}

func cacheKey(categoryID string) string {
	return CacheKeyPrefix + "_" + categoryID
}

// ---------- 偏好设置 ----------

// SavePreferences 序列化后写入固定 key
func (m *Manager) SavePreferences(prefs model.UserPreferences) {
	m.prefMu.Lock()
	defer m.prefMu.Unlock()
	m.savePreferences(prefs)
}

func (m *Manager) savePreferences(prefs model.UserPreferences) {
	if prefs.FollowedCategories == nil {
		prefs.FollowedCategories = []string{}
	}
	bs, err := json.Marshal(prefs)
	if err != nil {
		m.logger.Error("failed to save preferences", "error", err)
		return
	}
	if err := m.kv.Set(PreferencesKey, string(bs)); err != nil {
		m.logger.Error("failed to save preferences", "error", err)
	}
}

// LoadPreferences 不存在或内容损坏时返回 nil
func (m *Manager) LoadPreferences() *model.UserPreferences {
	raw, err := m.kv.Get(PreferencesKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("failed to load preferences", "error", err)
		}
		return nil
	}
	var prefs model.UserPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		m.logger.Error("failed to load preferences", "error", err)
		return nil
	}
	return &prefs
}

// FollowedCategories 当前关注列表（按关注顺序）
func (m *Manager) FollowedCategories() []string {
	if p := m.LoadPreferences(); p != nil && p.FollowedCategories != nil {
		return p.FollowedCategories
	}
	return []string{}
}

// FollowCategory 追加关注，已关注则不变；返回更新后的列表
func (m *Manager) FollowCategory(categoryID string) []string {
	m.prefMu.Lock()
	defer m.prefMu.Unlock()

	prefs, writable := m.loadForUpdate()
	if slices.Contains(prefs.FollowedCategories, categoryID) {
		return prefs.FollowedCategories
	}
	prefs.FollowedCategories = append(prefs.FollowedCategories, categoryID)
	if writable {
		m.savePreferences(prefs)
	}
	return prefs.FollowedCategories
}

// UnfollowCategory 取消关注；返回更新后的列表
func (m *Manager) UnfollowCategory(categoryID string) []string {
	m.prefMu.Lock()
	defer m.prefMu.Unlock()

	prefs, writable := m.loadForUpdate()
	prefs.FollowedCategories = slices.DeleteFunc(prefs.FollowedCategories, func(id string) bool {
		return id == categoryID
	})
	if writable {
		m.savePreferences(prefs)
	}
	return prefs.FollowedCategories
}

// IsFollowing 是否已关注
func (m *Manager) IsFollowing(categoryID string) bool {
	return slices.Contains(m.FollowedCategories(), categoryID)
}

// loadForUpdate 后端读取出错时第二个返回值为 false，此时不能回写
func (m *Manager) loadForUpdate() (model.UserPreferences, bool) {
	empty := model.UserPreferences{FollowedCategories: []string{}}

	raw, err := m.kv.Get(PreferencesKey)
	if errors.Is(err, ErrNotFound) {
		return empty, true
	}
	if err != nil {
		m.logger.Error("failed to load preferences", "error", err)
		return empty, false
	}

	var prefs model.UserPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		// 内容损坏时允许覆盖
		m.logger.Error("failed to load preferences", "error", err)
		return empty, true
	}
	if prefs.FollowedCategories == nil {
		prefs.FollowedCategories = []string{}
	}
	return prefs, true
}

// ---------- 新闻缓存 ----------

// CacheNews 以当前时间包装后写入分类缓存
func (m *Manager) CacheNews(categoryID string, items []model.NewsItem) {
	entry := model.CachedEntry[[]model.NewsItem]{
		Data:      items,
		Timestamp: m.now().UnixMilli(),
	}
	bs, err := json.Marshal(entry)
	if err != nil {
		m.logger.Error("failed to cache news", "category", categoryID, "error", err)
		return
	}
	if err := m.kv.Set(cacheKey(categoryID), string(bs)); err != nil {
		m.logger.Error("failed to cache news", "category", categoryID, "error", err)
	}
}

// GetCachedNews 未命中、过期或读取失败时返回 nil；过期条目会被顺带删除
func (m *Manager) GetCachedNews(categoryID string) []model.NewsItem {
	raw, err := m.kv.Get(cacheKey(categoryID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("failed to get cached news", "category", categoryID, "error", err)
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}

	var entry model.CachedEntry[[]model.NewsItem]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		m.logger.Error("failed to get cached news", "category", categoryID, "error", err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}

	if !m.IsCacheValid(entry.Timestamp) {
		m.ClearCache(categoryID)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry.Data
}

// IsCacheValid now - timestamp < CacheDuration
func (m *Manager) IsCacheValid(timestamp int64) bool {
	diff := m.now().UnixMilli() - timestamp
	return diff < m.cacheDuration.Milliseconds()
}

// ClearCache 删除单个分类缓存
func (m *Manager) ClearCache(categoryID string) {
	if err := m.kv.Delete(cacheKey(categoryID)); err != nil {
		m.logger.Error("failed to clear cache", "category", categoryID, "error", err)
	}
}

// ClearAllCache 只删除缓存命名空间，保留偏好设置
func (m *Manager) ClearAllCache() {
	keys, err := m.kv.Keys(CacheKeyPrefix)
	if err != nil {
		m.logger.Error("failed to clear all cache", "error", err)
		return
	}
	for _, k := range keys {
		if err := m.kv.Delete(k); err != nil {
			m.logger.Error("failed to clear all cache", "key", k, "error", err)
		}
	}
}

// ClearAll 清空全部数据，包括偏好设置
func (m *Manager) ClearAll() {
	if err := m.kv.Clear(); err != nil {
		m.logger.Error("failed to clear all data", "error", err)
	}
}

// StorageSize key 与 value 的字节数之和
func (m *Manager) StorageSize() int {
	keys, err := m.kv.Keys("")
	if err != nil {
		m.logger.Error("failed to get storage size", "error", err)
		return 0
	}
	total := 0
	for _, k := range keys {
		v, err := m.kv.Get(k)
		if err != nil {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}
