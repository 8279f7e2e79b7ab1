// Package normalizer 把各上游形态各异的 data 字段转换为统一的 NewsItem 列表。
//
// 每个分类 id 对应一个 Strategy，未注册的分类走 Generic 别名链映射。
// 任何输入都不会报错：无法识别的数据返回空列表。
package normalizer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/LJTian/HotFeed/internal/model"
)

// Strategy 一个上游形态的解析方式
type Strategy interface {
	Normalize(cat model.Category, data json.RawMessage) []model.NewsItem
}

// StrategyFunc 让普通函数满足 Strategy
type StrategyFunc func(cat model.Category, data json.RawMessage) []model.NewsItem

func (f StrategyFunc) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	return f(cat, data)
}

// Normalizer 分类 id -> Strategy 的注册表
type Normalizer struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	fallback   Strategy
}

// New 只带 Generic 兜底的空注册表；now 为 nil 时使用 time.Now
func New(now func() time.Time) *Normalizer {
	return &Normalizer{
		strategies: make(map[string]Strategy),
		fallback:   &Generic{Now: now},
	}
}

// NewDefault 注册了 60s API 各特殊分类的注册表
func NewDefault(now func() time.Time) *Normalizer {
	n := New(now)
	n.Register("60s", &Digest{Now: now})
	n.Register("ai-news", &NewsFeed{Now: now})
	n.Register("history", &EventList{Now: now})
	n.Register("bing-wallpaper", &SingleObject{Now: now})
	n.Register("maoyan-global", &Generic{Now: now, Row: maoyanGlobalRow})
	n.Register("maoyan-movie", &Generic{Now: now, Row: maoyanMovieRow})
	n.Register("maoyan-tv", &Generic{Now: now, Row: maoyanTVRow})
	n.Register("maoyan-drama", &Generic{Now: now, Row: maoyanDramaRow})
	return n
}

// Register 覆盖同 id 的已有策略
func (n *Normalizer) Register(categoryID string, s Strategy) {
	n.mu.Lock()
	n.strategies[categoryID] = s
	n.mu.Unlock()
}

// StrategyFor 未注册时返回 Generic
func (n *Normalizer) StrategyFor(categoryID string) Strategy {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if s, ok := n.strategies[categoryID]; ok {
		return s
	}
	return n.fallback
}

// Normalize 结果永远非 nil
func (n *Normalizer) Normalize(cat model.Category, data json.RawMessage) []model.NewsItem {
	items := n.StrategyFor(cat.ID).Normalize(cat, data)
	if items == nil {
		return []model.NewsItem{}
	}
	return items
}

func clock(now func() time.Time) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now().UnixMilli()
}

func sourceName(cat model.Category) string {
	if cat.Name != "" {
		return cat.Name
	}
	return cat.ID
}
