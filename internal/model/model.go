package model

import "strconv"

// NewsItem 所有上游数据归一化之后的统一结构
type NewsItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category"`
	// 毫秒时间戳；上游缺失时取当前时间
	Timestamp   int64  `json:"timestamp"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	// 热度：上游可能是数字也可能是字符串（如“12.3万”），各分类之间不可比较
	Hot   any    `json:"hot,omitempty"`
	Index int    `json:"index,omitempty"`
	Image string `json:"image,omitempty"`
}

// HotValue 返回数值型热度，非数字一律视为 0
func (n NewsItem) HotValue() float64 {
	switch v := n.Hot.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	default:
		return 0
	}
}

// HotString 便于日志与 CLI 展示
func (n NewsItem) HotString() string {
	switch v := n.Hot.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return strconv.FormatFloat(n.HotValue(), 'f', -1, 64)
	}
}

// CategoryKind 区分上游类型：JSON 接口或 HTML 榜单页
type CategoryKind string

const (
	KindAPI  CategoryKind = "api"
	KindHTML CategoryKind = "html"
)

// ScrapeSpec 描述 HTML 榜单页的抓取方式（仅 KindHTML 使用）
type ScrapeSpec struct {
	PageURL        string   `json:"pageUrl"`
	AllowedDomains []string `json:"allowedDomains,omitempty"`
	ItemSelector   string   `json:"itemSelector"`
	TitleSelector  string   `json:"titleSelector"`
	LinkSelector   string   `json:"linkSelector,omitempty"`
	LinkPrefix     string   `json:"linkPrefix,omitempty"`
	HotSelector    string   `json:"hotSelector,omitempty"`
	DescSelector   string   `json:"descSelector,omitempty"`
}

// Category 一个上游数据源；注册表在启动时构建，运行期不可变
type Category struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Icon     string       `json:"icon"`
	Endpoint string       `json:"endpoint"`
	Kind     CategoryKind `json:"kind,omitempty"`
	Scrape   *ScrapeSpec  `json:"scrape,omitempty"`
}

// IsHTML 是否为 HTML 榜单类分类
func (c Category) IsHTML() bool {
	return c.Kind == KindHTML && c.Scrape != nil
}

// UserPreferences 用户偏好；FollowedCategories 的顺序即优先级
type UserPreferences struct {
	FollowedCategories []string `json:"followedCategories"`
	Theme              string   `json:"theme,omitempty"`
}

// CachedEntry 按分类写入缓存的包装结构
type CachedEntry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}
