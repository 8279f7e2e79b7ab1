package category

import (
	"fmt"

	"github.com/LJTian/HotFeed/internal/model"
)

// Registry 分类注册表。构建后只读，可在多个 goroutine 间共享
type Registry struct {
	list []model.Category
	byID map[string]int
}

// NewRegistry 校验并构建注册表；ID 重复或缺少 endpoint 时返回错误
func NewRegistry(categories []model.Category) (*Registry, error) {
	r := &Registry{
		list: make([]model.Category, 0, len(categories)),
		byID: make(map[string]int, len(categories)),
	}
	for _, c := range categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category: empty id (name=%q)", c.Name)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("category: duplicate id %q", c.ID)
		}
		if c.Kind == "" {
			c.Kind = model.KindAPI
		}
		switch c.Kind {
		case model.KindAPI:
			if c.Endpoint == "" {
				return nil, fmt.Errorf("category %q: endpoint is required", c.ID)
			}
		case model.KindHTML:
			if c.Scrape == nil || c.Scrape.PageURL == "" || c.Scrape.ItemSelector == "" {
				return nil, fmt.Errorf("category %q: scrape spec is incomplete", c.ID)
			}
		default:
			return nil, fmt.Errorf("category %q: unknown kind %q", c.ID, c.Kind)
		}
		r.byID[c.ID] = len(r.list)
		r.list = append(r.list, c)
	}
	return r, nil
}

// MustRegistry 用于静态配置，出错直接 panic
func MustRegistry(categories []model.Category) *Registry {
	r, err := NewRegistry(categories)
	if err != nil {
		panic(err)
	}
	return r
}

// All 返回注册顺序的副本
func (r *Registry) All() []model.Category {
	out := make([]model.Category, len(r.list))
	copy(out, r.list)
	return out
}

// Get 按 ID 查找
func (r *Registry) Get(id string) (model.Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.Category{}, false
	}
	return r.list[i], true
}

// Has 是否存在该分类
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// DisplayName 返回分类展示名，未知分类回退为 ID
func (r *Registry) DisplayName(id string) string {
	if c, ok := r.Get(id); ok && c.Name != "" {
		return c.Name
	}
	return id
}

// Len 分类数量
func (r *Registry) Len() int {
	return len(r.list)
}
