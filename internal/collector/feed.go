package collector

import (
	"context"
	"log/slog"

	"github.com/LJTian/HotFeed/internal/category"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/processor"
	"github.com/LJTian/HotFeed/internal/storage"
)

// Feed 调用方视角的加载流程：先查缓存，未命中再拉取并回写，最后去重与按关注排序
type Feed struct {
	svc             *Service
	store           *storage.Manager
	defaultCategory string
	logger          *slog.Logger
}

func NewFeed(svc *Service, store *storage.Manager, defaultCategory string, logger *slog.Logger) *Feed {
	if defaultCategory == "" {
		defaultCategory = category.DefaultCategoryID
	}
	return &Feed{
		svc:             svc,
		store:           store,
		defaultCategory: defaultCategory,
		logger:          logging.OrDefault(logger).With("component", "feed"),
	}
}

// Service 底层拉取服务
func (f *Feed) Service() *Service {
	return f.svc
}

// Store 偏好与缓存
func (f *Feed) Store() *storage.Manager {
	return f.store
}

// DefaultCategory 未关注任何分类时使用的分类
func (f *Feed) DefaultCategory() string {
	return f.defaultCategory
}

// Load 单个分类；缓存命中且非空时直接返回缓存
func (f *Feed) Load(ctx context.Context, categoryID string) ([]model.NewsItem, error) {
	if cached := f.store.GetCachedNews(categoryID); len(cached) > 0 {
		f.logger.Debug("cache hit", "category", categoryID, "items", len(cached))
		return cached, nil
	}
	return f.Refresh(ctx, categoryID)
}

// Refresh 跳过缓存直接拉取，并回写缓存
func (f *Feed) Refresh(ctx context.Context, categoryID string) ([]model.NewsItem, error) {
	items, err := f.svc.RefreshCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	f.store.CacheNews(categoryID, items)
	return processor.Deduplicate(items), nil
}

// Mixed 显式指定多个分类；结果去重后把已关注分类排在前面，混合结果不整体缓存
func (f *Feed) Mixed(ctx context.Context, categoryIDs []string) MixedResult {
	res := f.svc.FetchMixed(ctx, categoryIDs)
	res.Items = processor.Deduplicate(res.Items)
	if followed := f.store.FollowedCategories(); len(followed) > 0 {
		res.Items = processor.PrioritizeByFollowed(res.Items, followed)
	}
	return res
}

// LoadFollowed 加载全部已关注分类；没有关注时加载默认分类
func (f *Feed) LoadFollowed(ctx context.Context) (MixedResult, error) {
	followed := f.store.FollowedCategories()
	if len(followed) == 0 {
		items, err := f.Load(ctx, f.defaultCategory)
		if err != nil {
			return MixedResult{}, err
		}
		return MixedResult{Items: items, Failures: []Failure{}}, nil
	}
	return f.Mixed(ctx, followed), nil
}
