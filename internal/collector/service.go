package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LJTian/HotFeed/internal/apperr"
	"github.com/LJTian/HotFeed/internal/category"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/metrics"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/normalizer"
	"github.com/LJTian/HotFeed/internal/retry"
)

// Sources 按分类类型选择上游
type Sources map[model.CategoryKind]Source

// envelope 上游统一响应结构；code 与 HTTP 状态码无关
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Failure 混合拉取中单个分类的失败信息
type Failure struct {
	Category string           `json:"category"`
	Name     string           `json:"name"`
	Error    *apperr.AppError `json:"error"`
}

// MixedResult 成功条目按请求顺序拼接，失败的分类单独列出
type MixedResult struct {
	Items    []model.NewsItem `json:"items"`
	Failures []Failure        `json:"failures"`
}

// Service 拉取、归一化并分类错误
type Service struct {
	registry   *category.Registry
	sources    Sources
	normalizer *normalizer.Normalizer
	retry      *retry.Manager
	logger     *slog.Logger
}

func NewService(
	registry *category.Registry,
	sources Sources,
	norm *normalizer.Normalizer,
	rm *retry.Manager,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:   registry,
		sources:    sources,
		normalizer: norm,
		retry:      rm,
		logger:     logging.OrDefault(logger).With("component", "collector"),
	}
}

// Categories 全部可用分类
func (s *Service) Categories() []model.Category {
	return s.registry.All()
}

// Registry 供 API 层校验分类 ID
func (s *Service) Registry() *category.Registry {
	return s.registry
}

func (s *Service) sourceFor(cat model.Category) Source {
	if cat.IsHTML() {
		return s.sources[model.KindHTML]
	}
	return s.sources[model.KindAPI]
}

// FetchByCategory 返回的错误一定是 *apperr.AppError
func (s *Service) FetchByCategory(ctx context.Context, categoryID string) ([]model.NewsItem, error) {
	cat, ok := s.registry.Get(categoryID)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("未知分类: %s", categoryID))
	}
	src := s.sourceFor(cat)
	if src == nil {
		return nil, apperr.Validation(fmt.Sprintf("分类 %s 没有可用的数据源", categoryID))
	}

	start := time.Now()
	body, err := retry.Execute(ctx, s.retry, func() ([]byte, error) {
		b, err := src.Fetch(ctx, cat)
		if err != nil && !apperr.Classify(err).Retryable {
			return nil, retry.Permanent(err)
		}
		return b, err
	}, true)
	if err != nil {
		return nil, s.fail(cat.ID, start, apperr.Classify(err))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, s.fail(cat.ID, start, apperr.Classify(fmt.Errorf("%s: decode envelope: %w", cat.ID, err)))
	}
	if env.Code != envelopeSuccessCode {
		msg := env.Message
		if msg == "" {
			msg = "Failed to fetch news"
		}
		return nil, s.fail(cat.ID, start, apperr.API(env.Code, msg, env.Code >= 500))
	}

	items := s.normalizer.Normalize(cat, env.Data)

	metrics.FetchTotal.WithLabelValues(cat.ID, "ok").Inc()
	metrics.FetchDuration.WithLabelValues(cat.ID).Observe(time.Since(start).Seconds())
	s.logger.Info("fetched category", "category", cat.ID, "items", len(items), "took", time.Since(start))
	return items, nil
}

func (s *Service) fail(categoryID string, start time.Time, appErr *apperr.AppError) error {
	metrics.FetchTotal.WithLabelValues(categoryID, "error").Inc()
	metrics.FetchDuration.WithLabelValues(categoryID).Observe(time.Since(start).Seconds())
	s.logger.Error("fetch category failed",
		"category", categoryID,
		"type", appErr.Type,
		"code", appErr.Code,
		"error", appErr.Message,
	)
	return appErr
}

// RefreshCategory 与 FetchByCategory 相同，供显式刷新使用
func (s *Service) RefreshCategory(ctx context.Context, categoryID string) ([]model.NewsItem, error) {
	return s.FetchByCategory(ctx, categoryID)
}

// FetchMixed 并发拉取全部分类并等待全部结束；单个分类失败不影响其他分类
func (s *Service) FetchMixed(ctx context.Context, categoryIDs []string) MixedResult {
	type outcome struct {
		items []model.NewsItem
		err   error
	}

	outcomes := make([]outcome, len(categoryIDs))
	var wg sync.WaitGroup
	for i, id := range categoryIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			items, err := s.FetchByCategory(ctx, id)
			outcomes[i] = outcome{items: items, err: err}
		}(i, id)
	}
	wg.Wait()

	res := MixedResult{Items: []model.NewsItem{}, Failures: []Failure{}}
	for i, o := range outcomes {
		if o.err != nil {
			metrics.MixedFailures.Inc()
			s.logger.Warn("category dropped from mixed fetch", "category", categoryIDs[i], "error", o.err)
			res.Failures = append(res.Failures, Failure{
				Category: categoryIDs[i],
				Name:     s.registry.DisplayName(categoryIDs[i]),
				Error:    apperr.Classify(o.err),
			})
			continue
		}
		res.Items = append(res.Items, o.items...)
	}
	return res
}
