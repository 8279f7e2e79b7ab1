package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
)

// Archiver 持久化一批抓取结果；*storage.Archive 满足该接口
type Archiver interface {
	SaveBatch(items []model.NewsItem) error
}

// Result 一轮刷新的汇总
type Result struct {
	Refreshed map[string]int
	Failed    map[string]error
}

type Scheduler struct {
	cron    *cron.Cron
	feed    *collector.Feed
	archive Archiver
	logger  *slog.Logger

	mu      sync.Mutex
	startup *time.Timer
	stopped bool
	running sync.WaitGroup

	// StartupDelay 启动后多久执行首轮刷新；负数表示不执行
	StartupDelay time.Duration
	// JobTimeout 单轮刷新的超时
	JobTimeout time.Duration
}

// New archive 可为 nil，表示不归档
func New(spec string, feed *collector.Feed, archive Archiver, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		feed:         feed,
		archive:      archive,
		logger:       logging.OrDefault(logger).With("component", "scheduler"),
		StartupDelay: 15 * time.Second,
		JobTimeout:   2 * time.Minute,
	}

	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.StartupDelay >= 0 {
		s.mu.Lock()
		s.startup = time.AfterFunc(s.StartupDelay, s.startupTick)
		s.mu.Unlock()
	}
}

func (s *Scheduler) startupTick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	s.tick()
}

// Stop 取消尚未触发的首轮刷新，并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.startup != nil {
		s.startup.Stop()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.running.Wait()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
	defer cancel()
	s.RunOnce(ctx)
}

// Targets 已关注的分类；没有关注时使用默认分类
func (s *Scheduler) Targets() []string {
	if followed := s.feed.Store().FollowedCategories(); len(followed) > 0 {
		return followed
	}
	return []string{s.feed.DefaultCategory()}
}

// RunOnce 逐个分类强制刷新缓存，并在配置了归档时写入数据库
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	targets := s.Targets()
	s.logger.Info("start refresh job", "categories", targets)

	res := Result{Refreshed: map[string]int{}, Failed: map[string]error{}}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range targets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			items, err := s.feed.Refresh(ctx, id)
			if err == nil && s.archive != nil && len(items) > 0 {
				if aerr := s.archive.SaveBatch(items); aerr != nil {
					// 归档失败不影响缓存刷新结果
					s.logger.Error("archive failed", "category", id, "error", aerr)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
				return
			}
			res.Refreshed[id] = len(items)
		}(id)
	}
	wg.Wait()

	s.logger.Info("refresh job done", "refreshed", len(res.Refreshed), "failed", len(res.Failed))
	return res
}
