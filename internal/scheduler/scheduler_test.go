package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/HotFeed/internal/category"
	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/normalizer"
	"github.com/LJTian/HotFeed/internal/retry"
	"github.com/LJTian/HotFeed/internal/storage"
)

type fakeArchive struct {
	mu    sync.Mutex
	saved []model.NewsItem
	err   error
}

func (f *fakeArchive) SaveBatch(items []model.NewsItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, items...)
	return f.err
}

func newFeed(t *testing.T) (*collector.Feed, *storage.Manager) {
	t.Helper()
	feed, store, _ := newCountingFeed(t)
	return feed, store
}

// newCountingFeed 同 newFeed，额外返回上游被请求的次数
func newCountingFeed(t *testing.T) (*collector.Feed, *storage.Manager, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/v2/60s":
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"date":"2025-03-01","news":["一","二"]}}`))
		case "/v2/weibo":
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":[{"title":"微博一"}]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)

	logger := logging.Discard()
	reg := category.MustRegistry([]model.Category{
		{ID: "60s", Name: "每天60秒读懂世界", Endpoint: "/v2/60s"},
		{ID: "weibo", Name: "微博热搜", Endpoint: "/v2/weibo"},
		{ID: "zhihu", Name: "知乎话题榜", Endpoint: "/v2/zhihu"},
	})
	svc := collector.NewService(reg,
		collector.Sources{model.KindAPI: collector.NewAPISource(srv.URL, time.Second)},
		normalizer.NewDefault(nil),
		retry.New(0, time.Millisecond, logger),
		logger,
	)
	store := storage.NewManager(storage.NewMemoryKV(), time.Minute, logger)
	return collector.NewFeed(svc, store, "60s", logger), store, hits
}

func TestRunOnceRefreshesDefaultCategory(t *testing.T) {
	feed, store := newFeed(t)
	archive := &fakeArchive{}
	s, err := New("*/5 * * * *", feed, archive, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, []string{"60s"}, s.Targets())

	res := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int{"60s": 2}, res.Refreshed)
	assert.Empty(t, res.Failed)
	assert.Len(t, store.GetCachedNews("60s"), 2)
	assert.Len(t, archive.saved, 2)
}

func TestRunOnceFollowedWithFailure(t *testing.T) {
	feed, store := newFeed(t)
	store.FollowCategory("weibo")
	store.FollowCategory("zhihu")
	archive := &fakeArchive{err: errors.New("db down")}

	s, err := New("@every 1h", feed, archive, logging.Discard())
	require.NoError(t, err)

	res := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int{"weibo": 1}, res.Refreshed)
	require.Contains(t, res.Failed, "zhihu")
	// 归档失败不影响缓存
	assert.Len(t, store.GetCachedNews("weibo"), 1)
	assert.Nil(t, store.GetCachedNews("zhihu"))
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	feed, _ := newFeed(t)
	_, err := New("not a cron", feed, nil, logging.Discard())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	feed, _ := newFeed(t)
	s, err := New("@every 1h", feed, nil, logging.Discard())
	require.NoError(t, err)
	s.StartupDelay = -1
	s.Start()
	s.Stop()
}

func TestStopCancelsPendingStartupRefresh(t *testing.T) {
	feed, store, hits := newCountingFeed(t)
	s, err := New("@every 1h", feed, nil, logging.Discard())
	require.NoError(t, err)
	s.StartupDelay = 30 * time.Millisecond

	s.Start()
	s.Stop()
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, hits.Load(), "startup refresh must not run after Stop")
	assert.Nil(t, store.GetCachedNews("60s"))
}

func TestStopWaitsForStartupRefresh(t *testing.T) {
	feed, store, hits := newCountingFeed(t)
	s, err := New("@every 1h", feed, nil, logging.Discard())
	require.NoError(t, err)
	s.StartupDelay = 10 * time.Millisecond

	s.Start()
	require.Eventually(t, func() bool { return hits.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Len(t, store.GetCachedNews("60s"), 2)
}
