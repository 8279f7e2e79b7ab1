package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/LJTian/HotFeed/internal/category"
	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/normalizer"
	"github.com/LJTian/HotFeed/internal/retry"
	"github.com/LJTian/HotFeed/internal/storage"
)

type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Data      json.RawMessage `json:"data"`
}

type fakeArchive struct {
	records []storage.NewsRecord
	err     error
	gotSort string
}

func (f *fakeArchive) ListNews(_ context.Context, _ string, sort string, _ int) ([]storage.NewsRecord, error) {
	f.gotSort = sort
	return f.records, f.err
}

type RouterTestSuite struct {
	suite.Suite

	upstream   *httptest.Server
	weiboCalls atomic.Int32
	store      *storage.Manager
	archive    *fakeArchive
	router     *gin.Engine
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RouterTestSuite) SetupTest() {
	s.weiboCalls.Store(0)
	s.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/weibo":
			s.weiboCalls.Add(1)
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":[
				{"title":"冷门","hot":1,"timestamp":1700000000000},
				{"title":"热门","hot":99,"timestamp":1600000000000}
			]}`))
		case "/v2/zhihu":
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"list":[{"title":"知乎一"}]}}`))
		case "/v2/60s":
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"date":"2025-03-01","news":["早报"]}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	logger := logging.Discard()
	reg := category.MustRegistry([]model.Category{
		{ID: "weibo", Name: "微博热搜", Endpoint: "/v2/weibo"},
		{ID: "zhihu", Name: "知乎话题榜", Endpoint: "/v2/zhihu"},
		{ID: "60s", Name: "每天60秒读懂世界", Endpoint: "/v2/60s"},
		{ID: "broken", Name: "坏掉的上游", Endpoint: "/v2/broken"},
	})
	svc := collector.NewService(reg,
		collector.Sources{model.KindAPI: collector.NewAPISource(s.upstream.URL, time.Second)},
		normalizer.NewDefault(nil),
		retry.New(0, time.Millisecond, logger),
		logger,
	)
	s.store = storage.NewManager(storage.NewMemoryKV(), time.Minute, logger)
	s.archive = &fakeArchive{}
	s.router = NewRouter(NewServer(collector.NewFeed(svc, s.store, "60s", logger), s.archive, logger))
}

func (s *RouterTestSuite) TearDownTest() {
	s.upstream.Close()
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *RouterTestSuite) decodeItems(raw json.RawMessage) []model.NewsItem {
	var items []model.NewsItem
	s.Require().NoError(json.Unmarshal(raw, &items))
	return items
}

func (s *RouterTestSuite) TestHealthAndRequestID() {
	w, _ := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal("abc", rec.Header().Get("X-Request-ID"))
}

func (s *RouterTestSuite) TestMetricsEndpoint() {
	w, _ := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "go_goroutines")
}

func (s *RouterTestSuite) TestCategories() {
	s.store.FollowCategory("zhihu")
	w, env := s.do(http.MethodGet, "/api/v1/categories", "")
	s.Equal(http.StatusOK, w.Code)

	var cats []struct {
		ID        string `json:"id"`
		Following bool   `json:"following"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &cats))
	s.Len(cats, 4)
	for _, c := range cats {
		s.Equal(c.ID == "zhihu", c.Following, c.ID)
	}
}

func (s *RouterTestSuite) TestNewsByCategoryCachesAndSorts() {
	w, env := s.do(http.MethodGet, "/api/v1/news?category=weibo", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("ok", env.Code)
	items := s.decodeItems(env.Data)
	s.Require().Len(items, 2)
	s.Equal("冷门", items[0].Title)

	_, env = s.do(http.MethodGet, "/api/v1/news?category=weibo&sort=hot", "")
	items = s.decodeItems(env.Data)
	s.Equal("热门", items[0].Title)

	_, env = s.do(http.MethodGet, "/api/v1/news?category=weibo&sort=latest", "")
	items = s.decodeItems(env.Data)
	s.Equal("冷门", items[0].Title)

	s.Equal(int32(1), s.weiboCalls.Load(), "subsequent requests should hit the cache")

	w, _ = s.do(http.MethodPost, "/api/v1/news/weibo/refresh", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int32(2), s.weiboCalls.Load())
}

func (s *RouterTestSuite) TestNewsErrors() {
	w, env := s.do(http.MethodGet, "/api/v1/news?category=nope", "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Code)

	w, env = s.do(http.MethodGet, "/api/v1/news?category=broken", "")
	s.Equal(http.StatusBadGateway, w.Code)
	s.Equal("API_ERROR", env.Code)
	s.Equal("服务器暂时不可用", env.Message)
	s.NotContains(env.Message, "重试")
	s.True(env.Retryable)
}

func (s *RouterTestSuite) TestNewsWithoutCategoryUsesDefault() {
	_, env := s.do(http.MethodGet, "/api/v1/news", "")
	items := s.decodeItems(env.Data)
	s.Require().Len(items, 1)
	s.Equal("60s", items[0].Category)
}

func (s *RouterTestSuite) TestMixedReportsFailures() {
	s.store.FollowCategory("zhihu")

	w, env := s.do(http.MethodGet, "/api/v1/news/mixed?categories=weibo,broken,zhihu", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var res collector.MixedResult
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Require().Len(res.Items, 3)
	s.Equal("zhihu", res.Items[0].Category, "followed category first")
	s.Require().Len(res.Failures, 1)
	s.Equal("broken", res.Failures[0].Category)

	_, env = s.do(http.MethodGet, "/api/v1/news/mixed", "")
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Require().Len(res.Items, 1)
	s.Equal("知乎一", res.Items[0].Title)
}

func (s *RouterTestSuite) TestPreferencesFlow() {
	_, env := s.do(http.MethodGet, "/api/v1/preferences", "")
	s.JSONEq(`{"followedCategories":[]}`, string(env.Data))

	w, env := s.do(http.MethodPost, "/api/v1/preferences/follow/weibo", "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`["weibo"]`, string(env.Data))

	w, _ = s.do(http.MethodPost, "/api/v1/preferences/follow/nope", "")
	s.Equal(http.StatusBadRequest, w.Code)

	_, env = s.do(http.MethodDelete, "/api/v1/preferences/follow/weibo", "")
	s.JSONEq(`[]`, string(env.Data))

	w, env = s.do(http.MethodPut, "/api/v1/preferences", `{"followedCategories":["zhihu","weibo","zhihu"],"theme":"dark"}`)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"followedCategories":["zhihu","weibo"],"theme":"dark"}`, string(env.Data))
	s.Equal([]string{"zhihu", "weibo"}, s.store.FollowedCategories())

	w, _ = s.do(http.MethodPut, "/api/v1/preferences", `{"theme":"pink"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/preferences", `{"followedCategories":["nope"]}`)
	s.Equal(http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPut, "/api/v1/preferences", `not json`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestCacheEndpoints() {
	s.store.CacheNews("weibo", []model.NewsItem{{ID: "weibo-1"}})
	s.store.CacheNews("zhihu", []model.NewsItem{{ID: "zhihu-1"}})
	s.store.FollowCategory("weibo")

	w, _ := s.do(http.MethodDelete, "/api/v1/cache/weibo", "")
	s.Equal(http.StatusOK, w.Code)
	s.Nil(s.store.GetCachedNews("weibo"))
	s.NotNil(s.store.GetCachedNews("zhihu"))

	_, env := s.do(http.MethodGet, "/api/v1/storage", "")
	var size struct {
		Bytes int `json:"bytes"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &size))
	s.Positive(size.Bytes)

	s.do(http.MethodDelete, "/api/v1/cache", "")
	s.Nil(s.store.GetCachedNews("zhihu"))
	s.Equal([]string{"weibo"}, s.store.FollowedCategories())
}

func (s *RouterTestSuite) TestArchive() {
	s.archive.records = []storage.NewsRecord{{ID: "weibo-1", Title: "归档", Category: "weibo", PublishedAt: time.UnixMilli(1700000000000)}}

	w, env := s.do(http.MethodGet, "/api/v1/archive?sort=bogus", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("latest", s.archive.gotSort)
	items := s.decodeItems(env.Data)
	s.Require().Len(items, 1)
	s.Equal(int64(1700000000000), items[0].Timestamp)

	s.archive.err = errors.New("db down")
	w, _ = s.do(http.MethodGet, "/api/v1/archive", "")
	s.Equal(http.StatusInternalServerError, w.Code)
}

func TestArchiveDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := collector.NewService(category.MustRegistry(category.Defaults()), collector.Sources{}, normalizer.New(nil), retry.New(0, time.Millisecond, nil), nil)
	store := storage.NewManager(storage.NewMemoryKV(), time.Minute, nil)
	router := NewRouter(NewServer(collector.NewFeed(svc, store, "", nil), nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "archive disabled")
}
