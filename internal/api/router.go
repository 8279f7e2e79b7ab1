package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LJTian/HotFeed/internal/apperr"
	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/processor"
	"github.com/LJTian/HotFeed/internal/storage"
)

// ArchiveReader 归档查询；*storage.Archive 满足该接口
type ArchiveReader interface {
	ListNews(ctx context.Context, category, sort string, limit int) ([]storage.NewsRecord, error)
}

type Server struct {
	feed    *collector.Feed
	archive ArchiveReader
	logger  *slog.Logger
}

// NewServer archive 为 nil 时归档接口返回 404
func NewServer(feed *collector.Feed, archive ArchiveReader, logger *slog.Logger) *Server {
	return &Server{
		feed:    feed,
		archive: archive,
		logger:  logging.OrDefault(logger).With("component", "api"),
	}
}

// NewRouter 带恢复、请求 ID 与访问日志中间件的 gin 引擎
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/categories", s.listCategories)

		v1.GET("/news", s.listNews)
		v1.GET("/news/mixed", s.mixedNews)
		v1.POST("/news/:category/refresh", s.refreshCategory)

		v1.GET("/preferences", s.getPreferences)
		v1.PUT("/preferences", s.putPreferences)
		v1.POST("/preferences/follow/:category", s.follow)
		v1.DELETE("/preferences/follow/:category", s.unfollow)

		v1.DELETE("/cache", s.clearAllCache)
		v1.DELETE("/cache/:category", s.clearCache)
		v1.GET("/storage", s.storageSize)

		v1.GET("/archive", s.listArchive)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

// fail 错误统一转换为 AppError，返回本地化提示
func fail(c *gin.Context, err error) {
	appErr := apperr.Classify(err)
	c.JSON(statusFor(appErr), gin.H{
		"code":      appErr.Type,
		"message":   apperr.UserFriendlyMessage(appErr),
		"retryable": appErr.Retryable,
	})
}

func statusFor(e *apperr.AppError) int {
	switch e.Type {
	case apperr.ValidationError:
		return http.StatusBadRequest
	case apperr.NetworkError, apperr.APIError, apperr.ParseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listCategories(c *gin.Context) {
	store := s.feed.Store()
	type view struct {
		model.Category
		Following bool `json:"following"`
	}
	cats := s.feed.Service().Categories()
	out := make([]view, 0, len(cats))
	for _, cat := range cats {
		out = append(out, view{Category: cat, Following: store.IsFollowing(cat.ID)})
	}
	ok(c, out)
}

// listNews category 为空时加载已关注分类；sort 取 latest / hot，默认保持上游顺序
func (s *Server) listNews(c *gin.Context) {
	categoryID := strings.TrimSpace(c.Query("category"))
	sortBy := c.DefaultQuery("sort", "none")

	if categoryID == "" {
		res, err := s.feed.LoadFollowed(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, processor.Sort(res.Items, sortBy))
		return
	}

	items, err := s.feed.Load(c.Request.Context(), categoryID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, processor.Sort(items, sortBy))
}

func (s *Server) mixedNews(c *gin.Context) {
	ids := splitIDs(c.Query("categories"))

	var (
		res collector.MixedResult
		err error
	)
	if len(ids) == 0 {
		res, err = s.feed.LoadFollowed(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
	} else {
		res = s.feed.Mixed(c.Request.Context(), ids)
	}
	res.Items = processor.Sort(res.Items, c.DefaultQuery("sort", "none"))
	ok(c, res)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func (s *Server) refreshCategory(c *gin.Context) {
	items, err := s.feed.Refresh(c.Request.Context(), c.Param("category"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

func (s *Server) getPreferences(c *gin.Context) {
	prefs := s.feed.Store().LoadPreferences()
	if prefs == nil {
		prefs = &model.UserPreferences{FollowedCategories: []string{}}
	}
	if prefs.FollowedCategories == nil {
		prefs.FollowedCategories = []string{}
	}
	ok(c, prefs)
}

func (s *Server) putPreferences(c *gin.Context) {
	var prefs model.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		fail(c, apperr.Validation("请求体格式错误"))
		return
	}
	switch prefs.Theme {
	case "", "light", "dark":
	default:
		fail(c, apperr.Validation("不支持的主题: "+prefs.Theme))
		return
	}

	registry := s.feed.Service().Registry()
	seen := make(map[string]struct{}, len(prefs.FollowedCategories))
	followed := make([]string, 0, len(prefs.FollowedCategories))
	for _, id := range prefs.FollowedCategories {
		if !registry.Has(id) {
			fail(c, apperr.Validation("未知分类: "+id))
			return
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		followed = append(followed, id)
	}
	prefs.FollowedCategories = followed

	s.feed.Store().SavePreferences(prefs)
	ok(c, prefs)
}

func (s *Server) follow(c *gin.Context) {
	id := c.Param("category")
	if !s.feed.Service().Registry().Has(id) {
		fail(c, apperr.Validation("未知分类: "+id))
		return
	}
	ok(c, s.feed.Store().FollowCategory(id))
}

func (s *Server) unfollow(c *gin.Context) {
	ok(c, s.feed.Store().UnfollowCategory(c.Param("category")))
}

func (s *Server) clearAllCache(c *gin.Context) {
	s.feed.Store().ClearAllCache()
	ok(c, nil)
}

func (s *Server) clearCache(c *gin.Context) {
	s.feed.Store().ClearCache(c.Param("category"))
	ok(c, nil)
}

func (s *Server) storageSize(c *gin.Context) {
	ok(c, gin.H{"bytes": s.feed.Store().StorageSize()})
}

func (s *Server) listArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "archive disabled",
		})
		return
	}

	sortBy := c.DefaultQuery("sort", "latest")
	if sortBy != "latest" && sortBy != "hot" {
		sortBy = "latest"
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	records, err := s.archive.ListNews(c.Request.Context(), c.Query("category"), sortBy, limit)
	if err != nil {
		s.logger.Error("list archive failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	items := make([]model.NewsItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.Item())
	}
	ok(c, items)
}
