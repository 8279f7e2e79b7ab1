package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsRecord 归档到 Postgres 的一条新闻
type NewsRecord struct {
	ID            string            `gorm:"primaryKey;size:191" json:"id"`
	Category      string            `gorm:"size:64;index" json:"category"`
	Source        string            `gorm:"size:128" json:"source"`
	Title         string            `gorm:"size:512" json:"title"`
	URL           string            `gorm:"size:1024" json:"url"`
	Description   string            `gorm:"size:600" json:"description"`
	Image         string            `gorm:"size:1024" json:"image"`
	Rank          int               `json:"rank"`
	HotScore      float64           `gorm:"index" json:"hotScore"`
	PublishedAt   time.Time         `gorm:"index" json:"publishedAt"`
	PublishedDate string            `gorm:"size:10;index" json:"publishedDate"` // 东八区日期 YYYY-MM-DD
	ExtraData     datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (NewsRecord) TableName() string {
	return "news_archive"
}

const (
	defaultListLimit = 20
	maxListLimit     = 1000
	listCacheTTL     = 5 * time.Minute
)

// Archive 抓取结果的持久化归档；Redis 可选，用作列表查询的短 TTL 缓存
type Archive struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *slog.Logger
}

// NewArchive 打开 Postgres 并迁移 news_archive 表
func NewArchive(dsn string, rdb *redis.Client, logger *slog.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewArchiveFromDB(db, rdb, logger)
}

// NewArchiveFromDB 复用已打开的 gorm 连接
func NewArchiveFromDB(db *gorm.DB, rdb *redis.Client, logger *slog.Logger) (*Archive, error) {
	if err := db.AutoMigrate(&NewsRecord{}); err != nil {
		return nil, fmt.Errorf("migrate news_archive: %w", err)
	}
	return &Archive{
		DB:     db,
		Redis:  rdb,
		logger: logging.OrDefault(logger).With("component", "archive"),
	}, nil
}

// 东八区，用于日期展示与筛选
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// toValidUTF8 部分上游可能混入非法字节，PostgreSQL 会拒绝写入
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunes 按 rune 截断，保证不超过 varchar 长度
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// recordFromItem 把 NewsItem 转换为归档记录；原始热度保存在 ExtraData 中
func recordFromItem(it model.NewsItem) NewsRecord {
	published := time.UnixMilli(it.Timestamp)
	extra := datatypes.JSONMap{}
	if it.Hot != nil {
		extra["hot"] = it.Hot
	}
	return NewsRecord{
		ID:            it.ID,
		Category:      it.Category,
		Source:        toValidUTF8(it.Source),
		Title:         truncateRunes(toValidUTF8(it.Title), 512),
		URL:           truncateRunes(it.URL, 1024),
		Description:   truncateRunes(toValidUTF8(it.Description), 600),
		Image:         truncateRunes(it.Image, 1024),
		Rank:          it.Index,
		HotScore:      it.HotValue(),
		PublishedAt:   published,
		PublishedDate: published.In(locEast8).Format("2006-01-02"),
		ExtraData:     extra,
	}
}

// Item 还原为 NewsItem
func (r NewsRecord) Item() model.NewsItem {
	item := model.NewsItem{
		ID:          r.ID,
		Title:       r.Title,
		Source:      r.Source,
		Category:    r.Category,
		Timestamp:   r.PublishedAt.UnixMilli(),
		URL:         r.URL,
		Description: r.Description,
		Index:       r.Rank,
		Image:       r.Image,
	}
	if hot, ok := r.ExtraData["hot"]; ok {
		item.Hot = hot
	}
	return item
}

// SaveBatch 以 id 为幂等键写入，已存在时更新标题、热度等可变字段
func (a *Archive) SaveBatch(items []model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	records := make([]NewsRecord, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		// 同一条 INSERT 中主键重复会导致 ON CONFLICT 报错
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		records = append(records, recordFromItem(it))
	}
	if len(records) == 0 {
		return nil
	}

	err := a.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "url", "description", "image", "rank",
			"hot_score", "extra_data", "updated_at",
		}),
	}).CreateInBatches(records, 100).Error
	if err != nil {
		return fmt.Errorf("save archive batch: %w", err)
	}
	// 不做通配删除，列表缓存依赖短 TTL 自然过期
	return nil
}

// ListNews 按分类与排序返回归档
// category: 分类 id，可为空
// sort: latest(默认) / hot
func (a *Archive) ListNews(ctx context.Context, category, sort string, limit int) ([]NewsRecord, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if sort != "hot" {
		sort = "latest"
	}

	cacheKey := fmt.Sprintf("%sarchive:list:%s:%s:%d", redisNamespace, category, sort, limit)
	if a.Redis != nil {
		if bs, err := a.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []NewsRecord
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []NewsRecord
	db := a.DB.WithContext(ctx).Model(&NewsRecord{})
	if category != "" {
		db = db.Where("category = ?", category)
	}
	switch sort {
	case "hot":
		db = db.Order("hot_score DESC").Order("published_at DESC")
	default:
		db = db.Order("published_at DESC")
	}
	if err := db.Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	if a.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			if err := a.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err(); err != nil {
				a.logger.Warn("archive list cache write failed", "error", err)
			}
		}
	}
	return list, nil
}
