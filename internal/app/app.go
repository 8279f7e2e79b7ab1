// Package app 组装各组件，供 cmd/api 与 cmd/collect 共用
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/LJTian/HotFeed/internal/category"
	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/config"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/normalizer"
	"github.com/LJTian/HotFeed/internal/retry"
	"github.com/LJTian/HotFeed/internal/storage"
)

type App struct {
	Config *config.Config
	Feed   *collector.Feed
	// Archive 未开启归档时为 nil
	Archive *storage.Archive

	closers []func() error
	logger  *slog.Logger
}

// Build 按配置选择存储后端并组装 Feed；归档开启时额外连接 Postgres
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	kv, rdb, err := a.openKV()
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := category.MustRegistry(category.Defaults())
	svc := collector.NewService(registry,
		collector.Sources{
			model.KindAPI:  collector.NewAPISource(cfg.APIBaseURL, cfg.HTTPTimeout),
			model.KindHTML: collector.NewHTMLSource(cfg.HTTPTimeout, logger),
		},
		normalizer.NewDefault(nil),
		retry.New(cfg.MaxRetries, cfg.RetryBaseDelay, logger),
		logger,
	)
	store := storage.NewManager(kv, cfg.CacheDuration, logger)
	a.Feed = collector.NewFeed(svc, store, category.DefaultCategoryID, logger)

	if cfg.ArchiveEnabled {
		archive, err := storage.NewArchive(cfg.PostgresDSN, rdb, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		if err := a.closeWith(archive.DB); err != nil {
			a.Close()
			return nil, err
		}
		a.Archive = archive
	}
	return a, nil
}

func (a *App) openKV() (storage.KV, *redis.Client, error) {
	switch a.Config.StoreBackend {
	case config.BackendRedis:
		kv := storage.NewRedisKV(a.Config.RedisAddr, a.logger)
		a.closers = append(a.closers, kv.Close)
		return kv, kv.Client(), nil
	case config.BackendPostgres:
		db, err := gorm.Open(postgres.Open(a.Config.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := a.closeWith(db); err != nil {
			return nil, nil, err
		}
		kv, err := storage.NewGormKV(db)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil, nil
	default:
		kv, err := storage.OpenSQLiteKV(a.Config.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite kv: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil, nil
	}
}

// closeWith 登记 gorm 底层连接池，随 Close 一起释放
func (a *App) closeWith(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)
	return nil
}

// Close 释放 Redis、sqlite 与 Postgres 连接
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
