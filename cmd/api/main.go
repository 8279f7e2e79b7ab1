package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/HotFeed/internal/api"
	"github.com/LJTian/HotFeed/internal/app"
	"github.com/LJTian/HotFeed/internal/config"
	"github.com/LJTian/HotFeed/internal/logging"
	"github.com/LJTian/HotFeed/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("init app failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// 归档未开启时两个接口保持 nil
	var (
		archiver scheduler.Archiver
		reader   api.ArchiveReader
	)
	if a.Archive != nil {
		archiver, reader = a.Archive, a.Archive
	}

	s, err := scheduler.New(cfg.CronSpec, a.Feed, archiver, logger)
	if err != nil {
		logger.Error("init scheduler failed", "error", err)
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: api.NewRouter(api.NewServer(a.Feed, reader, logger)),
	}

	go func() {
		logger.Info("starting api server", "addr", srv.Addr, "store", cfg.StoreBackend, "archive", cfg.ArchiveEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exit", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
