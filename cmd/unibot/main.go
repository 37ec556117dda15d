package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EliasBlind/UniBot/internal/feed"
	"github.com/EliasBlind/UniBot/internal/handler"
	"github.com/EliasBlind/UniBot/internal/middleware"
	"github.com/EliasBlind/UniBot/internal/repository"
	"github.com/EliasBlind/UniBot/internal/service"
	"github.com/EliasBlind/UniBot/pkg/cache"
	"github.com/EliasBlind/UniBot/pkg/config"
	"github.com/EliasBlind/UniBot/pkg/database"
	"github.com/EliasBlind/UniBot/pkg/logger"
	reqidmiddleware "github.com/EliasBlind/UniBot/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewSQLite(cfg.Storage)
	if err != nil {
		logr.Sugar().Fatalw("failed to open storage", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to ensure schema", "error", err)
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, response cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Redis.TTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	store := service.NewScheduleService(service.ScheduleServiceParams{
		DB:       db,
		Teachers: repository.NewTeacherRepository(db),
		Lessons:  repository.NewLessonRepository(db),
		Schedule: repository.NewScheduleRepository(db),
		Logger:   logr,
	})

	feedClient := feed.NewClient(cfg.Feed, logr)
	sync := service.NewSyncService(feedClient, store, cfg.Schedule, metrics, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	scheduleHandler := handler.NewScheduleHandler(sync, store, cacheSvc)
	v1 := r.Group("/api/v1")
	{
		v1.GET("/schedule/week", scheduleHandler.Week)
		v1.GET("/schedule/days", scheduleHandler.Days)
		v1.DELETE("/schedule/occurrences/:id", scheduleHandler.Delete)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
