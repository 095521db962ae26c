package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/activity-log-api/internal/repository"
	"github.com/noah-isme/activity-log-api/internal/service"
	"github.com/noah-isme/activity-log-api/pkg/cache"
	"github.com/noah-isme/activity-log-api/pkg/config"
	"github.com/noah-isme/activity-log-api/pkg/database"
	"github.com/noah-isme/activity-log-api/pkg/jobs"
	"github.com/noah-isme/activity-log-api/pkg/logger"
)

// @title Activity Log API
// @version 1.0.0
// @description Records and browses the site activity log
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Identity.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("identity cache disabled, redis unavailable", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "activity-log", logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Identity.CacheTTL, logr, redisClient != nil)
	directory := service.NewUserDirectory(userRepo, cacheSvc)
	presenter := service.NewEventPresenter(directory, cfg.Events.MessagePreview, logr)
	eventSvc := service.NewEventService(eventRepo, service.NewFilterBuilder(directory), presenter, metrics, logr, cfg.Events.PageSize)
	authSvc := service.NewAuthService(userRepo, eventSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, eventSvc, directory, validate, logr)

	if cfg.Events.RetentionDays > 0 {
		retention := service.NewEventRetention(eventRepo, cfg.Events.RetentionDays, metrics, logr)
		queue := jobs.NewQueue("event-retention", retention.Handle, jobs.QueueConfig{
			MaxRetries: 3,
			RetryDelay: time.Minute,
			Logger:     logr,
		})
		jobsCtx, stopJobs := context.WithCancel(ctx)
		queue.Start(jobsCtx)
		go queue.Every(jobsCtx, 24*time.Hour, retention.Job)
		defer func() {
			stopJobs()
			queue.Stop()
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(cfg, logr, routeDeps{
		db:       db,
		metrics:  metrics,
		validate: validate,
		authSvc:  authSvc,
		eventSvc: eventSvc,
		userSvc:  userSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
