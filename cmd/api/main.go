package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-seating-api/api/swagger"
	"github.com/noah-isme/exam-seating-api/internal/handler"
	"github.com/noah-isme/exam-seating-api/internal/repository"
	"github.com/noah-isme/exam-seating-api/internal/router"
	"github.com/noah-isme/exam-seating-api/internal/service"
	"github.com/noah-isme/exam-seating-api/pkg/ai"
	"github.com/noah-isme/exam-seating-api/pkg/cache"
	"github.com/noah-isme/exam-seating-api/pkg/config"
	"github.com/noah-isme/exam-seating-api/pkg/database"
	"github.com/noah-isme/exam-seating-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-seating-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-seating-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-seating-api/pkg/storage"
)

// @title Exam Seating API
// @version 1.0.0
// @description Constraint engine assigning exam candidates to hall seats so no two neighbours share a subject.
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, grid caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	hallRepo := repository.NewHallRepository(db)

	metricsSvc := service.NewMetricsService()

	allocationSvc := service.NewAllocationService(studentRepo, hallRepo, gridCacheOrNil(cacheRepo), metricsSvc, validate, logr, service.AllocationConfig{
		PlanTTL:     cfg.Allocator.PlanTTL,
		HallWorkers: cfg.Allocator.HallWorkers,
		CacheTTL:    cfg.Cache.TTL,
	})
	rosterSvc := service.NewRosterService(studentRepo, validate, logr)
	hallSvc := service.NewHallService(hallRepo, validate, logr)
	exportSvc := service.NewExportService(allocationSvc, store, signer, validate, logr, service.ExportConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
	})

	var chatClient *ai.Client
	if cfg.Chat.Enabled {
		chatClient, err = ai.NewClient(ai.Config{
			APIKey:      cfg.Chat.APIKey,
			Model:       cfg.Chat.Model,
			MaxTokens:   cfg.Chat.MaxTokens,
			Temperature: float32(cfg.Chat.Temperature),
			Logger:      logr,
		})
		if err != nil {
			logr.Sugar().Warnw("chat disabled", "error", err)
		}
	}
	chatSvc := service.NewChatService(allocationSvc, chatClient, cfg.Chat.Enabled, validate, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportSvc.Start(rootCtx)
	defer exportSvc.Stop()
	go cleanupExports(rootCtx, store, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	router.Register(r, cfg, router.Dependencies{
		Allocation:     handler.NewAllocationHandler(allocationSvc),
		Student:        handler.NewStudentHandler(rosterSvc),
		Hall:           handler.NewHallHandler(hallSvc),
		Export:         handler.NewExportHandler(exportSvc),
		Chat:           handler.NewChatHandler(chatSvc),
		Metrics:        handler.NewMetricsHandler(metricsSvc),
		MetricsService: metricsSvc,
		ChatEnabled:    chatSvc.Enabled(),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

// gridCacheOrNil avoids handing the engine a typed nil interface value.
func gridCacheOrNil(repo *repository.CacheRepository) service.GridCache {
	if repo == nil {
		return nil
	}
	return repo
}

// cleanupExports periodically removes artifacts older than the signed URL
// lifetime; expired tokens mean the file can never be fetched again.
func cleanupExports(ctx context.Context, store *storage.LocalStorage, interval, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.CleanupOlderThan(ttl)
			if err != nil {
				logr.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(deleted) > 0 {
				logr.Sugar().Infow("export artifacts cleaned", "count", len(deleted))
			}
		}
	}
}
