package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nlu-service/internal/adapters/primary/http/handlers"
	"nlu-service/internal/adapters/primary/http/middleware"
	"nlu-service/internal/adapters/secondary/filestore"
	"nlu-service/internal/adapters/secondary/lexicon"
	"nlu-service/internal/adapters/secondary/parser"
	"nlu-service/internal/adapters/secondary/postgres"
	"nlu-service/internal/config"
	"nlu-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	trainer := lexicon.NewTrainer()
	store, err := filestore.New(cfg.Storage.Root, trainer)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	log.WithField("root", cfg.Storage.Root).Info("tenant store ready")

	// Training history (Optional - based on config)
	history := services.NewTrainingRunService(nil)
	if cfg.Database.Enabled {
		pool, err := newPool(cfg)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()

		history = services.NewTrainingRunService(postgres.NewTrainingRunRepository(pool))
		log.Info("training history enabled")
	} else {
		log.Info("training history disabled")
	}

	// Core Services (Application Layer)
	cache := services.NewModelCache(cfg.Cache.MaxEntries)
	locks := services.NewTenantLocks()
	lifecycleSvc := services.NewLifecycleService(store, parser.New(), trainer, cache, locks, history, services.LifecycleConfig{
		TrainingTimeout:  cfg.Training.Timeout,
		RejectConcurrent: cfg.Training.ConflictPolicy == config.ConflictPolicyReject,
	})
	querySvc := services.NewQueryService(store, trainer, cache, locks)

	if cfg.Cache.WarmOnStart {
		start := time.Now()
		loaded, err := querySvc.Warm(context.Background(), cfg.Cache.WarmConcurrency)
		if err != nil {
			log.Fatalf("warm model cache: %v", err)
		}
		log.WithFields(log.Fields{
			"loaded":      loaded,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("model cache warmed")
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(lifecycleSvc, querySvc, history, store, cfg.Server.UploadMaxBytes)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	h.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func newPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database connection established")
	return pool, nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
