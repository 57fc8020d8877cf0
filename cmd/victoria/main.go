package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/victoria/internal/api/rest"
	"github.com/fortuna/victoria/internal/api/websocket"
	"github.com/fortuna/victoria/internal/cache"
	"github.com/fortuna/victoria/internal/config"
	"github.com/fortuna/victoria/internal/publisher"
	"github.com/fortuna/victoria/internal/report"
	"github.com/fortuna/victoria/internal/reprocess"
	"github.com/fortuna/victoria/internal/store"
	"github.com/fortuna/victoria/internal/store/repository"
)

const (
	serviceName    = "victoria"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infof("Starting %s v%s - Replay Coaching Service", serviceName, serviceVersion)

	// Initialize database connection
	db, err := store.NewDatabase(cfg.ArchiveDSN)
	if err != nil {
		sugar.Fatalf("Failed to connect to archive database: %v", err)
	}
	defer db.Close()

	sugar.Info("✓ Connected to archive database")

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		sugar.Fatalf("Failed to run database migrations: %v", err)
	}
	sugar.Info("✓ Database migrations applied")

	// Initialize Redis client with retry logic
	var redisCache *cache.RedisCache
	maxRetries := 30
	retryDelay := 2 * time.Second

	sugar.Info("Connecting to Redis...")
	for i := 0; i < maxRetries; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			sugar.Warnf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		} else {
			sugar.Fatalf("Failed to connect to Redis after %d attempts: %v", maxRetries, err)
		}
	}
	defer redisCache.Close()

	sugar.Info("✓ Connected to Redis")

	// Initialize Redis publisher with retry logic
	var redisPublisher *publisher.RedisPublisher
	sugar.Info("Initializing Redis publisher...")
	for i := 0; i < maxRetries; i++ {
		redisPublisher, err = publisher.NewRedisPublisher(cfg.RedisURL)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			sugar.Warnf("Redis publisher attempt %d/%d failed: %v (retrying in %v)", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		} else {
			sugar.Fatalf("Failed to initialize Redis publisher after %d attempts: %v", maxRetries, err)
		}
	}
	defer redisPublisher.Close()

	sugar.Info("✓ Redis publisher initialized")

	// Analysis pipeline and reprocessing service
	reportSvc := report.NewService(logger, report.Limits{
		MaxDecodedChars: cfg.Limits.MaxDecodedChars,
		PerCategoryCap:  cfg.Limits.FindingsPerCategory,
	})
	reportRepo := repository.NewReportRepository(db)
	reprocessSvc := reprocess.NewService(reportRepo, reportSvc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize REST API server
	restServer := rest.NewServer(cfg.RESTPort, db, reportSvc, redisCache, redisPublisher, reprocessSvc, cfg.Limits, logger)
	go func() {
		if err := restServer.Start(); err != nil {
			sugar.Errorf("REST server error: %v", err)
		}
	}()

	sugar.Infof("✓ REST API server listening on :%s", cfg.RESTPort)

	// Initialize WebSocket server
	wsServer := websocket.NewServer(redisCache.Client(), logger)
	go func() {
		if err := wsServer.Start(ctx, cfg.WSPort); err != nil {
			sugar.Errorf("WebSocket server error: %v", err)
		}
	}()

	sugar.Infof("✓ WebSocket server listening on :%s", cfg.WSPort)
	sugar.Infof("✓ Victoria v%s started successfully", serviceVersion)
	sugar.Infof("  REST API: http://0.0.0.0:%s", cfg.RESTPort)
	sugar.Infof("  WebSocket: ws://0.0.0.0:%s", cfg.WSPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sugar.Info("Shutting down Victoria gracefully...")

	// Graceful shutdown
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("REST API server shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("WebSocket server shutdown error: %v", err)
	}

	sugar.Info("Victoria stopped")
}
