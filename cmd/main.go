package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/clients/catalog"
	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/database"
	"catalog-sync-service/internal/events"
	"catalog-sync-service/internal/export"
	"catalog-sync-service/internal/handlers"
	"catalog-sync-service/internal/notification"
	"catalog-sync-service/internal/repository"
	"catalog-sync-service/internal/storage"
	"catalog-sync-service/internal/worker"
)

func main() {
	// .env is optional, real deployments inject the environment
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	if cfg.Environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	baseLog := logger.WithField("service", "catalog-sync-service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}

	// Redis queue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	// Injected channel/policy/parent-key tables
	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		log.Fatalf("Failed to load tables: %v", err)
	}

	// Catalog API client
	catalogClient := catalog.NewClient(cfg.CatalogAPIURL, cfg.CatalogServiceToken, cfg.CatalogRateLimit)

	// Artifact store
	var store storage.ArtifactStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Fatalf("Failed to initialize S3 store: %v", err)
		}
		store = s3Store
	}

	// Job lifecycle events
	var publisher *events.Publisher
	if cfg.NATSUrl != "" {
		publisher, err = events.NewPublisher(cfg.NATSUrl, baseLog)
		if err != nil {
			log.Printf("Warning: Failed to connect to NATS, events disabled: %v", err)
		}
	}

	logRepo := repository.NewJobLogRepository(db)
	notifier := notification.New(catalogClient, baseLog)
	probe := worker.NewStatusProbe(catalogClient, cfg.TerminationPollInterval)
	exporter := export.NewOrchestrator(catalogClient, tables.Policies, tables.Channels, tables.ParentKeys, probe, baseLog)
	sem := worker.NewClientSemaphore(&worker.ConcurrencyConfig{
		MaxConcurrentJobs: cfg.WorkerConcurrency,
		MaxPerClient:      cfg.MaxJobsPerClient,
		JobTimeout:        cfg.JobTimeout,
		QueueTimeout:      cfg.QueueWaitTimeout,
	})

	queue := cfg.QueueName()
	w := worker.New(rdb, worker.Options{
		Queue:            queue,
		Concurrency:      cfg.WorkerConcurrency,
		BulkPollInterval: cfg.BulkPollInterval,
		BulkPollTimeout:  cfg.BulkPollTimeout,
		ImportBatchSize:  cfg.ImportBatchSize,
	}, catalogClient, exporter, store, notifier, logRepo, publisher, sem, baseLog)

	go w.Run(ctx)

	// Admin API
	healthHandler := handlers.NewHealthHandler()
	jobHandler := handlers.NewJobHandler(rdb, queue, logRepo, sem, baseLog)
	router := setupRouter(cfg, healthHandler, jobHandler)

	baseLog.WithFields(logrus.Fields{
		"port":  cfg.Port,
		"env":   cfg.Environment,
		"queue": queue,
	}).Info("catalog sync service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, healthHandler *handlers.HealthHandler, jobHandler *handlers.JobHandler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("/:id/run", jobHandler.Run)
			jobs.GET("/:id/logs", jobHandler.Logs)
		}
		v1.GET("/workers/stats", jobHandler.Stats)
	}

	return router
}
