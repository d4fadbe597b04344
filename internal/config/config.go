package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the catalog sync service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database (job run logs)
	DatabaseURL string

	// Redis queue
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueBaseName string

	// Worker
	WorkerConcurrency       int
	MaxJobsPerClient        int
	JobTimeout              time.Duration
	QueueWaitTimeout        time.Duration
	TerminationPollInterval time.Duration

	// Internal catalog API
	CatalogAPIURL       string
	CatalogServiceToken string
	CatalogRateLimit    int // requests per second

	// Shopify bulk operations
	BulkPollInterval time.Duration
	BulkPollTimeout  time.Duration
	ImportBatchSize  int

	// Artifacts
	S3Bucket  string
	AWSRegion string

	// Events
	NATSUrl string

	// Channel/policy tables
	TablesPath string
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "catalog_sync")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8086"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		QueueBaseName: getEnv("QUEUE_BASE_NAME", "transformation_jobs"),

		WorkerConcurrency:       getEnvAsInt("WORKER_CONCURRENCY", 12),
		MaxJobsPerClient:        getEnvAsInt("MAX_JOBS_PER_CLIENT", 2),
		JobTimeout:              getEnvAsDuration("JOB_TIMEOUT", 60*time.Minute),
		QueueWaitTimeout:        getEnvAsDuration("QUEUE_WAIT_TIMEOUT", 5*time.Minute),
		TerminationPollInterval: getEnvAsDuration("TERMINATION_POLL_INTERVAL", 5*time.Second),

		CatalogAPIURL:       getEnv("CATALOG_API_URL", "http://catalog-service:8080"),
		CatalogServiceToken: getEnv("CATALOG_SERVICE_TOKEN", ""),
		CatalogRateLimit:    getEnvAsInt("CATALOG_RATE_LIMIT", 10),

		BulkPollInterval: getEnvAsDuration("BULK_POLL_INTERVAL", 10*time.Second),
		BulkPollTimeout:  getEnvAsDuration("BULK_POLL_TIMEOUT", 30*time.Minute),
		ImportBatchSize:  getEnvAsInt("IMPORT_BATCH_SIZE", 100),

		S3Bucket:  getEnv("S3_BUCKET", ""),
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),

		NATSUrl: getEnv("NATS_URL", ""),

		TablesPath: getEnv("TABLES_PATH", ""),
	}

	// Validate required fields
	if config.CatalogServiceToken == "" {
		log.Println("Warning: CATALOG_SERVICE_TOKEN not set, catalog API calls will be unauthenticated")
	}
	if config.S3Bucket == "" {
		log.Println("Warning: S3_BUCKET not set, artifact upload will be disabled")
	}

	return config
}

// QueueName returns the environment-scoped queue this instance consumes
func (c *Config) QueueName() string {
	return fmt.Sprintf("%s_%s", c.Environment, c.QueueBaseName)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
