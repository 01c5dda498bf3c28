package config

import (
	"os"
	"strconv"
	"time"

	apperr "jkouadio/educarriereworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Rendering proxy (ScraperAPI-compatible endpoint)
	ScraperAPIKey      string
	ScraperAPIEndpoint string
	RenderWaitMs       int

	// Target site
	BaseURL    string
	MaxPages   int
	MaxRetries int

	// Output artifacts (checkpoints, session logs, debug dumps)
	OutputDir string

	// Storage
	DatabaseURL string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Scheduling
	CrawlInterval time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "3"))
	maxRetries, _ := strconv.Atoi(getEnv("MAX_RETRIES", "3"))
	renderWait, _ := strconv.Atoi(getEnv("RENDER_WAIT_MS", "3000"))
	intervalHours, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_HOURS", "6"))

	return Config{
		ScraperAPIKey:        getEnv("SCRAPER_API_KEY", ""),
		ScraperAPIEndpoint:   getEnv("SCRAPER_API_ENDPOINT", "https://api.scraperapi.com/"),
		RenderWaitMs:         renderWait,
		BaseURL:              getEnv("EDUCARRIERE_BASE_URL", "https://emploi.educarriere.ci"),
		MaxPages:             maxPages,
		MaxRetries:           maxRetries,
		OutputDir:            getEnv("OUTPUT_DIR", "educarriere_data"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "jobpostings"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		CrawlInterval:        time.Duration(intervalHours) * time.Hour,
		Environment:          getEnv("EDUCARRIERE_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable for a crawl run
func (c *Config) Validate() error {
	if c.ScraperAPIKey == "" {
		return apperr.NewConfiguration("SCRAPER_API_KEY is required", nil)
	}
	if c.DatabaseURL == "" {
		return apperr.NewConfiguration("DATABASE_URL is required", nil)
	}
	if c.MaxPages < 1 {
		return apperr.NewConfiguration("MAX_PAGES must be at least 1", nil)
	}
	if c.MaxRetries < 1 {
		return apperr.NewConfiguration("MAX_RETRIES must be at least 1", nil)
	}
	if c.CrawlInterval < time.Hour {
		return apperr.NewConfiguration("CRAWL_INTERVAL_HOURS must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
