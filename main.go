package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jkouadio/educarriereworker/config"
	"jkouadio/educarriereworker/logger"
	"jkouadio/educarriereworker/services/cache"
	"jkouadio/educarriereworker/services/publisher"
	"jkouadio/educarriereworker/services/storage"
	"jkouadio/educarriereworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Int("max_pages", cfg.MaxPages).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Connect the durable store; no reachable store makes the run useless
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema")
	}
	logger.Info("Connected to Postgres")

	// Initialize cache service for rate-limit block windows
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	defer redisPublisher.Close()
	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	// Create and start worker
	w := worker.NewWorker(ctx, cfg, store, redisPublisher, cacheService)

	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting crawl worker")
		workerDone <- w.Start()
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
			os.Exit(1)
		}
		log.Info().Msg("Worker exited normally")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}
