package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"ingestion-portal/internal/cache"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/queue"
	"ingestion-portal/internal/schema"
	"ingestion-portal/internal/storage"
	"ingestion-portal/internal/upload"
	"ingestion-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting scheduler")

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	warehouse, err := db.Open(cfg.Warehouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to warehouse")
	}
	defer warehouse.Close()

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	store, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewWorkerPool(cfg.Workers.Pool.Count)
	pool.Start(ctx)
	defer pool.Stop()

	uploads := upload.NewService(cfg, db.NewUploadRepository(database), store, queue.NewProducer(redisClient, cfg))
	schemas := schema.NewService(
		schema.NewWarehouseSource(warehouse, cfg.Warehouse.Name),
		cache.NewRedisCache(redisClient.Client()),
		cache.NewKeys(cfg.Cache),
		cfg.Cache.DefaultTTL,
		pool,
	)

	scheduler := worker.NewScheduler(cfg.Workers.Schedules.RunOnStart,
		worker.PortalTasks(cfg.Workers.Schedules, schemas, uploads)...)
	results := worker.NewQualityResultWorker(queue.NewConsumer(redisClient, cfg), uploads)

	var wg sync.WaitGroup
	for name, start := range map[string]func(context.Context) error{
		"scheduler":      scheduler.Start,
		"quality-result": results.Start,
	} {
		wg.Add(1)
		go func(name string, start func(context.Context) error) {
			defer wg.Done()
			if err := start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("worker", name).Msg("Worker stopped with error")
			}
		}(name, start)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down scheduler...")
	cancel()
	wg.Wait()

	log.Info().Msg("Scheduler exited")
}
