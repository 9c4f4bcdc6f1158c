package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ingestion-portal/internal/cache"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/queue"
	"ingestion-portal/internal/schema"
	"ingestion-portal/internal/storage"
	"ingestion-portal/internal/upload"
)

// runtime holds the connections a maintenance command needs.
type runtime struct {
	cfg       *config.Config
	database  *sql.DB
	warehouse *sql.DB
	redis     *queue.RedisClient
	store     storage.Storage
}

func openRuntime(withWarehouse bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	rt := &runtime{cfg: cfg}
	if rt.database, err = db.NewConnection(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if withWarehouse {
		if rt.warehouse, err = db.Open(cfg.Warehouse); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
		}
	}
	if rt.redis, err = queue.NewRedisClient(cfg); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if rt.store, err = storage.NewS3Storage(cfg); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return rt, nil
}

func (rt *runtime) uploads() *upload.Service {
	return upload.NewService(rt.cfg, db.NewUploadRepository(rt.database), rt.store, queue.NewProducer(rt.redis, rt.cfg))
}

func (rt *runtime) schemas() *schema.Service {
	return schema.NewService(
		schema.NewWarehouseSource(rt.warehouse, rt.cfg.Warehouse.Name),
		cache.NewRedisCache(rt.redis.Client()),
		cache.NewKeys(rt.cfg.Cache),
		rt.cfg.Cache.DefaultTTL,
		inline{},
	)
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.database != nil {
		errs = append(errs, rt.database.Close())
	}
	if rt.warehouse != nil {
		errs = append(errs, rt.warehouse.Close())
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	return errors.Join(errs...)
}

// inline runs cache population synchronously; a one-shot command has no pool to drain.
type inline struct{}

func (inline) Submit(job func(context.Context) error) bool {
	_ = job(context.Background())
	return true
}
