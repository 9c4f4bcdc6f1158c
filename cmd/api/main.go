package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ingestion-portal/internal/api"
	"ingestion-portal/internal/approval"
	"ingestion-portal/internal/auth"
	"ingestion-portal/internal/cache"
	"ingestion-portal/internal/config"
	"ingestion-portal/internal/db"
	"ingestion-portal/internal/directory"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/qos"
	"ingestion-portal/internal/queue"
	"ingestion-portal/internal/roles"
	"ingestion-portal/internal/schema"
	"ingestion-portal/internal/storage"
	"ingestion-portal/internal/upload"
	"ingestion-portal/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

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

	producer := queue.NewProducer(redisClient, cfg)
	roleService := roles.NewService(db.NewRoleRepository(database))
	directoryService := directory.NewService(directory.NewClient(cfg.Directory))

	handler := api.NewHandler(cfg, api.Services{
		Uploads:   upload.NewService(cfg, db.NewUploadRepository(database), store, producer),
		Approvals: approval.NewService(cfg, store, db.NewApprovalRepository(database)),
		Schemas: schema.NewService(
			schema.NewWarehouseSource(warehouse, cfg.Warehouse.Name),
			cache.NewRedisCache(redisClient.Client()),
			cache.NewKeys(cfg.Cache),
			cfg.Cache.DefaultTTL,
			pool,
		),
		Roles:     roleService,
		Directory: directoryService,
		QoS:       qos.NewService(db.NewQoSRepository(database)),
	})
	authn := api.AuthMiddleware(
		auth.NewVerifier(cfg.Auth),
		auth.NewResolver(directoryService, roleService),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxFileSize
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())
	router.Use(api.CORSMiddleware(cfg.Server.AllowedOrigins))

	api.SetupRoutes(router, handler, authn)
	if cfg.App.Env == "production" && cfg.Server.StaticDir != "" {
		api.SetupSPA(router, cfg.Server.StaticDir)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
