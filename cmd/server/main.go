package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/config"
	appmodel "github.com/FoldlyDev/foldly-server/internal/app/model"
	apprepository "github.com/FoldlyDev/foldly-server/internal/app/repository"
	appserver "github.com/FoldlyDev/foldly-server/internal/app/server"
	appservice "github.com/FoldlyDev/foldly-server/internal/app/service"
	"github.com/FoldlyDev/foldly-server/internal/infra/logger"
	infraNATS "github.com/FoldlyDev/foldly-server/internal/infra/nats"
	"github.com/FoldlyDev/foldly-server/internal/infra/objectstore"
	infraPostgres "github.com/FoldlyDev/foldly-server/internal/infra/postgres"
	infraPrometheus "github.com/FoldlyDev/foldly-server/internal/infra/prometheus"
	infraRedis "github.com/FoldlyDev/foldly-server/internal/infra/redis"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.String("minio_endpoint", cfg.MinIO.Endpoint),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.User{},
		&appmodel.Link{},
		&appmodel.Folder{},
		&appmodel.Batch{},
		&appmodel.File{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	store, err := objectstore.NewMinioStore(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("Failed to connect to MinIO", zap.Error(err))
	}
	log.Info("Connected to MinIO successfully", zap.String("bucket", cfg.MinIO.Bucket))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	userRepo := apprepository.NewUserRepository(gormDB)
	linkRepo := apprepository.NewLinkRepository(gormDB, pool)
	folderRepo := apprepository.NewFolderRepository(gormDB)
	batchRepo := apprepository.NewBatchRepository(gormDB)

	events := appservice.NewEventPublisher(natsConn, js)
	cache := appservice.NewLinkCache(redisClient, log)

	availability := appservice.NewAvailabilityService(linkRepo, log)
	if err := availability.Warm(ctx); err != nil {
		log.Warn("Failed to warm slug filter, continuing cold", zap.Error(err))
	}

	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Links:        linkRepo,
		Folders:      folderRepo,
		Availability: availability,
		Events:       events,
		Cache:        cache,
		Logger:       log,
	})
	brandingService := appservice.NewBrandingService(linkRepo, store, log)
	publicService := appservice.NewPublicService(linkRepo, cache, events, log)

	consumer := appservice.NewUploadConsumer(js, log, linkRepo, batchRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start upload consumer", zap.Error(err))
	}

	sweeper := appservice.NewExpirySweeper(log, linkRepo, cfg.Links.ExpirySweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:       log,
		Postgres:     pool,
		Redis:        redisClient,
		Users:        userRepo,
		Links:        linkService,
		Availability: availability,
		Branding:     brandingService,
		Public:       publicService,
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
		JWTExpiresIn: cfg.JWT.ExpiresIn,
		GrantSecret:  []byte(cfg.JWT.Secret),
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
