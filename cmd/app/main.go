package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imaginify/internal/api/v1/router"
	"imaginify/internal/config"
	"imaginify/internal/database"
	"imaginify/internal/form"
	"imaginify/internal/logger"
	"imaginify/internal/media"
	"imaginify/internal/metrics"
	"imaginify/internal/pubsub"
	"imaginify/internal/repository"
	"imaginify/internal/service"
	"imaginify/internal/storage"
	"imaginify/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

func main() {
	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		// logger level is not known yet
		bootLog := zerolog.New(os.Stderr)
		bootLog.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Msgf("Error loading config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	ctx := context.Background()
	if cfg.SecretManagerProjectID != "" {
		secrets, err := service.NewSecretManagerService(ctx, cfg.SecretManagerProjectID, logger)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		}
		if err := secrets.ResolveConfig(ctx, cfg); err != nil {
			logger.Fatal().Msgf("Failed to resolve secrets: %v", err)
		}
		_ = secrets.Close()
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Msgf("Invalid config: %v", err)
	}

	// 2. Open the store
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to open store: %v", err)
	}

	// 3. Initialize backends
	provider, err := media.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Cloudinary client: %v", err)
	}

	drafts := form.NewRegistry(cfg.DraftDebounce, cfg.DraftTTL)
	m := metrics.New(func() float64 { return float64(drafts.Len()) })

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "imaginify-api",
		Exporter:     cfg.TraceExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to set up tracing: %v", err)
	}

	deps := router.Deps{
		Store:    store,
		Provider: provider,
		Drafts:   drafts,
		Metrics:  m,
		Tracer:   otel.Tracer("imaginify/api"),
	}

	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(ctx, storage.ClientOptions{
			Endpoint:  cfg.S3URL,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		}
		deps.Stager = storage.NewStager(s3Client, cfg.S3Bucket, cfg.UploadURLTTL)
	}

	var publisher *pubsub.PubSubPublisher
	if cfg.GCPProjectID != "" && cfg.PubSubEventsTopic != "" {
		publisher, err = pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
		}
		deps.Events = pubsub.NewEmitter(publisher, cfg.PubSubEventsTopic, logger)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis ping failed, rate limiter will fail open")
		}
		cancel()
		deps.Redis = redisClient
	}

	// 4. Build router
	r, err := router.New(cfg, logger, deps)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}

	// 5. Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s", err)
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	drafts.Close()
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close store")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush traces")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close Pub/Sub client")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logger.Info().Msg("Server shut down gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("MongoDB connection successful")
		return repository.NewMongoStore(client, db), nil
	case "postgres":
		pool, err := database.OpenPostgres(ctx, cfg.DBConnectionString, cfg.Environment)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Msg("Database connection successful")
		return repository.NewPostgresStore(pool), nil
	default:
		logger.Warn().Msg("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore().Store(), nil
	}
}
