package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/marketplace/pkg/database"
	"github.com/utafrali/marketplace/pkg/health"
	"github.com/utafrali/marketplace/pkg/httpclient"
	pkgkafka "github.com/utafrali/marketplace/pkg/kafka"
	"github.com/utafrali/marketplace/pkg/middleware"
	"github.com/utafrali/marketplace/pkg/tracing"
	"github.com/utafrali/marketplace/services/catalog/internal/config"
	"github.com/utafrali/marketplace/services/catalog/internal/event"
	handler "github.com/utafrali/marketplace/services/catalog/internal/handler/http"
	"github.com/utafrali/marketplace/services/catalog/internal/mapper"
	"github.com/utafrali/marketplace/services/catalog/internal/media"
	"github.com/utafrali/marketplace/services/catalog/internal/media/storage"
	"github.com/utafrali/marketplace/services/catalog/internal/media/storage/memory"
	s3storage "github.com/utafrali/marketplace/services/catalog/internal/media/storage/s3"
	"github.com/utafrali/marketplace/services/catalog/internal/repository/postgres"
	"github.com/utafrali/marketplace/services/catalog/internal/service"
	"github.com/utafrali/marketplace/services/catalog/internal/taxonomy"
	"github.com/utafrali/marketplace/services/catalog/migrations"
)

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing.
	tcfg := tracing.DefaultConfig("catalog-service")
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "catalog"); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	// Redis for the taxonomy cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Media storage.
	var (
		objects    storage.Storage
		routerOpts []handler.RouterOption
	)
	switch cfg.MediaStorage {
	case config.StorageS3:
		s3cfg := s3storage.Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
			PublicURL:      cfg.S3PublicURL,
		}
		client, err := s3storage.NewClient(ctx, s3cfg)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		objects = s3storage.New(client, s3cfg)
	default:
		mem := memory.New(cfg.MediaBaseURL)
		objects = mem
		routerOpts = append(routerOpts, handler.WithMediaFiles(mem))
	}
	logger.Info("media storage initialized", slog.String("backend", cfg.MediaStorage))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Remote image fetches go through a circuit breaker and never reach
	// internal addresses.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.MediaFetchTimeout
	httpCfg.PublicOnly = true
	fetchClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("image-sideload"),
		logger,
	)

	// Build the dependency graph.
	taxonomies := taxonomy.NewCache(taxonomy.NewStore(pool), redisClient, cfg.TaxonomyCacheTTL, logger)
	library := media.NewLibrary(
		media.NewFetcher(fetchClient, cfg.MediaMaxBytes),
		objects,
		media.NewAssetRepository(pool),
		logger,
	)
	productRepo := postgres.NewProductRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)

	uploadPolicy := mapper.NeverSuppress
	if cfg.StoreSuppressImageUploadErrors {
		uploadPolicy = mapper.AlwaysSuppress
	}
	productMapper := mapper.New(taxonomies, library, productRepo,
		mapper.WithUploadErrorPolicy(uploadPolicy),
		mapper.WithLogger(logger),
	)

	eventProducer := event.NewProducer(producer, logger)
	productService := service.NewProductService(productRepo, storeRepo, productMapper, cfg.StoreSettings(), eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterOptional("kafka", producer.Ping)

	// Seller tokens.
	validateToken := middleware.RS256Validator(nil)
	if cfg.JWTPublicKey != "" {
		pub, err := middleware.LoadRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			_ = producer.Close()
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("load jwt public key: %w", err)
		}
		validateToken = middleware.RS256Validator(pub)
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set, every API request will be rejected")
	}

	// HTTP router.
	routerOpts = append(routerOpts, handler.WithRateLimit(cfg.RateLimit()))
	router := handler.NewRouter(productService, healthHandler, validateToken, handler.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	}, logger, routerOpts...)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.MediaFetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
