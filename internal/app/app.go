package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SkyToti/SistemaLibreria/internal/auth"
	"github.com/SkyToti/SistemaLibreria/internal/config"
	"github.com/SkyToti/SistemaLibreria/internal/event"
	handler "github.com/SkyToti/SistemaLibreria/internal/handler/http"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	"github.com/SkyToti/SistemaLibreria/internal/repository/postgres"
	redisrepo "github.com/SkyToti/SistemaLibreria/internal/repository/redis"
	"github.com/SkyToti/SistemaLibreria/internal/repository/rpc"
	"github.com/SkyToti/SistemaLibreria/internal/service"
	"github.com/SkyToti/SistemaLibreria/migrations"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
	"github.com/SkyToti/SistemaLibreria/pkg/health"
	"github.com/SkyToti/SistemaLibreria/pkg/httpclient"
	pkgkafka "github.com/SkyToti/SistemaLibreria/pkg/kafka"
	"github.com/SkyToti/SistemaLibreria/pkg/tracing"
)

const (
	serviceName    = "libreria-pos"
	serviceVersion = "0.1.0"

	consumerGroupPrefix = "libreria-pos-"
	idempotencyTTL      = 24 * time.Hour
	kafkaPingAttempts   = 3
)

// App wires together all dependencies and runs the POS API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	saleCompleted  *pkgkafka.Consumer
	lowStock       *pkgkafka.Consumer
	debouncer      *service.Debouncer
	sequencer      *service.QuerySequencer
	stopRouter     context.CancelFunc
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "pos")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Repositories.
	bookRepo := postgres.NewBookRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	supplierRepo := postgres.NewSupplierRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.CartStorageKey, cfg.CartTTL())
	dashboardCache := redisrepo.NewDashboardCache(redisClient, cfg.DashboardCacheTTL)

	var saleTx repository.SaleTransaction = saleRepo
	if cfg.SaleBackend == config.SaleBackendRPC {
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.SaleRPCTimeout
		saleTx = rpc.NewSaleTransaction(
			httpclient.NewCircuitBreakerClient(
				httpclient.New(clientCfg),
				httpclient.DefaultCircuitBreakerConfig("process-sale"),
				logger,
			),
			cfg.SaleRPCURL,
			logger,
		)
		logger.Info("sale transactions delegated to remote procedure", slog.String("url", cfg.SaleRPCURL))
	}

	// Services.
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	eventProducer := event.NewProducer(producer, logger)
	debouncer := service.NewDebouncer(cfg.CatalogDebounce())

	userService := service.NewUserService(userRepo, tokens, logger)
	sequencer := service.NewQuerySequencer()
	catalogService := service.NewCatalogService(bookRepo, sequencer, logger)
	categoryService := service.NewCategoryService(categoryRepo, logger)
	supplierService := service.NewSupplierService(supplierRepo, logger)
	cartService := service.NewCartService(cartRepo, bookRepo, logger)
	checkoutService := service.NewCheckoutService(
		cartRepo,
		saleTx,
		service.NewStockRefresher(bookRepo, cfg.RefreshMaxElapsed(), logger),
		debouncer,
		eventProducer,
		logger,
	)
	reportService := service.NewReportService(reportRepo, saleRepo, dashboardCache, logger)

	if err := userService.EnsureAdmin(ctx, cfg.BootstrapEmail, cfg.BootstrapPass); err != nil {
		logger.Warn("bootstrap admin not created", slog.String("error", err.Error()))
	}

	// Consumers keep the cached dashboard in step with committed sales.
	eventConsumer := event.NewConsumer(dashboardCache, logger)
	idempotencyStore := pkgkafka.NewRedisIdempotencyStore(redisClient, "pos:events", idempotencyTTL)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

	saleCompleted := newConsumer(cfg, event.TopicSaleCompleted, "sale-completed",
		eventConsumer.HandleSaleCompleted, idempotencyStore, dlq, logger)
	lowStock := newConsumer(cfg, event.TopicLowStock, "low-stock",
		eventConsumer.HandleLowStock, idempotencyStore, dlq, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// routerCtx bounds the rate limiter's visitor sweeper.
	routerCtx, stopRouter := context.WithCancel(context.Background())
	router := handler.NewRouter(routerCtx,
		handler.Services{
			Users:      userService,
			Catalog:    catalogService,
			Categories: categoryService,
			Suppliers:  supplierService,
			Carts:      cartService,
			Checkout:   checkoutService,
			Reports:    reportService,
		},
		handler.RouterConfig{
			Tokens:         tokens.Validator(),
			CORSOrigins:    cfg.CORSOrigins,
			LoginRateRPS:   cfg.LoginRateRPS,
			LoginRateBurst: cfg.LoginRateBurst,
			PprofCIDRs:     cfg.PprofAllowedCIDRs,
		},
		healthHandler,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		dlq:            dlq,
		httpServer:     httpServer,
		saleCompleted:  saleCompleted,
		lowStock:       lowStock,
		debouncer:      debouncer,
		sequencer:      sequencer,
		stopRouter:     stopRouter,
		tracerShutdown: tracerShutdown,
	}, nil
}

func newConsumer(
	cfg *config.Config,
	topic, name string,
	h pkgkafka.Handler,
	store pkgkafka.IdempotencyStore,
	dlq *pkgkafka.DLQProducer,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	group := consumerGroupPrefix + name
	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.KafkaBrokers,
		GroupID:    group,
		Topic:      topic,
		MaxRetries: 3,
		RetryWait:  500 * time.Millisecond,
	}, pkgkafka.IdempotentHandler(store, group, h, logger), logger.With(slog.String("topic", topic))).WithDLQ(dlq)
}

// Run starts the HTTP server and Kafka consumers, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := a.saleCompleted.Start(ctx); err != nil {
			errCh <- fmt.Errorf("sale completed consumer: %w", err)
		}
	}()

	go func() {
		if err := a.lowStock.Start(ctx); err != nil {
			errCh <- fmt.Errorf("low stock consumer: %w", err)
		}
	}()

	go a.sequencer.Run(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in order: HTTP server, pending stock
// confirmations, tracer, Kafka consumers, Kafka producers, Redis, then
// PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.stopRouter()
	if n := a.debouncer.Pending(); n > 0 {
		a.logger.Warn("dropping pending stock confirmations", slog.Int("pending", n))
	}
	a.debouncer.Stop()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.saleCompleted.Close(); err != nil {
		a.logger.Error("sale completed consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.lowStock.Close(); err != nil {
		a.logger.Error("low stock consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry pings the brokers with exponential backoff
// (1s, 2s with 25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.25
	b.MaxInterval = 4 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, producer.Ping(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(kafkaPingAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("kafka producer ping failed, retrying",
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("kafka producer ping failed after %d attempts: %w", kafkaPingAttempts, err)
	}
	return nil
}
