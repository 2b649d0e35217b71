package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/infra/config"
	"github.com/VoltanFr/memcheck-sub004/internal/infra/database"
	kafkainfra "github.com/VoltanFr/memcheck-sub004/internal/infra/kafka"
	"github.com/VoltanFr/memcheck-sub004/internal/infra/logger"
	redisinfra "github.com/VoltanFr/memcheck-sub004/internal/infra/redis"
	"github.com/VoltanFr/memcheck-sub004/internal/infra/telemetry"
	postgresrepo "github.com/VoltanFr/memcheck-sub004/internal/repository/postgres"
	redisrepo "github.com/VoltanFr/memcheck-sub004/internal/repository/redis"
	"github.com/VoltanFr/memcheck-sub004/internal/transport/http/middleware"
	"github.com/VoltanFr/memcheck-sub004/internal/transport/http/routes"
	"github.com/VoltanFr/memcheck-sub004/internal/usecase"
)

// Application wires the versioning engine together and owns the process
// lifecycle.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	tracing *telemetry.TracerProvider
}

// New builds the application from configuration: storage, cache, events,
// services, and the HTTP engine.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.Postgres.RunMigrations {
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient *redisinfra.Client
	var nameCache port.UserNameCache
	if cfg.Redis.Host != "" {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		nameCache = redisrepo.NewUserNameCache(redisClient.Client(), cfg.Redis.UserNamePrefix)
	} else {
		log.Info("redis not configured, user name cache disabled")
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)

	versionTx := usecase.VersionTxFunc(func(ctx context.Context, fn func(cards port.CardRepository, versions port.CardVersionRepository, subscriptions port.CardSubscriptionRepository) error) error {
		return repos.WithinTx(ctx, func(tx *postgresrepo.Repositories) error {
			return fn(tx.Cards, tx.Versions, tx.Subscriptions)
		})
	})

	metrics := telemetry.NewVersioningMetrics()

	writer := usecase.NewVersionWriter(repos.Users, versionTx, eventPublisher).
		WithLogger(log).
		WithMetrics(metrics)

	history := usecase.NewHistoryService(repos.Cards, repos.Versions).
		WithLogger(log)

	diff := usecase.NewDiffService(repos.Versions, repos.Cards, repos.Users, repos.Tags).
		WithLogger(log).
		WithMetrics(metrics)
	if nameCache != nil {
		diff = diff.WithNameCache(nameCache, cfg.Diff.UserNameCacheTTL)
	}

	notifications := usecase.NewNotificationService(repos.Users, repos.Subscriptions, repos.Versions).
		WithLogger(log).
		WithMetrics(metrics)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	var cache routes.CacheChecker
	if redisClient != nil {
		cache = redisClient
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       cache,
		Services: routes.ServiceSet{
			Writer:        writer,
			History:       history,
			Diff:          diff,
			Notifications: notifications,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		tracing: tracing,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting card versioning API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
