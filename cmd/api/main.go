package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/labcompare/push-dispatcher/internal/config"
	"github.com/labcompare/push-dispatcher/internal/handler"
	"github.com/labcompare/push-dispatcher/internal/infra/postgresql"
	"github.com/labcompare/push-dispatcher/internal/infra/postgresql/migrations"
	infraredis "github.com/labcompare/push-dispatcher/internal/infra/redis"
	"github.com/labcompare/push-dispatcher/internal/observability"
	"github.com/labcompare/push-dispatcher/internal/provider"
	"github.com/labcompare/push-dispatcher/internal/repository"
	"github.com/labcompare/push-dispatcher/internal/service"
	"github.com/labcompare/push-dispatcher/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	taskRepo := repository.NewGormTaskRepo(db)
	userRepo := repository.NewGormUserRepo(db)
	journeyRepo := repository.NewGormJourneyRepo(db)

	gateway, err := provider.NewGatewayProvider(cfg.PushGatewayURL, cfg.PushGatewayKey)
	if err != nil {
		logger.Fatal("push gateway initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	cycleLock, err := infraredis.NewCycleLock(rdb, 0)
	if err != nil {
		logger.Fatal("cycle lock initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(
		taskRepo,
		userRepo,
		gateway,
		rateLimiter,
		cycleLock,
		cfg.PollInterval(),
		cfg.BatchSize,
		cfg.DeliveryTimeout(),
		logger.Named("dispatcher"),
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	journeyService, err := service.NewJourneyService(taskRepo, userRepo, journeyRepo, logger.Named("journeys"))
	if err != nil {
		logger.Fatal("journey service initialization failed", zap.Error(err))
	}

	subscriptionService, err := service.NewSubscriptionService(userRepo, logger.Named("subscriptions"))
	if err != nil {
		logger.Fatal("subscription service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger.Named("http")),
		DisableStartupMessage: true,
	})
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterPushRoutes(app, journeyService, subscriptionService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("dispatcher started",
			zap.Duration("pollInterval", cfg.PollInterval()),
			zap.Int("batchSize", cfg.BatchSize),
		)
		return dispatcher.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service exited", zap.Error(err))
	}

	logger.Info("stopped")
}
