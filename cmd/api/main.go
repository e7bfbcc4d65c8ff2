package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/truthguard-go-api/internal/config"
	"github.com/noah-isme/truthguard-go-api/internal/database"
	"github.com/noah-isme/truthguard-go-api/internal/handler"
	"github.com/noah-isme/truthguard-go-api/internal/middleware"
	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/internal/observability"
	"github.com/noah-isme/truthguard-go-api/internal/repository"
	"github.com/noah-isme/truthguard-go-api/internal/router"
	"github.com/noah-isme/truthguard-go-api/internal/service"
	"github.com/noah-isme/truthguard-go-api/internal/stats"
	"github.com/noah-isme/truthguard-go-api/internal/web"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}
	logger = logger.With().Str("service", cfg.AppName).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.SensorReading{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	built, err := buildScorers(cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("scorer", cfg.TextScorer).Msg("failed to build text scorer")
	}
	defer func() {
		if err := built.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release scorer resources")
		}
	}()

	dashboard, err := web.NewDashboard()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dashboard")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	aggregate := stats.New(cfg.AccuracyRate, observability.MirrorStats)

	feedService := service.NewFeedService(redisClient, natsConn, cfg.FeedChannel, logger)
	feedService.Start(rootCtx)

	detectionService := service.NewDetectionService(built.text, built.image, aggregate, feedService, validate, logger)
	sensorService := service.NewSensorService(repository.NewSensorReadingRepository(db), feedService, validate, logger)

	var detectLimiter fiber.Handler
	if cfg.RateLimitMax > 0 {
		detectLimiter = middleware.RateLimit("detect", cfg.RateLimitMax, cfg.RateLimitWindow, handler.RateLimited)
	}

	var sensorGuards []fiber.Handler
	if cfg.SensorSecret != "" {
		sensorGuards = append(sensorGuards,
			middleware.DeviceAuth(cfg.SensorSecret),
			middleware.RequireScope(middleware.ScopeSensorsWrite),
		)
	} else {
		logger.Warn().Msg("TRUTHGUARD_SENSOR_SECRET not set; sensor ingestion is unauthenticated")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxBodyBytes,
		ErrorHandler: handler.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AccessLog})
	router.Register(app, cfg, router.Dependencies{
		DetectionHandler: handler.NewDetectionHandler(detectionService, detectLimiter, logger),
		StatsHandler:     handler.NewStatsHandler(detectionService),
		SensorHandler:    handler.NewSensorHandler(sensorService, logger, sensorGuards...),
		FeedHandler:      handler.NewFeedHandler(feedService, detectionService, logger),
		DashboardHandler: handler.NewDashboardHandler(dashboard, detectionService, cfg.AppName, cfg.TextScorer, logger),
		DependencyChecks: dependencyChecks(db, redisClient, natsConn),
	})

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddress()).
			Str("text_scorer", built.text.Name()).
			Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(rootCtx, app, logger)
}

func dependencyChecks(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		checks["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
