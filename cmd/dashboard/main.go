package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/alerting"
	"github.com/smukkama/aqi-forecast/internal/cache"
	"github.com/smukkama/aqi-forecast/internal/database"
	"github.com/smukkama/aqi-forecast/internal/dataset"
	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/logging"
	"github.com/smukkama/aqi-forecast/internal/presentation"
	"github.com/smukkama/aqi-forecast/internal/queue"
	"github.com/smukkama/aqi-forecast/internal/scheduler"
	"github.com/smukkama/aqi-forecast/internal/server"
	"github.com/smukkama/aqi-forecast/internal/severity"
	"github.com/smukkama/aqi-forecast/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	logger.Info("Starting AQI Forecast Dashboard...")

	// Connect to database when readings come from Postgres
	var runner dataset.QueryRunner
	if cfg.Pipeline.DataSource == config.SourcePostgres {
		db, err := database.Connect(cfg.Database.ConnectionString())
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		runner = db
		logger.Info("Connected to database")
	}

	source, err := forecast.NewSource(cfg.Pipeline, runner)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dataset source")
	}

	pipeline, err := forecast.New(cfg.Pipeline, source, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create pipeline")
	}

	ctx := context.Background()

	// Result cache and alert state live in Redis when configured
	var store cache.Store = cache.NewMemoryStore(cfg.Redis.CacheTTL)
	var states alerting.StateStore = alerting.NewMemoryStateStore()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		store = cache.NewRedisStore(redisClient, cfg.Redis.CacheTTL)
		states = alerting.NewRedisStateStore(redisClient)
		logger.WithField("addr", cfg.Redis.Addr).Info("Connected to Redis")
	}

	// Alert notifications go to Kafka when brokers are configured
	var publisher alerting.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, 1, 1); err != nil {
			logger.WithError(err).Warn("Topic creation failed")
		}
		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
		defer producer.Close()
		publisher = producer
		logger.WithField("topic", cfg.Kafka.TopicAlerts).Info("Alert producer initialized")
	}

	minSeverity, _ := severity.Parse(cfg.Alerting.MinSeverity)
	evaluator := alerting.NewEvaluator(states, publisher, minSeverity, logger)

	refresher := scheduler.New(pipeline, store, evaluator, logger)

	// Warm the cache; a failure here is shown on the dashboard instead
	if _, err := refresher.RunOnce(ctx); err != nil {
		logger.WithError(err).Warn("Initial forecast failed")
	}

	if cfg.Refresh.Schedule != "" {
		if err := refresher.Start(cfg.Refresh.Schedule); err != nil {
			logger.WithError(err).Fatal("Failed to start refresh schedule")
		}
		defer refresher.Stop()
		logger.WithField("schedule", cfg.Refresh.Schedule).Info("Scheduled refresh started")
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := presentation.DefaultOptions(cfg.Pipeline.WindowSize)
	if cfg.Pipeline.DataSource == config.SourcePostgres {
		opts.Source = "the database"
	}
	router := server.NewRouter(refresher, logger, opts)

	httpServer := server.NewHTTPServer(&cfg.HTTP, router, logger)
	if err := httpServer.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start HTTP server")
	}

	logger.Info("AQI Forecast Dashboard is running, press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
}
