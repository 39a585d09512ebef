package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/aqi-forecast/internal/logging"
	"github.com/smukkama/aqi-forecast/internal/notification"
	"github.com/smukkama/aqi-forecast/internal/protocol"
	"github.com/smukkama/aqi-forecast/internal/queue"
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

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	logger.Info("Starting Notification Service...")

	// Create email notifier
	notifier := notification.NewEmailNotifier(&cfg.SMTP, logger)

	// Test SMTP connection (optional, will skip if not configured)
	if err := notifier.TestConnection(); err != nil {
		logger.WithError(err).Warn("Notifications will be logged only")
	}

	// Create consumer for alert notifications
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, cfg.Kafka.GroupID)
	defer consumer.Close()
	logger.WithField("topic", cfg.Kafka.TopicAlerts).Info("Kafka consumer initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := &queue.Loop{
		Source:   consumer,
		Logger:   logger,
		Attempts: 3,
		Backoff:  5 * time.Second,
		Handle: func(ctx context.Context, alert *protocol.AlertNotification) error {
			return notifier.SendAlertNotification(alert)
		},
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	logger.Info("Notification Service is running, press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down gracefully...")
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Consumer stopped with error")
	}
}
