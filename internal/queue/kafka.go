package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/protocol"
)

// Producer publishes alert notifications to Kafka
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Partition by key (horizon)
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		},
	}
}

// Publish sends a message to Kafka
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads alert notifications as part of a consumer group
type Consumer struct {
	reader *kafka.Reader
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       1e6,
			CommitInterval: 0, // commit after the email went out
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// Consume reads the next message without committing it
func (c *Consumer) Consume(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to fetch message: %w", err)
	}
	return msg, nil
}

// Commit commits the message offset
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Source is the subset of Consumer the alert loop needs
type Source interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// AlertHandler processes one decoded alert
type AlertHandler func(ctx context.Context, alert *protocol.AlertNotification) error

// Loop feeds alerts from a Source to a handler until the context ends
type Loop struct {
	Source   Source
	Handle   AlertHandler
	Logger   logrus.FieldLogger
	Attempts int           // handler attempts per message
	Backoff  time.Duration // wait between attempts
}

// Run consumes until ctx is cancelled. Undecodable messages are committed
// and skipped; a message whose handler keeps failing is committed after the
// last attempt so one bad alert cannot stall the partition.
func (l *Loop) Run(ctx context.Context) error {
	attempts := l.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for {
		msg, err := l.Source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.Logger.WithError(err).Error("Failed to consume message")
			if !sleep(ctx, l.Backoff) {
				return ctx.Err()
			}
			continue
		}

		log := l.Logger.WithFields(logrus.Fields{"partition": msg.Partition, "offset": msg.Offset})

		alert, err := protocol.DecodeAlertNotification(msg.Value)
		if err != nil {
			log.WithError(err).Warn("Skipping undecodable notification")
			l.commit(ctx, log, msg)
			continue
		}

		for i := 1; i <= attempts; i++ {
			err = l.Handle(ctx, alert)
			if err == nil {
				break
			}
			log.WithError(err).WithField("attempt", i).Warn("Failed to handle notification")
			if i < attempts && !sleep(ctx, l.Backoff) {
				return ctx.Err()
			}
		}
		if err != nil {
			log.WithField("alert_id", alert.AlertID).Error("Giving up on notification")
		}

		l.commit(ctx, log, msg)
	}
}

func (l *Loop) commit(ctx context.Context, log logrus.FieldLogger, msg kafka.Message) {
	if err := l.Source.Commit(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit offset")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// CreateTopic creates a Kafka topic with the specified number of partitions.
// An existing topic is not an error.
func CreateTopic(brokers []string, topic string, numPartitions int, replicationFactor int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get controller: %w", err)
	}

	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}
