package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/white/campaign-manager/config"
)

// messageSource is the part of *kafka.Consumer the consume loop drives.
type messageSource interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Close() error
}

// Consumer wraps a Kafka consumer
type Consumer struct {
	consumer messageSource
	config   config.KafkaConfig
	backoff  time.Duration
}

// MessageHandler processes one message. A returned error rewinds the
// partition to that message so it is delivered again after a backoff.
type MessageHandler func(ctx context.Context, key, value []byte) error

// NewConsumer creates a consumer in the configured group with manual commits.
func NewConsumer(cfg config.KafkaConfig) (*Consumer, error) {
	configMap := baseConfig(cfg)
	_ = configMap.SetKey("group.id", cfg.ConsumerGroup)
	_ = configMap.SetKey("auto.offset.reset", "earliest")
	_ = configMap.SetKey("enable.auto.commit", false)

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &Consumer{
		consumer: consumer,
		config:   cfg,
		backoff:  time.Second,
	}, nil
}

// Subscribe subscribes to Kafka topics
func (c *Consumer) Subscribe(topics []string) error {
	return c.consumer.SubscribeTopics(topics, nil)
}

// Consume reads messages until ctx is cancelled, calling handler for each one.
// Only fatal client errors stop the loop.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := c.consumer.ReadMessage(time.Second)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) {
				if kerr.IsTimeout() {
					continue
				}
				if kerr.IsFatal() {
					return fmt.Errorf("error reading message: %w", err)
				}
			}
			log.Printf("error reading message: %v", err)
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Printf("error processing message from %s at offset %v: %v", topicName(msg), msg.TopicPartition.Offset, err)
			if err := c.rewind(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if _, err := c.consumer.CommitMessage(msg); err != nil {
			log.Printf("error committing message: %v", err)
		}
	}
}

// rewind waits out the backoff and seeks the partition back to msg so the
// next read returns it again.
func (c *Consumer) rewind(ctx context.Context, msg *kafka.Message) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(c.backoff):
	}
	if err := c.consumer.Seek(msg.TopicPartition, 0); err != nil {
		return fmt.Errorf("failed to seek %s back to offset %v: %w", topicName(msg), msg.TopicPartition.Offset, err)
	}
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() {
	if c.consumer != nil {
		_ = c.consumer.Close()
	}
}
