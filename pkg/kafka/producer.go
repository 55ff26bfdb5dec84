package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/white/campaign-manager/config"
)

// Producer wraps a Kafka producer
type Producer struct {
	producer *kafka.Producer
	config   config.KafkaConfig
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	configMap := baseConfig(cfg)
	_ = configMap.SetKey("client.id", cfg.ClientID)
	_ = configMap.SetKey("acks", "all")
	if cfg.ProducerTimeout > 0 {
		_ = configMap.SetKey("message.timeout.ms", cfg.ProducerTimeout)
	}

	producer, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	go func() {
		for e := range producer.Events() {
			if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
				log.Printf("kafka delivery to %s failed: %v", topicName(ev), ev.TopicPartition.Error)
			}
		}
	}()

	return &Producer{
		producer: producer,
		config:   cfg,
	}, nil
}

// Produce enqueues a message; delivery failures are reported asynchronously.
func (p *Producer) Produce(topic string, key, value []byte) error {
	return p.producer.Produce(newMessage(topic, key, value), nil)
}

// ProduceSync sends a message and waits for delivery confirmation or ctx cancellation.
func (p *Producer) ProduceSync(ctx context.Context, topic string, key, value []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	if err := p.producer.Produce(newMessage(topic, key, value), deliveryChan); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
		return nil
	}
}

// PublishJSON marshals data to JSON and publishes it keyed by key.
// With a non-nil ctx carrying a deadline the call waits for delivery.
func (p *Producer) PublishJSON(ctx context.Context, topic, key string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	var k []byte
	if key != "" {
		k = []byte(key)
	}
	if _, ok := ctx.Deadline(); ok {
		return p.ProduceSync(ctx, topic, k, payload)
	}
	return p.Produce(topic, k, payload)
}

// Flush waits for all messages to be delivered
func (p *Producer) Flush(timeoutMs int) int {
	return p.producer.Flush(timeoutMs)
}

// Close flushes outstanding messages and closes the producer.
func (p *Producer) Close() {
	if p.producer != nil {
		p.producer.Flush(5000)
		p.producer.Close()
	}
}

func newMessage(topic string, key, value []byte) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   key,
		Value: value,
	}
}

func topicName(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

// baseConfig holds the broker and SASL settings shared by producers and consumers.
func baseConfig(cfg config.KafkaConfig) *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
	}

	if cfg.Username != "" && cfg.Password != "" {
		_ = configMap.SetKey("sasl.mechanism", strings.ToUpper(cfg.SASLMechanism))
		_ = configMap.SetKey("sasl.username", cfg.Username)
		_ = configMap.SetKey("sasl.password", cfg.Password)

		if cfg.SSL {
			_ = configMap.SetKey("security.protocol", "SASL_SSL")
		} else {
			_ = configMap.SetKey("security.protocol", "SASL_PLAINTEXT")
		}
	}
	return configMap
}
