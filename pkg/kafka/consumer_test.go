package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// partitionLog replays one partition and records commits and seeks.
type partitionLog struct {
	messages   []*kafka.Message
	pos        int
	readErrors []error
	commits    []kafka.Offset
	seeks      []kafka.Offset
}

func newPartitionLog(values ...string) *partitionLog {
	topic := "campaign-sync"
	l := &partitionLog{}
	for i, v := range values {
		l.messages = append(l.messages, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(i)},
			Value:          []byte(v),
		})
	}
	return l
}

func (l *partitionLog) SubscribeTopics([]string, kafka.RebalanceCb) error { return nil }

func (l *partitionLog) ReadMessage(time.Duration) (*kafka.Message, error) {
	if len(l.readErrors) > 0 {
		err := l.readErrors[0]
		l.readErrors = l.readErrors[1:]
		return nil, err
	}
	if l.pos >= len(l.messages) {
		return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
	}
	msg := l.messages[l.pos]
	l.pos++
	return msg, nil
}

func (l *partitionLog) CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error) {
	l.commits = append(l.commits, m.TopicPartition.Offset)
	return nil, nil
}

func (l *partitionLog) Seek(tp kafka.TopicPartition, _ int) error {
	l.seeks = append(l.seeks, tp.Offset)
	l.pos = int(tp.Offset)
	return nil
}

func (l *partitionLog) Close() error { return nil }

func TestConsumer_Consume(t *testing.T) {
	t.Run("failed message is redelivered before the next is committed", func(t *testing.T) {
		part := newPartitionLog("a", "b")
		c := &Consumer{consumer: part, backoff: time.Millisecond}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var handled []string
		failures := 1
		err := c.Consume(ctx, func(_ context.Context, _, value []byte) error {
			handled = append(handled, string(value))
			if string(value) == "a" && failures > 0 {
				failures--
				return errors.New("mongo unavailable")
			}
			if string(value) == "b" {
				cancel()
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "a", "b"}, handled)
		assert.Equal(t, []kafka.Offset{0}, part.seeks)
		assert.Equal(t, []kafka.Offset{0, 1}, part.commits)
	})

	t.Run("cancelled during backoff stops without committing", func(t *testing.T) {
		part := newPartitionLog("a")
		c := &Consumer{consumer: part, backoff: time.Hour}
		ctx, cancel := context.WithCancel(context.Background())

		err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
			cancel()
			return errors.New("redis unavailable")
		})

		require.NoError(t, err)
		assert.Empty(t, part.commits)
		assert.Empty(t, part.seeks)
	})

	t.Run("transient read error keeps consuming", func(t *testing.T) {
		part := newPartitionLog("a")
		part.readErrors = []error{
			kafka.NewError(kafka.ErrTransport, "broker down", false),
			errors.New("unexpected"),
		}
		c := &Consumer{consumer: part, backoff: time.Millisecond}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
			cancel()
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []kafka.Offset{0}, part.commits)
	})

	t.Run("fatal read error is returned", func(t *testing.T) {
		part := newPartitionLog()
		part.readErrors = []error{kafka.NewError(kafka.ErrFatal, "fenced", true)}
		c := &Consumer{consumer: part, backoff: time.Millisecond}

		err := c.Consume(context.Background(), func(context.Context, []byte, []byte) error {
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "fenced")
	})
}
