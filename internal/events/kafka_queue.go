package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// KafkaQueueConfig holds configuration for the Kafka queue.
type KafkaQueueConfig struct {
	Brokers []string
	Topic   string

	// GroupID defaults to a unique group per instance so every instance
	// consumes every event.
	GroupID string

	// PollTimeout bounds how long Poll waits for the next message.
	PollTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaQueue implements core.EventQueue on a Kafka topic keyed by table name.
type KafkaQueue struct {
	writer  *kafka.Writer
	reader  *kafka.Reader
	topic   string
	groupID string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaQueue creates a producer and a consumer for the topic. The consumer
// starts at the end of the topic.
func NewKafkaQueue(cfg KafkaQueueConfig, logger *slog.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, &core.ConfigError{Key: "events.brokers", Reason: "at least one Kafka broker is required"}
	}
	if cfg.Topic == "" {
		return nil, &core.ConfigError{Key: "events.stream", Reason: "Kafka topic is required"}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "dynatable-" + uuid.NewString()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 250 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MaxWait:     cfg.PollTimeout,
	})

	logger.Info("kafka event queue initialized", "topic", cfg.Topic, "group", cfg.GroupID)
	return &KafkaQueue{
		writer:  writer,
		reader:  reader,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		timeout: cfg.PollTimeout,
		logger:  logger,
	}, nil
}

// Publish writes the event with the table name as the partition key.
func (q *KafkaQueue) Publish(ctx context.Context, event *core.SchemaEvent) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}
	if err := prepare(event); err != nil {
		return err
	}
	data, err := encode(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Table),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	q.logger.Debug("schema event produced", "topic", q.topic, "table", event.Table, "kind", event.Kind)
	return nil
}

// Poll fetches up to max messages, stopping at the first fetch that times out.
// Offsets are committed as messages are decoded.
func (q *KafkaQueue) Poll(ctx context.Context, max int) ([]*core.SchemaEvent, error) {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, ErrQueueClosed
	}

	max = pollSize(max)
	out := make([]*core.SchemaEvent, 0)
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, q.timeout)
		msg, err := q.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			return out, fmt.Errorf("failed to fetch schema event: %w", err)
		}

		event, err := decode(msg.Value)
		if err != nil {
			q.logger.Warn("skipping malformed message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else {
			out = append(out, event)
		}
		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			q.logger.Warn("failed to commit offset", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
	return out, nil
}

// Size returns the consumer lag reported by the reader.
func (q *KafkaQueue) Size() int {
	lag := q.reader.Stats().Lag
	if lag < 0 {
		return 0
	}
	return int(lag)
}

// Close closes the producer and the consumer.
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	werr := q.writer.Close()
	rerr := q.reader.Close()
	return errors.Join(werr, rerr)
}
