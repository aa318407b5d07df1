// Package events distributes schema change notifications between registry
// instances that share a database.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

var (
	// ErrQueueClosed is returned when publishing to or polling a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrInvalidEvent is returned when an event has no table or kind.
	ErrInvalidEvent = errors.New("invalid schema event")
)

const defaultPollSize = 100

// Config selects and configures an event queue backend.
type Config struct {
	// Type is memory, redis or kafka.
	Type string

	// Stream names the channel: the Redis stream key, the Kafka topic, or the
	// in-process broker.
	Stream string

	// BufferSize bounds the in-memory log and the Redis stream length.
	BufferSize int

	// Kafka
	Brokers      []string
	GroupID      string
	PollTimeout  time.Duration
	WriteTimeout time.Duration
}

// Open creates the queue selected by cfg.Type. The Redis backend requires a
// client, normally the one already opened for the schema cache.
func Open(ctx context.Context, cfg Config, client redis.UniversalClient, logger *slog.Logger) (core.EventQueue, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Stream == "" {
		cfg.Stream = "dynatable:schema-events"
	}

	switch cfg.Type {
	case "memory":
		return SharedBroker(cfg.Stream, cfg.BufferSize).NewQueue(), nil
	case "redis":
		if client == nil {
			return nil, &core.ConfigError{Key: "events.type", Reason: "redis events require a redis cache client"}
		}
		return NewRedisStreamQueue(ctx, client, cfg.Stream, int64(cfg.BufferSize), logger)
	case "kafka":
		return NewKafkaQueue(KafkaQueueConfig{
			Brokers:      cfg.Brokers,
			Topic:        cfg.Stream,
			GroupID:      cfg.GroupID,
			PollTimeout:  cfg.PollTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}, logger)
	default:
		return nil, &core.ConfigError{Key: "events.type", Reason: fmt.Sprintf("unsupported event queue type %q", cfg.Type)}
	}
}

// prepare validates an event and fills its ID and timestamp.
func prepare(event *core.SchemaEvent) error {
	if event == nil {
		return ErrInvalidEvent
	}
	if event.Table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidEvent)
	}
	switch event.Kind {
	case core.EventCreated, core.EventDropped, core.EventEvicted:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, event.Kind)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return nil
}

func encode(event *core.SchemaEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema event: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*core.SchemaEvent, error) {
	var event core.SchemaEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema event: %w", err)
	}
	return &event, nil
}

func pollSize(max int) int {
	if max <= 0 {
		return defaultPollSize
	}
	return max
}
