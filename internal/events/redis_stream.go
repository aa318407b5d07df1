package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

const streamField = "event"

// RedisStreamQueue implements core.EventQueue on a Redis stream. Each queue
// tracks its own last-read ID, so every instance sees every event.
type RedisStreamQueue struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	logger *slog.Logger

	mu     sync.Mutex
	lastID string
	closed bool
}

// NewRedisStreamQueue opens a reader positioned after the newest entry.
// The client is shared and not closed by the queue.
func NewRedisStreamQueue(ctx context.Context, client redis.UniversalClient, stream string, maxLen int64, logger *slog.Logger) (*RedisStreamQueue, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if maxLen <= 0 {
		maxLen = defaultBufferSize
	}

	lastID := "0-0"
	latest, err := client.XRevRangeN(ctx, stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read stream %s: %w", stream, err)
	}
	if len(latest) > 0 {
		lastID = latest[0].ID
	}

	logger.Debug("redis event stream opened", "stream", stream, "last_id", lastID)
	return &RedisStreamQueue{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
		lastID: lastID,
	}, nil
}

// Publish appends the event to the stream, trimming it to roughly maxLen entries.
func (q *RedisStreamQueue) Publish(ctx context.Context, event *core.SchemaEvent) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
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

	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{streamField: data},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish schema event: %w", err)
	}
	q.logger.Debug("schema event published", "table", event.Table, "kind", event.Kind)
	return nil
}

// Poll reads entries after the last seen ID without blocking.
func (q *RedisStreamQueue) Poll(ctx context.Context, max int) ([]*core.SchemaEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	res, err := q.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{q.stream, q.lastID},
		Count:   int64(pollSize(max)),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []*core.SchemaEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to poll schema events: %w", err)
	}

	out := make([]*core.SchemaEvent, 0)
	for _, stream := range res {
		for _, msg := range stream.Messages {
			q.lastID = msg.ID
			raw, ok := msg.Values[streamField].(string)
			if !ok {
				q.logger.Warn("skipping malformed stream entry", "id", msg.ID)
				continue
			}
			event, err := decode([]byte(raw))
			if err != nil {
				q.logger.Warn("skipping malformed stream entry", "id", msg.ID, "error", err)
				continue
			}
			out = append(out, event)
		}
	}
	return out, nil
}

// Size counts the entries after the last seen ID, up to the stream bound.
func (q *RedisStreamQueue) Size() int {
	q.mu.Lock()
	lastID := q.lastID
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := q.client.XRangeN(ctx, q.stream, "("+lastID, "+", q.maxLen).Result()
	if err != nil {
		return 0
	}
	return len(msgs)
}

// Close stops the queue. The shared client stays open.
func (q *RedisStreamQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
