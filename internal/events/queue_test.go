package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/testutil"
)

func TestMemoryQueue_FanOut(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(10)
	a := broker.NewQueue()
	b := broker.NewQueue()

	require.NoError(t, a.Publish(ctx, &core.SchemaEvent{Table: "users", Kind: core.EventCreated, Source: "a"}))
	require.NoError(t, b.Publish(ctx, &core.SchemaEvent{Table: "orders", Kind: core.EventDropped, Source: "b"}))

	assert.Equal(t, 2, a.Size())

	got, err := a.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "users", got[0].Table)
	assert.Equal(t, "orders", got[1].Table)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())

	got, err = b.Poll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "users", got[0].Table)

	got, err = a.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, a.Size())
	assert.Equal(t, 1, b.Size())
}

func TestMemoryQueue_StartsAtEnd(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(10)
	first := broker.NewQueue()
	require.NoError(t, first.Publish(ctx, &core.SchemaEvent{Table: "t", Kind: core.EventCreated}))

	late := broker.NewQueue()
	got, err := late.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryQueue_Capacity(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(2)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(ctx, &core.SchemaEvent{Table: name, Kind: core.EventEvicted}))
	}

	got, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Table)
	assert.Equal(t, "c", got[1].Table)
}

func TestMemoryQueue_Invalid(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(0)

	assert.ErrorIs(t, q.Publish(ctx, nil), ErrInvalidEvent)
	assert.ErrorIs(t, q.Publish(ctx, &core.SchemaEvent{Kind: core.EventCreated}), ErrInvalidEvent)
	assert.ErrorIs(t, q.Publish(ctx, &core.SchemaEvent{Table: "t", Kind: "renamed"}), ErrInvalidEvent)

	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish(ctx, &core.SchemaEvent{Table: "t", Kind: core.EventCreated}), ErrQueueClosed)
	_, err := q.Poll(ctx, 1)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, Config{Type: "memory", Stream: t.Name()}, nil, nil)
	require.NoError(t, err)
	b, err := Open(ctx, Config{Type: "memory", Stream: t.Name()}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, a.Publish(ctx, &core.SchemaEvent{Table: "t", Kind: core.EventCreated}))
	got, err := b.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = Open(ctx, Config{Type: "redis"}, nil, nil)
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Open(ctx, Config{Type: "kafka"}, nil, nil)
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Open(ctx, Config{Type: "nats"}, nil, nil)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestEncodeDecode(t *testing.T) {
	event := &core.SchemaEvent{
		ID:        "1",
		Table:     "users",
		Kind:      core.EventDropped,
		Source:    "r1",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := encode(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","table":"users","kind":"dropped","source":"r1","timestamp":"2024-01-01T00:00:00Z"}`, string(data))

	back, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, event, back)

	_, err = decode([]byte("{"))
	assert.Error(t, err)
}

// TestRedisStreamQueue needs a live server: DYNATABLE_TEST_REDIS=localhost:6379.
func TestRedisStreamQueue(t *testing.T) {
	addr := os.Getenv("DYNATABLE_TEST_REDIS")
	if addr == "" {
		t.Skip("DYNATABLE_TEST_REDIS not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	stream := "dynatable:test:" + t.Name()
	require.NoError(t, client.Del(ctx, stream).Err())

	a, err := NewRedisStreamQueue(ctx, client, stream, 100, testutil.NewTestLogger(t))
	require.NoError(t, err)
	b, err := NewRedisStreamQueue(ctx, client, stream, 100, nil)
	require.NoError(t, err)

	require.NoError(t, a.Publish(ctx, &core.SchemaEvent{Table: "users", Kind: core.EventCreated, Source: "a"}))
	assert.Equal(t, 1, b.Size())

	got, err := b.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "users", got[0].Table)

	got, err = b.Poll(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
