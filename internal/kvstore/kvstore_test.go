package kvstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/testutil"
)

// exerciseStore runs the behaviour every KVStore shares.
func exerciseStore(t *testing.T, store core.KVStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), 0))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Hour))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, store.Close())
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryKVStore(t *testing.T) {
	exerciseStore(t, NewMemoryKVStore())
}

func TestMemoryKVStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryKVStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
}

// fakeDynamo keeps items in a map keyed by the "key" attribute.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(m map[string]types.AttributeValue) string {
	return m["key"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoDBKVStore(t *testing.T) {
	exerciseStore(t, NewDynamoDBKVStore(newFakeDynamo(), "schemas", testutil.NewTestLogger(t)))
}

func TestDynamoDBKVStore_TTL(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewDynamoDBKVStore(fake, "schemas", nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	ttl, ok := fake.items["k"]["ttl"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "1704067260", ttl.Value)

	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))
	_, hasTTL := fake.items["forever"]["ttl"]
	assert.False(t, hasTTL)

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestFactory_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing type", cfg: Config{}, wantErr: true},
		{name: "unknown type", cfg: Config{Type: "memcached"}, wantErr: true},
		{name: "memory", cfg: Config{Type: "memory"}},
		{name: "redis without endpoints", cfg: Config{Type: "redis"}, wantErr: true},
		{name: "redis bad db", cfg: Config{Type: "redis", Endpoints: []string{"localhost:6379"}, DB: 16}, wantErr: true},
		{name: "redis", cfg: Config{Type: "redis", Endpoints: []string{"localhost:6379"}}},
		{name: "dynamodb without table", cfg: Config{Type: "dynamodb", Region: "us-east-1"}, wantErr: true},
		{name: "dynamodb half credentials", cfg: Config{Type: "dynamodb", Region: "us-east-1", TableName: "t", AccessKeyID: "a"}, wantErr: true},
		{name: "dynamodb", cfg: Config{Type: "dynamodb", Region: "us-east-1", TableName: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []string{"dynamodb", "memory", "redis"}, RegisteredTypes())
	assert.True(t, IsTypeRegistered("redis"))
	assert.False(t, IsTypeRegistered("etcd"))
}

func TestCreate_Memory(t *testing.T) {
	store, err := Create(context.Background(), Config{Type: "memory"}, nil)
	require.NoError(t, err)
	exerciseStore(t, store)
}

// TestRedisKVStore needs a live server: DYNATABLE_TEST_REDIS=localhost:6379.
func TestRedisKVStore(t *testing.T) {
	addr := os.Getenv("DYNATABLE_TEST_REDIS")
	if addr == "" {
		t.Skip("DYNATABLE_TEST_REDIS not set")
	}
	store, err := Create(context.Background(), Config{
		Type:        "redis",
		Endpoints:   []string{addr},
		DialTimeout: time.Second,
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	exerciseStore(t, store)
}
