package kvstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoItem is the stored shape. TTL is epoch seconds so the table's native
// TTL attribute can reap expired rows; Get also checks it since reaping is lazy.
type dynamoItem struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	TTL       int64  `dynamodbav:"ttl,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
}

// DynamoDBKVStore implements core.KVStore on a DynamoDB table keyed by "key".
type DynamoDBKVStore struct {
	client    DynamoDBAPI
	tableName string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewDynamoDBKVStore wraps a DynamoDB client.
func NewDynamoDBKVStore(client DynamoDBAPI, tableName string, logger *slog.Logger) *DynamoDBKVStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DynamoDBKVStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// NewDynamoDBClient loads AWS config for cfg and verifies the table exists.
func NewDynamoDBClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, opts...)

	describeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.DescribeTable(describeCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.TableName),
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", cfg.TableName, err)
	}
	return client, nil
}

func (d *DynamoDBKVStore) checkOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

// Get retrieves a value, treating expired items as missing.
func (d *DynamoDBKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if out.Item == nil {
		d.logger.Debug("key not found", "key", key)
		return nil, core.ErrKeyNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("invalid item for key %s: %w", key, err)
	}
	if item.TTL > 0 && d.now().Unix() > item.TTL {
		d.logger.Debug("key expired", "key", key, "ttl", item.TTL)
		return nil, core.ErrKeyNotFound
	}
	return item.Value, nil
}

// Set stores a key-value pair. A zero ttl never expires.
func (d *DynamoDBKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	now := d.now()
	item := dynamoItem{
		Key:       key,
		Value:     value,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if ttl > 0 {
		item.TTL = now.Add(ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal key %s: %w", key, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	d.logger.Debug("key stored", "key", key, "bytes", len(value), "ttl", ttl)
	return nil
}

// Delete removes a key from the store.
func (d *DynamoDBKVStore) Delete(ctx context.Context, key string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       itemKey(key),
	}); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Close marks the store closed. The AWS client holds no connections to release.
func (d *DynamoDBKVStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// DynamoDBKVStoreFactory creates DynamoDB KV stores.
type DynamoDBKVStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *DynamoDBKVStoreFactory) Type() string {
	return "dynamodb"
}

// Validate validates the DynamoDB-specific configuration.
func (f *DynamoDBKVStoreFactory) Validate(cfg Config) error {
	if cfg.Region == "" {
		return &core.ConfigError{Key: "cache.dynamodb.region", Reason: "is required"}
	}
	if cfg.TableName == "" {
		return &core.ConfigError{Key: "cache.dynamodb.table_name", Reason: "is required"}
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return &core.ConfigError{Key: "cache.dynamodb.access_key_id", Reason: "access key and secret must be set together"}
	}
	return nil
}

// Create connects to DynamoDB.
func (f *DynamoDBKVStoreFactory) Create(ctx context.Context, cfg Config, logger *slog.Logger) (core.KVStore, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewDynamoDBKVStore(client, cfg.TableName, logger), nil
}

func init() {
	RegisterFactory(&DynamoDBKVStoreFactory{})
}
