package registry

import (
	"time"

	"github.com/rzpsarthak13/dynatable/internal/database"
	"github.com/rzpsarthak13/dynatable/internal/events"
	"github.com/rzpsarthak13/dynatable/internal/kvstore"
)

// InternalConfig represents the internal configuration structure.
// This is a copy of the public Config type to avoid import cycles.
type InternalConfig struct {
	Database InternalDatabaseConfig `yaml:"database" json:"database"`
	Cache    InternalCacheConfig    `yaml:"cache" json:"cache"`
	Events   InternalEventsConfig   `yaml:"events" json:"events"`
	Registry InternalRegistryConfig `yaml:"registry" json:"registry"`
}

// InternalDatabaseConfig contains configuration for the storage engine.
type InternalDatabaseConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`

	// Path is the database file of embedded engines (sqlite, duckdb).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	MaxOpenConns      int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// InternalCacheConfig configures the shared L2 schema cache.
// Supports multiple backends through the kvstore factory registry.
type InternalCacheConfig struct {
	// Type is none, memory, redis or dynamodb. Empty means none.
	Type      string        `yaml:"type" json:"type"`
	Namespace string        `yaml:"namespace" json:"namespace"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`

	Redis    InternalRedisConfig    `yaml:"redis,omitempty" json:"redis,omitempty"`
	DynamoDB InternalDynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`

	MaxRetries   int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// InternalRedisConfig contains Redis-specific configuration.
type InternalRedisConfig struct {
	Endpoints    []string `yaml:"endpoints" json:"endpoints"`
	Password     string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int      `yaml:"db" json:"db"`
	PoolSize     int      `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int      `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// InternalDynamoDBConfig contains DynamoDB-specific configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// InternalEventsConfig configures schema event distribution.
type InternalEventsConfig struct {
	// Type is none, memory, redis or kafka. Empty means none.
	Type       string              `yaml:"type" json:"type"`
	Stream     string              `yaml:"stream" json:"stream"`
	BufferSize int                 `yaml:"buffer_size" json:"buffer_size"`
	Kafka      InternalKafkaConfig `yaml:"kafka,omitempty" json:"kafka,omitempty"`
}

// InternalKafkaConfig contains Kafka-specific configuration.
type InternalKafkaConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	GroupID      string        `yaml:"group_id,omitempty" json:"group_id,omitempty"`
	PollTimeout  time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// InternalRegistryConfig tunes the stale-entry sweep.
type InternalRegistryConfig struct {
	// Concurrency bounds parallel catalog probes.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Rate limits catalog probes per second. Zero means unlimited.
	Rate float64 `yaml:"rate" json:"rate"`
}

// CacheEnabled reports whether an L2 schema cache is configured.
func (c *InternalConfig) CacheEnabled() bool {
	return c.Cache.Type != "" && c.Cache.Type != "none"
}

// EventsEnabled reports whether schema events are configured.
func (c *InternalConfig) EventsEnabled() bool {
	return c.Events.Type != "" && c.Events.Type != "none"
}

// DatabaseConfig converts the database section for database.Open.
func (c *InternalConfig) DatabaseConfig() database.Config {
	d := c.Database
	return database.Config{
		Type:              database.NormalizeType(d.Type),
		Host:              d.Host,
		Port:              d.Port,
		Database:          d.Database,
		User:              d.User,
		Password:          d.Password,
		SSLMode:           d.SSLMode,
		Path:              d.Path,
		MaxOpenConns:      d.MaxOpenConns,
		MaxIdleConns:      d.MaxIdleConns,
		ConnMaxLifetime:   d.ConnMaxLifetime,
		ConnMaxIdleTime:   d.ConnMaxIdleTime,
		ConnectionTimeout: d.ConnectionTimeout,
	}
}

// KVStoreConfig converts the cache section for kvstore.Create.
func (c *InternalConfig) KVStoreConfig() kvstore.Config {
	cc := c.Cache
	return kvstore.Config{
		Type:            cc.Type,
		Endpoints:       cc.Redis.Endpoints,
		Password:        cc.Redis.Password,
		DB:              cc.Redis.DB,
		MaxRetries:      cc.MaxRetries,
		PoolSize:        cc.Redis.PoolSize,
		MinIdleConns:    cc.Redis.MinIdleConns,
		DialTimeout:     cc.DialTimeout,
		ReadTimeout:     cc.ReadTimeout,
		WriteTimeout:    cc.WriteTimeout,
		Region:          cc.DynamoDB.Region,
		TableName:       cc.DynamoDB.TableName,
		Endpoint:        cc.DynamoDB.Endpoint,
		AccessKeyID:     cc.DynamoDB.AccessKeyID,
		SecretAccessKey: cc.DynamoDB.SecretAccessKey,
	}
}

// EventsConfig converts the events section for events.Open.
func (c *InternalConfig) EventsConfig() events.Config {
	e := c.Events
	return events.Config{
		Type:         e.Type,
		Stream:       e.Stream,
		BufferSize:   e.BufferSize,
		Brokers:      e.Kafka.Brokers,
		GroupID:      e.Kafka.GroupID,
		PollTimeout:  e.Kafka.PollTimeout,
		WriteTimeout: e.Kafka.WriteTimeout,
	}
}

// RegistryOptions converts the cache and registry sections into registry
// options. Store, Events and Logger are left for the caller.
func (c *InternalConfig) RegistryOptions() Options {
	return Options{
		Namespace:   c.Cache.Namespace,
		CacheTTL:    c.Cache.TTL,
		Concurrency: c.Registry.Concurrency,
		Rate:        c.Registry.Rate,
	}
}
