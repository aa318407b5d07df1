package dynatable

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/dynatable/internal/registry"
)

// Config represents the complete configuration for a dynatable client.
// It can be loaded from YAML or JSON, or built in code starting from DefaultConfig.
type Config struct {
	// Database selects and configures the relational engine.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Cache configures the optional shared schema cache.
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Events configures the optional schema event stream that keeps several
	// client instances in agreement about which tables exist.
	Events EventsConfig `yaml:"events" json:"events"`

	// Registry tunes the schema registry.
	Registry RegistryConfig `yaml:"registry" json:"registry"`
}

// DatabaseConfig contains configuration for the relational database.
type DatabaseConfig struct {
	// Type is the engine: "mysql", "postgres", "sqlite" or "duckdb".
	// "postgresql" and "sqlite3" are accepted as aliases.
	Type string `yaml:"type" json:"type"`

	// Host is the database server hostname or IP address.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the database server port.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Database is the name of the database to connect to.
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// User is the database user.
	User string `yaml:"user,omitempty" json:"user,omitempty"`

	// Password is the database password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// SSLMode is passed to Postgres as sslmode.
	SSLMode string `yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`

	// Path is the database file for sqlite and duckdb.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`

	// ConnectionTimeout bounds the initial connectivity check.
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// CacheConfig configures the shared schema cache.
type CacheConfig struct {
	// Type is "none", "memory", "redis" or "dynamodb".
	Type string `yaml:"type" json:"type"`

	// Namespace prefixes every cache key: {namespace}:schema:{table}.
	Namespace string `yaml:"namespace" json:"namespace"`

	// TTL is how long a cached schema is trusted. Zero never expires.
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// Redis is used when Type is "redis".
	Redis RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`

	// DynamoDB is used when Type is "dynamodb".
	DynamoDB DynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`

	MaxRetries   int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Endpoints is a list of Redis addresses. More than one selects cluster mode.
	Endpoints    []string `yaml:"endpoints" json:"endpoints"`
	Password     string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int      `yaml:"db" json:"db"`
	PoolSize     int      `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int      `yaml:"min_idle_conns" json:"min_idle_conns"`
}

// DynamoDBConfig contains DynamoDB settings. Static credentials are optional;
// the default AWS credential chain is used without them.
type DynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// EventsConfig configures schema event distribution.
type EventsConfig struct {
	// Type is "none", "memory", "redis" or "kafka".
	// "redis" reuses the cache connection and requires Cache.Type "redis".
	Type string `yaml:"type" json:"type"`

	// Stream is the Redis stream key, the Kafka topic, or the in-process channel name.
	Stream string `yaml:"stream" json:"stream"`

	// BufferSize bounds the in-memory log and the Redis stream length.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// Kafka is used when Type is "kafka".
	Kafka KafkaConfig `yaml:"kafka,omitempty" json:"kafka,omitempty"`
}

// KafkaConfig contains configuration for the Kafka event stream.
type KafkaConfig struct {
	// Brokers is a list of Kafka broker addresses (e.g., ["localhost:9092"]).
	Brokers []string `yaml:"brokers" json:"brokers"`

	// GroupID is the consumer group. Empty gives every client its own group
	// so each one sees every event.
	GroupID string `yaml:"group_id,omitempty" json:"group_id,omitempty"`

	// PollTimeout bounds how long SyncEvents waits for a message.
	PollTimeout time.Duration `yaml:"poll_timeout" json:"poll_timeout"`

	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// RegistryConfig tunes the stale-schema sweep.
type RegistryConfig struct {
	// Concurrency bounds parallel catalog probes during EvictStale.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Rate limits catalog probes per second. Zero means unlimited.
	Rate float64 `yaml:"rate" json:"rate"`
}

// DefaultConfig returns a configuration with sensible defaults: a local
// SQLite file, no shared cache and no events.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:              "sqlite",
			Path:              "dynatable.db",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Type:         "none",
			Namespace:    "dynatable",
			TTL:          time.Hour,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Redis: RedisConfig{
				Endpoints:    []string{"localhost:6379"},
				PoolSize:     10,
				MinIdleConns: 2,
			},
		},
		Events: EventsConfig{
			Type:       "none",
			Stream:     "dynatable:schema-events",
			BufferSize: 10000,
			Kafka: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				PollTimeout:  250 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
			},
		},
		Registry: RegistryConfig{
			Concurrency: 4,
		},
	}
}

// GetYAML renders the configuration as YAML.
func (c *Config) GetYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the configuration without opening any connection.
// Problems are reported as *ConfigError.
func (c *Config) Validate() error {
	data, err := c.GetYAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	return registry.NewConfigManager().LoadFromYAML(data)
}
