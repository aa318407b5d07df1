package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/dynatable/internal/core"
	"github.com/rzpsarthak13/dynatable/internal/database"
	"github.com/rzpsarthak13/dynatable/internal/kvstore"
)

// EnvPrefix prefixes every environment variable read by the config loader.
const EnvPrefix = "DYNATABLE_"

// ConfigValidator is the Strategy interface for validating configuration.
// Each database type provides its own validator for the connection fields
// that type needs.
type ConfigValidator interface {
	// Validate validates the database section for this engine type.
	Validate(config *InternalConfig) error

	// Type returns the engine type this validator handles (e.g., "mysql", "sqlite").
	Type() string
}

var (
	// validatorRegistry stores all registered config validators.
	validatorRegistry = make(map[string]ConfigValidator)

	// validatorRegistryMutex protects the validator registry from concurrent access.
	validatorRegistryMutex sync.RWMutex
)

// ValidationStrategyRegistry provides methods to register and retrieve config validators.
type ValidationStrategyRegistry struct{}

// Register registers a config validator.
// Panics if validator is nil, type is empty, or type is already registered.
func (r *ValidationStrategyRegistry) Register(validator ConfigValidator) {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("validator type cannot be empty")
	}

	validatorRegistryMutex.Lock()
	defer validatorRegistryMutex.Unlock()

	if _, exists := validatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("validator for type %q is already registered", validator.Type()))
	}

	validatorRegistry[validator.Type()] = validator
}

// Get retrieves a validator by type.
func (r *ValidationStrategyRegistry) Get(validatorType string) (ConfigValidator, bool) {
	validatorRegistryMutex.RLock()
	defer validatorRegistryMutex.RUnlock()

	validator, exists := validatorRegistry[validatorType]
	return validator, exists
}

// RegisterValidator registers a validator with the default registry.
// This is the preferred way to register validators from init() functions.
func RegisterValidator(validator ConfigValidator) {
	defaultValidationRegistry.Register(validator)
}

// GetValidator retrieves a validator by type from the default registry.
func GetValidator(validatorType string) (ConfigValidator, bool) {
	return defaultValidationRegistry.Get(validatorType)
}

var defaultValidationRegistry = &ValidationStrategyRegistry{}

// networkValidator validates engines reached over TCP.
type networkValidator struct {
	engine string
}

func (v networkValidator) Type() string { return v.engine }

func (v networkValidator) Validate(config *InternalConfig) error {
	db := config.Database
	switch {
	case db.Host == "":
		return &core.ConfigError{Key: "database.host", Reason: "is required"}
	case db.Port <= 0 || db.Port > 65535:
		return &core.ConfigError{Key: "database.port", Reason: "must be between 1 and 65535"}
	case db.User == "":
		return &core.ConfigError{Key: "database.user", Reason: "is required"}
	case db.Database == "":
		return &core.ConfigError{Key: "database.database", Reason: "is required"}
	}
	return nil
}

// fileValidator validates embedded engines backed by a file.
type fileValidator struct {
	engine string
}

func (v fileValidator) Type() string { return v.engine }

func (v fileValidator) Validate(config *InternalConfig) error {
	if config.Database.Path == "" {
		return &core.ConfigError{Key: "database.path", Reason: "is required (use :memory: for an in-memory database)"}
	}
	return nil
}

func init() {
	RegisterValidator(networkValidator{engine: "mysql"})
	RegisterValidator(networkValidator{engine: "postgres"})
	RegisterValidator(fileValidator{engine: "sqlite"})
	RegisterValidator(fileValidator{engine: "duckdb"})
}

// ConfigManager handles loading and managing configuration from various sources.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager creates a new configuration manager with default configuration.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: defaultInternalConfig(),
	}
}

// defaultInternalConfig returns a configuration with sensible defaults.
func defaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		Database: InternalDatabaseConfig{
			Type:              "sqlite",
			Path:              "dynatable.db",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Cache: InternalCacheConfig{
			Type:         "none",
			Namespace:    "dynatable",
			TTL:          time.Hour,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Redis: InternalRedisConfig{
				Endpoints:    []string{"localhost:6379"},
				PoolSize:     10,
				MinIdleConns: 2,
			},
		},
		Events: InternalEventsConfig{
			Type:       "none",
			Stream:     "dynatable:schema-events",
			BufferSize: 10000,
			Kafka: InternalKafkaConfig{
				Brokers:      []string{"localhost:9092"},
				PollTimeout:  250 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
			},
		},
		Registry: InternalRegistryConfig{
			Concurrency: 4,
		},
	}
}

// defaultsMap flattens the defaults for the koanf confmap provider.
func defaultsMap() map[string]interface{} {
	d := defaultInternalConfig()
	return map[string]interface{}{
		"database.type":               d.Database.Type,
		"database.path":               d.Database.Path,
		"database.max_open_conns":     d.Database.MaxOpenConns,
		"database.max_idle_conns":     d.Database.MaxIdleConns,
		"database.conn_max_lifetime":  d.Database.ConnMaxLifetime,
		"database.conn_max_idle_time": d.Database.ConnMaxIdleTime,
		"database.connection_timeout": d.Database.ConnectionTimeout,
		"cache.type":                  d.Cache.Type,
		"cache.namespace":             d.Cache.Namespace,
		"cache.ttl":                   d.Cache.TTL,
		"cache.max_retries":           d.Cache.MaxRetries,
		"cache.dial_timeout":          d.Cache.DialTimeout,
		"cache.read_timeout":          d.Cache.ReadTimeout,
		"cache.write_timeout":         d.Cache.WriteTimeout,
		"cache.redis.endpoints":       d.Cache.Redis.Endpoints,
		"cache.redis.pool_size":       d.Cache.Redis.PoolSize,
		"cache.redis.min_idle_conns":  d.Cache.Redis.MinIdleConns,
		"events.type":                 d.Events.Type,
		"events.stream":               d.Events.Stream,
		"events.buffer_size":          d.Events.BufferSize,
		"events.kafka.brokers":        d.Events.Kafka.Brokers,
		"events.kafka.poll_timeout":   d.Events.Kafka.PollTimeout,
		"events.kafka.write_timeout":  d.Events.Kafka.WriteTimeout,
		"registry.concurrency":        d.Registry.Concurrency,
	}
}

// nested sections whose env keys carry a second level (CACHE_REDIS_DB).
var nestedSections = []string{"redis", "dynamodb", "kafka"}

// envKey maps DYNATABLE_CACHE_REDIS_POOL_SIZE to cache.redis.pool_size.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	for _, nested := range nestedSections {
		if after, found := strings.CutPrefix(rest, nested+"_"); found {
			return section + "." + nested + "." + after
		}
	}
	return section + "." + rest
}

// envValue splits comma separated lists.
func envValue(key, value string) interface{} {
	if strings.HasSuffix(key, ".endpoints") || strings.HasSuffix(key, ".brokers") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return value
}

// flagKeys maps CLI flag names to config keys. Unlisted flags are ignored.
var flagKeys = map[string]string{
	"db-type":      "database.type",
	"db-path":      "database.path",
	"db-host":      "database.host",
	"db-port":      "database.port",
	"db-name":      "database.database",
	"db-user":      "database.user",
	"db-password":  "database.password",
	"db-ssl-mode":  "database.ssl_mode",
	"cache-type":   "cache.type",
	"cache-ttl":    "cache.ttl",
	"events-type":  "events.type",
	"sweep-rate":   "registry.rate",
	"sweep-limit":  "registry.concurrency",
	"namespace":    "cache.namespace",
	"redis-addr":   "cache.redis.endpoints",
	"kafka-broker": "events.kafka.brokers",
}

// LoadOptions selects the sources layered by Load.
type LoadOptions struct {
	// File is an optional YAML (or JSON) config file.
	File string

	// Flags are applied last. Only flags that were set on the command line count.
	Flags *pflag.FlagSet
}

// Load layers defaults, the config file, DYNATABLE_ environment variables and
// command line flags, in increasing precedence.
func (cm *ConfigManager) Load(opts LoadOptions) error {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), kyaml.Parser()); err != nil {
			return fmt.Errorf("error reading config file %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, interface{}) {
		key := envKey(name)
		return key, envValue(key, value)
	}), nil); err != nil {
		return fmt.Errorf("failed to load env vars: %w", err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return cm.apply(k)
}

func (cm *ConfigManager) apply(k *koanf.Koanf) error {
	var config InternalConfig
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cm.validateConfig(&config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = &config
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
// The file format is determined by the file extension (.yaml, .yml, or .json).
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data on top of the defaults.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = config
	return nil
}

// LoadFromJSON loads configuration from JSON data on top of the defaults.
// Durations are given in nanoseconds.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = config
	return nil
}

// LoadFromEnv loads configuration from environment variables on top of the defaults.
// Environment variables follow the pattern: DYNATABLE_<SECTION>_<KEY>
// Examples:
//   - DYNATABLE_DATABASE_TYPE=postgres
//   - DYNATABLE_DATABASE_HOST=localhost
//   - DYNATABLE_DATABASE_PORT=5432
//   - DYNATABLE_CACHE_REDIS_ENDPOINTS=localhost:6379,localhost:6380
//   - DYNATABLE_EVENTS_TYPE=kafka
func (cm *ConfigManager) LoadFromEnv() error {
	return cm.Load(LoadOptions{})
}

// GetConfig returns the current internal configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// validateConfig validates the configuration and returns a ConfigError if invalid.
// Database validation is delegated to the validator registered for the engine type.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	if config.Database.Type == "" {
		return &core.ConfigError{Key: "database.type", Reason: "is required"}
	}
	config.Database.Type = database.NormalizeType(config.Database.Type)

	validator, exists := GetValidator(config.Database.Type)
	if !exists {
		return &core.ConfigError{Key: "database.type", Reason: fmt.Sprintf("unsupported database type %q", config.Database.Type)}
	}
	if err := validator.Validate(config); err != nil {
		return err
	}
	if config.Database.MaxOpenConns < 0 || config.Database.MaxIdleConns < 0 {
		return &core.ConfigError{Key: "database.max_open_conns", Reason: "pool sizes must be non-negative"}
	}

	if config.CacheEnabled() {
		if !kvstore.IsTypeRegistered(config.Cache.Type) {
			return &core.ConfigError{Key: "cache.type", Reason: fmt.Sprintf("unsupported cache type %q", config.Cache.Type)}
		}
		if err := kvstore.Validate(config.KVStoreConfig()); err != nil {
			return err
		}
		if config.Cache.TTL < 0 {
			return &core.ConfigError{Key: "cache.ttl", Reason: "must be non-negative"}
		}
	}

	switch config.Events.Type {
	case "", "none", "memory":
	case "redis":
		if config.Cache.Type != "redis" {
			return &core.ConfigError{Key: "events.type", Reason: "redis events require cache.type redis"}
		}
	case "kafka":
		if len(config.Events.Kafka.Brokers) == 0 {
			return &core.ConfigError{Key: "events.kafka.brokers", Reason: "is required when events.type is kafka"}
		}
	default:
		return &core.ConfigError{Key: "events.type", Reason: "must be 'none', 'memory', 'redis', or 'kafka'"}
	}

	if config.Registry.Concurrency < 0 {
		return &core.ConfigError{Key: "registry.concurrency", Reason: "must be non-negative"}
	}
	if config.Registry.Rate < 0 {
		return &core.ConfigError{Key: "registry.rate", Reason: "must be non-negative"}
	}
	return nil
}

// ConnectionFromMap builds a database config from a flat connection map with
// the keys user, password, host, port and database. The optional type key
// defaults to postgres; sqlite and duckdb take a path key instead of the
// network keys. Every problem is reported before a connection is attempted.
func ConnectionFromMap(m map[string]interface{}) (database.Config, error) {
	var cfg database.Config

	typ, err := optionalString(m, "type")
	if err != nil {
		return cfg, err
	}
	if typ == "" {
		typ = "postgres"
	}
	cfg.Type = database.NormalizeType(typ)

	switch cfg.Type {
	case "sqlite", "duckdb":
		if cfg.Path, err = requiredString(m, "path"); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	if cfg.User, err = requiredString(m, "user"); err != nil {
		return cfg, err
	}
	if cfg.Password, err = requiredString(m, "password"); err != nil {
		return cfg, err
	}
	if cfg.Host, err = requiredString(m, "host"); err != nil {
		return cfg, err
	}
	if cfg.Database, err = requiredString(m, "database"); err != nil {
		return cfg, err
	}
	if cfg.SSLMode, err = optionalString(m, "ssl_mode"); err != nil {
		return cfg, err
	}
	if cfg.Port, err = portValue(m); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func requiredString(m map[string]interface{}, key string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", &core.ConfigError{Key: key, Reason: "is required"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &core.ConfigError{Key: key, Reason: fmt.Sprintf("must be a string, got %T", raw)}
	}
	return s, nil
}

func optionalString(m map[string]interface{}, key string) (string, error) {
	if raw, ok := m[key]; !ok || raw == nil {
		return "", nil
	}
	return requiredString(m, key)
}

func portValue(m map[string]interface{}) (int, error) {
	raw, ok := m["port"]
	if !ok || raw == nil {
		return 0, &core.ConfigError{Key: "port", Reason: "is required"}
	}

	var port int
	switch v := raw.(type) {
	case int:
		port = v
	case int32:
		port = int(v)
	case int64:
		port = int(v)
	case uint16:
		port = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, &core.ConfigError{Key: "port", Reason: fmt.Sprintf("must be an integer, got %v", v)}
		}
		port = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &core.ConfigError{Key: "port", Reason: fmt.Sprintf("must be numeric, got %q", v)}
		}
		port = n
	default:
		return 0, &core.ConfigError{Key: "port", Reason: fmt.Sprintf("must be an int or numeric string, got %T", raw)}
	}

	if port <= 0 || port > 65535 {
		return 0, &core.ConfigError{Key: "port", Reason: "must be between 1 and 65535"}
	}
	return port, nil
}
