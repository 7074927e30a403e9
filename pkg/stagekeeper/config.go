package stagekeeper

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/stagekeeper/internal/analyzer"
	"github.com/rzpsarthak13/stagekeeper/internal/cleanup"
	"github.com/rzpsarthak13/stagekeeper/internal/lifecycle"
	"github.com/rzpsarthak13/stagekeeper/internal/schema"
)

// Config is the root configuration for the stagekeeper client.
type Config struct {
	// Database contains configuration for the backing relational engine.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Store contains configuration for the definition/sample store backend.
	Store StoreConfig `yaml:"store" json:"store"`

	// Cache contains the optional Redis definition-cache configuration.
	Cache CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`

	// Archive contains the optional Kafka archival-event configuration.
	Archive ArchiveConfig `yaml:"archive,omitempty" json:"archive,omitempty"`

	// Lifecycle contains the lifecycle manager's tunables.
	Lifecycle lifecycle.ManagerConfig `yaml:"lifecycle" json:"lifecycle"`

	// Schema contains the schema-optimizer thresholds.
	Schema schema.Thresholds `yaml:"schema" json:"schema"`

	// Partition contains the partition-selection thresholds.
	Partition schema.PartitionThresholds `yaml:"partition" json:"partition"`

	// Analyzer contains the performance-analysis thresholds and ceilings.
	Analyzer analyzer.Config `yaml:"analyzer" json:"analyzer"`

	// Cleanup contains the cleanup scheduler's settings.
	Cleanup cleanup.SchedulerConfig `yaml:"cleanup" json:"cleanup"`
}

// DatabaseConfig contains configuration for the backing relational engine.
type DatabaseConfig struct {
	// Host is the database host address.
	Host string `yaml:"host" json:"host"`

	// Port is the database port number.
	Port int `yaml:"port" json:"port"`

	// Database is the database name.
	Database string `yaml:"database" json:"database"`

	// Username is the database username.
	Username string `yaml:"username" json:"username"`

	// Password is the database password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time,omitempty" json:"conn_max_idle_time,omitempty"`

	// ConnectionTimeout is the timeout for establishing connections.
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
}

// StoreConfig contains configuration for the definition store backend.
type StoreConfig struct {
	// Type selects the backend: "memory", "mysql" or "dynamodb".
	// The mysql backend shares the Database connection pool.
	Type string `yaml:"type" json:"type"`

	// DynamoDB contains DynamoDB-specific settings, used when Type is "dynamodb".
	DynamoDB DynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`
}

// DynamoDBConfig contains DynamoDB-specific store settings.
type DynamoDBConfig struct {
	Region           string `yaml:"region" json:"region"`
	DefinitionsTable string `yaml:"definitions_table" json:"definitions_table"`
	SamplesTable     string `yaml:"samples_table" json:"samples_table"`
	Endpoint         string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID      string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey  string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// CacheConfig contains the Redis definition-cache settings.
type CacheConfig struct {
	// Enabled turns the read-through definition cache on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Endpoint is the Redis address.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Password is the authentication password for Redis.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the Redis database number.
	DB int `yaml:"db,omitempty" json:"db,omitempty"`

	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`

	// MinIdleConns is the minimum number of idle connections in the pool.
	MinIdleConns int `yaml:"min_idle_conns,omitempty" json:"min_idle_conns,omitempty"`

	// DialTimeout is the timeout for establishing connections.
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`

	// TTL is how long a cached definition record stays valid.
	TTL time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// ArchiveConfig contains the Kafka archival-event settings.
type ArchiveConfig struct {
	// Enabled turns archival event publishing on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Brokers is a list of Kafka broker addresses.
	Brokers []string `yaml:"brokers,omitempty" json:"brokers,omitempty"`

	// Topic is the Kafka topic for archival events.
	Topic string `yaml:"topic,omitempty" json:"topic,omitempty"`

	// BatchSize is the producer batch size.
	BatchSize int `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`

	// BatchTimeout is the timeout for batching messages.
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty" json:"batch_timeout,omitempty"`

	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`

	// RequiredAcks is the number of acknowledgments required (0, 1, or -1 for all).
	RequiredAcks int `yaml:"required_acks,omitempty" json:"required_acks,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:              "localhost",
			Port:              3306,
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   5 * time.Minute,
			ConnMaxIdleTime:   10 * time.Minute,
			ConnectionTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Type: "mysql",
		},
		Cache: CacheConfig{
			Enabled:      false,
			Endpoint:     "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 5,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TTL:          5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Enabled:      false,
			Brokers:      []string{"localhost:9092"},
			Topic:        "stagekeeper-archive",
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: -1, // All replicas
		},
		Lifecycle: lifecycle.DefaultManagerConfig(),
		Schema:    schema.DefaultThresholds(),
		Partition: schema.DefaultPartitionThresholds(),
		Analyzer:  analyzer.DefaultConfig(),
		Cleanup:   cleanup.DefaultSchedulerConfig(),
	}
}

// LoadConfigFromFile reads a YAML configuration file, applying defaults for
// any omitted sections.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses YAML configuration over the defaults.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}
