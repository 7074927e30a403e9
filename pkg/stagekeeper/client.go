// Package stagekeeper is the public facade over the staging-resource
// lifecycle manager: creation, optimization, monitoring and TTL-driven
// retirement of short-lived relational staging tables.
package stagekeeper

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rzpsarthak13/stagekeeper/internal/analyzer"
	"github.com/rzpsarthak13/stagekeeper/internal/archive"
	"github.com/rzpsarthak13/stagekeeper/internal/cleanup"
	"github.com/rzpsarthak13/stagekeeper/internal/core"
	"github.com/rzpsarthak13/stagekeeper/internal/database"
	"github.com/rzpsarthak13/stagekeeper/internal/lifecycle"
	"github.com/rzpsarthak13/stagekeeper/internal/metrics"
	"github.com/rzpsarthak13/stagekeeper/internal/schema"
	"github.com/rzpsarthak13/stagekeeper/internal/store"
)

// Client is the main interface for interacting with the staging lifecycle
// manager.
//
// Typical usage:
//
//	client, _ := stagekeeper.NewClient(config)
//	defer client.Close()
//
//	client.StartCleanup(ctx) // begin TTL-driven retirement
//	def, _ := client.Create(ctx, req)
//	report, _ := client.Optimize(ctx, def.PhysicalName)
//	client.Retire(ctx, def.PhysicalName, "batch complete")
type Client interface {
	// Create provisions a staging table and returns its definition record.
	Create(ctx context.Context, req *core.CreateRequest) (*core.ResourceDefinition, error)

	// Retire drops a staging table. Returns false, never an error, on a
	// cleanup failure so batch callers can continue.
	Retire(ctx context.Context, physicalName, reason string) bool

	// Optimize analyzes a staging table and applies the safe subset of
	// the resulting recommendations.
	Optimize(ctx context.Context, physicalName string) (*analyzer.OptimizationReport, error)

	// GetMetrics aggregates resource statistics for one batch execution.
	GetMetrics(ctx context.Context, executionID string) (*core.ExecutionMetrics, error)

	// Metrics returns the in-process metrics registry.
	Metrics() *metrics.Registry

	// StartCleanup starts the recurring TTL cleanup task. Non-blocking.
	StartCleanup(ctx context.Context) error

	// StopCleanup gracefully stops the cleanup task.
	StopCleanup() error

	// Close stops background tasks and releases all connections.
	Close() error
}

// clientImpl wires the internal components behind the Client interface.
type clientImpl struct {
	mu        sync.Mutex
	closed    bool
	config    *Config
	executor  core.SQLExecutor
	defStore  core.DefinitionStore
	publisher archive.Publisher
	registry  *metrics.Registry
	manager   *lifecycle.Manager
	scheduler *cleanup.Scheduler
}

// Option overrides part of the client wiring, mainly for tests and
// embedding scenarios.
type Option func(*clientImpl)

// WithExecutor injects a custom SQL executor instead of the configured
// MySQL connection.
func WithExecutor(executor core.SQLExecutor) Option {
	return func(c *clientImpl) {
		c.executor = executor
	}
}

// WithStore injects a custom definition store instead of the configured backend.
func WithStore(defStore core.DefinitionStore) Option {
	return func(c *clientImpl) {
		c.defStore = defStore
	}
}

// WithArchivePublisher injects a custom archival publisher.
func WithArchivePublisher(publisher archive.Publisher) Option {
	return func(c *clientImpl) {
		c.publisher = publisher
	}
}

// NewClient creates a stagekeeper client from the configuration. The active
// resource index is rebuilt from the store before returning; a rebuild
// failure is logged and the client starts with an empty cache.
func NewClient(config *Config, opts ...Option) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &clientImpl{
		config:   config,
		registry: metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.wireExecutorAndStore(); err != nil {
		return nil, err
	}
	if err := c.wireArchive(); err != nil {
		c.defStore.Close()
		c.executor.Close()
		return nil, err
	}

	optimizer := schema.NewOptimizer(config.Schema)
	selector := schema.NewSelector(config.Partition)
	an := analyzer.New(c.defStore, c.executor, c.registry, config.Analyzer)

	c.manager = lifecycle.NewManager(config.Lifecycle, c.defStore, c.executor,
		c.registry, c.publisher, optimizer, selector, an)
	c.scheduler = cleanup.NewScheduler(c.defStore, c.manager, config.Cleanup)

	c.manager.RebuildIndex(context.Background())
	return c, nil
}

// wireExecutorAndStore builds the SQL executor and the definition store
// backend, honoring any injected overrides.
func (c *clientImpl) wireExecutorAndStore() error {
	dbCfg := c.config.Database

	if c.executor == nil {
		mysqlExec, err := database.NewMySQLExecutor(dbCfg.Host, dbCfg.Port, dbCfg.Database,
			dbCfg.Username, dbCfg.Password, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns,
			dbCfg.ConnMaxLifetime, dbCfg.ConnMaxIdleTime, dbCfg.ConnectionTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.executor = mysqlExec
	}

	if c.defStore == nil {
		backend := store.BackendConfig{
			Type:             c.config.Store.Type,
			Region:           c.config.Store.DynamoDB.Region,
			DefinitionsTable: c.config.Store.DynamoDB.DefinitionsTable,
			SamplesTable:     c.config.Store.DynamoDB.SamplesTable,
			Endpoint:         c.config.Store.DynamoDB.Endpoint,
			AccessKeyID:      c.config.Store.DynamoDB.AccessKeyID,
			SecretAccessKey:  c.config.Store.DynamoDB.SecretAccessKey,
		}
		if c.config.Store.Type == "mysql" {
			mysqlExec, ok := c.executor.(*database.MySQLExecutor)
			if !ok {
				return fmt.Errorf("mysql store backend requires the mysql executor")
			}
			mysqlStore := store.NewMySQLStore(mysqlExec.DB())
			if err := mysqlStore.EnsureSchema(context.Background()); err != nil {
				return err
			}
			backend.MySQL = mysqlStore
		}

		defStore, err := store.Create(backend)
		if err != nil {
			return fmt.Errorf("failed to create definition store: %w", err)
		}
		c.defStore = defStore
	}

	if c.config.Cache.Enabled {
		cached, err := store.NewCachedStore(c.defStore, store.CachedStoreConfig{
			Endpoint:     c.config.Cache.Endpoint,
			Password:     c.config.Cache.Password,
			DB:           c.config.Cache.DB,
			PoolSize:     c.config.Cache.PoolSize,
			MinIdleConns: c.config.Cache.MinIdleConns,
			DialTimeout:  c.config.Cache.DialTimeout,
			ReadTimeout:  c.config.Cache.ReadTimeout,
			WriteTimeout: c.config.Cache.WriteTimeout,
			TTL:          c.config.Cache.TTL,
		})
		if err != nil {
			return fmt.Errorf("failed to create definition cache: %w", err)
		}
		c.defStore = cached
	}
	return nil
}

// wireArchive builds the archival publisher, defaulting to a no-op when
// archival is disabled.
func (c *clientImpl) wireArchive() error {
	if c.publisher != nil {
		return nil
	}
	if !c.config.Archive.Enabled {
		c.publisher = archive.NopPublisher{}
		return nil
	}

	publisher, err := archive.NewKafkaPublisher(archive.KafkaPublisherConfig{
		Brokers:      c.config.Archive.Brokers,
		Topic:        c.config.Archive.Topic,
		BatchSize:    c.config.Archive.BatchSize,
		BatchTimeout: c.config.Archive.BatchTimeout,
		WriteTimeout: c.config.Archive.WriteTimeout,
		RequiredAcks: c.config.Archive.RequiredAcks,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive publisher: %w", err)
	}
	c.publisher = publisher
	return nil
}

func (c *clientImpl) Create(ctx context.Context, req *core.CreateRequest) (*core.ResourceDefinition, error) {
	return c.manager.Create(ctx, req)
}

func (c *clientImpl) Retire(ctx context.Context, physicalName, reason string) bool {
	return c.manager.Retire(ctx, physicalName, reason)
}

func (c *clientImpl) Optimize(ctx context.Context, physicalName string) (*analyzer.OptimizationReport, error) {
	return c.manager.Optimize(ctx, physicalName)
}

func (c *clientImpl) GetMetrics(ctx context.Context, executionID string) (*core.ExecutionMetrics, error) {
	return c.manager.GetMetrics(ctx, executionID)
}

func (c *clientImpl) Metrics() *metrics.Registry {
	return c.registry
}

func (c *clientImpl) StartCleanup(ctx context.Context) error {
	return c.scheduler.Start(ctx)
}

func (c *clientImpl) StopCleanup() error {
	return c.scheduler.Stop()
}

// Close stops the cleanup scheduler and closes the publisher, store and
// executor in dependency order.
func (c *clientImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.scheduler.Stop(); err != nil {
		log.Printf("[CLIENT] Failed to stop cleanup scheduler: %v", err)
	}
	if err := c.publisher.Close(); err != nil {
		log.Printf("[CLIENT] Failed to close archive publisher: %v", err)
	}
	if err := c.defStore.Close(); err != nil {
		log.Printf("[CLIENT] Failed to close definition store: %v", err)
	}
	return c.executor.Close()
}
