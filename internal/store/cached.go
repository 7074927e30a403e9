package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// CachedStore wraps a DefinitionStore with a Redis read-through cache for
// definition lookups by physical name. Definition records are read far more
// often than they change (every analyze/retire resolves one), so cache
// misses fall through to the inner store and writes invalidate eagerly.
// Cache failures are never fatal: the inner store remains authoritative.
type CachedStore struct {
	inner     core.DefinitionStore
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// CachedStoreConfig holds the Redis connection settings for the cache layer.
type CachedStoreConfig struct {
	Endpoint     string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Namespace    string
	TTL          time.Duration
}

// NewCachedStore wraps inner with a Redis cache. The connection is verified
// with a ping before returning.
func NewCachedStore(inner core.DefinitionStore, cfg CachedStoreConfig) (*CachedStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("redis endpoint is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "stagekeeper"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Endpoint,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CachedStore{
		inner:     inner,
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
	}, nil
}

// SaveDefinition writes through to the inner store and refreshes the cache.
func (c *CachedStore) SaveDefinition(ctx context.Context, def *core.ResourceDefinition) error {
	if err := c.inner.SaveDefinition(ctx, def); err != nil {
		return err
	}
	c.cacheSet(ctx, def)
	return nil
}

// FindDefinitionByName reads from the cache first, falling back to the
// inner store on a miss or cache error.
func (c *CachedStore) FindDefinitionByName(ctx context.Context, physicalName string) (*core.ResourceDefinition, error) {
	key := c.cacheKey(physicalName)
	value, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var def core.ResourceDefinition
		if jsonErr := json.Unmarshal(value, &def); jsonErr == nil {
			return &def, nil
		}
		log.Printf("[REDIS] Discarding unreadable cache entry for %s", physicalName)
	} else if err != redis.Nil {
		log.Printf("[REDIS] Cache read failed for %s: %v", physicalName, err)
	}

	def, err := c.inner.FindDefinitionByName(ctx, physicalName)
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, def)
	return def, nil
}

// FindActiveDefinitions always hits the inner store; list queries are not cached.
func (c *CachedStore) FindActiveDefinitions(ctx context.Context) ([]*core.ResourceDefinition, error) {
	return c.inner.FindActiveDefinitions(ctx)
}

// FindExpiredDefinitions always hits the inner store.
func (c *CachedStore) FindExpiredDefinitions(ctx context.Context, asOf time.Time) ([]*core.ResourceDefinition, error) {
	return c.inner.FindExpiredDefinitions(ctx, asOf)
}

// SavePerformanceSample passes through; the sample ledger is never cached.
func (c *CachedStore) SavePerformanceSample(ctx context.Context, sample *core.PerformanceSample) error {
	return c.inner.SavePerformanceSample(ctx, sample)
}

// FindRecentSamples passes through to the inner store.
func (c *CachedStore) FindRecentSamples(ctx context.Context, definitionID string, window int) ([]*core.PerformanceSample, error) {
	return c.inner.FindRecentSamples(ctx, definitionID, window)
}

// FindSamplesInRange passes through to the inner store.
func (c *CachedStore) FindSamplesInRange(ctx context.Context, definitionID string, start, end time.Time) ([]*core.PerformanceSample, error) {
	return c.inner.FindSamplesInRange(ctx, definitionID, start, end)
}

// Close closes the Redis client and the inner store.
func (c *CachedStore) Close() error {
	if err := c.client.Close(); err != nil {
		log.Printf("[REDIS] Failed to close client: %v", err)
	}
	return c.inner.Close()
}

func (c *CachedStore) cacheKey(physicalName string) string {
	return fmt.Sprintf("%s:definition:%s", c.namespace, physicalName)
}

// cacheSet refreshes the cache entry for a definition. Failures are logged
// and ignored; the inner store already holds the authoritative record.
func (c *CachedStore) cacheSet(ctx context.Context, def *core.ResourceDefinition) {
	payload, err := json.Marshal(def)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.cacheKey(def.PhysicalName), payload, c.ttl).Err(); err != nil {
		log.Printf("[REDIS] Cache write failed for %s: %v", def.PhysicalName, err)
	}
}
