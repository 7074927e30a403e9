package core

import (
	"context"
	"time"
)

// DefinitionStore defines the persistence contract for resource definitions
// and performance samples. Implementations must be safe for concurrent use.
type DefinitionStore interface {
	// SaveDefinition inserts or updates a resource definition.
	SaveDefinition(ctx context.Context, def *ResourceDefinition) error

	// FindDefinitionByName retrieves a definition by its physical table name.
	// Returns an error wrapping ErrNotFound if no definition exists.
	FindDefinitionByName(ctx context.Context, physicalName string) (*ResourceDefinition, error)

	// FindActiveDefinitions returns all definitions with no dropped timestamp.
	FindActiveDefinitions(ctx context.Context) ([]*ResourceDefinition, error)

	// FindExpiredDefinitions returns all active definitions whose TTL has
	// elapsed as of the given instant.
	FindExpiredDefinitions(ctx context.Context, asOf time.Time) ([]*ResourceDefinition, error)

	// SavePerformanceSample appends a performance sample to the ledger.
	// Samples are never mutated after insertion.
	SavePerformanceSample(ctx context.Context, sample *PerformanceSample) error

	// FindRecentSamples returns the most recent samples for a definition,
	// newest first, limited to the given window size.
	FindRecentSamples(ctx context.Context, definitionID string, window int) ([]*PerformanceSample, error)

	// FindSamplesInRange returns samples for a definition whose timestamps
	// fall within [start, end], oldest first.
	FindSamplesInRange(ctx context.Context, definitionID string, start, end time.Time) ([]*PerformanceSample, error)

	// Close releases any resources held by the store.
	Close() error
}
