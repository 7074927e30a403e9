package core

import (
	"time"
)

// PartitionStrategy identifies how a staging table is physically partitioned.
type PartitionStrategy string

const (
	// PartitionNone means the table is not partitioned.
	PartitionNone PartitionStrategy = "NONE"

	// PartitionHash distributes rows across a fixed number of hash buckets.
	PartitionHash PartitionStrategy = "HASH"

	// PartitionRangeDate splits rows into date ranges on the creation timestamp.
	PartitionRangeDate PartitionStrategy = "RANGE_DATE"

	// PartitionRangeNumber splits rows into numeric ranges on the record sequence.
	PartitionRangeNumber PartitionStrategy = "RANGE_NUMBER"

	// PartitionList buckets rows by processing status.
	PartitionList PartitionStrategy = "LIST"
)

// SampleKind identifies what produced a performance sample.
type SampleKind string

const (
	// SampleOptimizationApplied records the outcome of an applied optimization.
	SampleOptimizationApplied SampleKind = "OPTIMIZATION_APPLIED"

	// SampleCleanupExecution records the final state captured before a drop.
	SampleCleanupExecution SampleKind = "CLEANUP_EXECUTION"

	// SampleMeasurement records a routine performance measurement.
	SampleMeasurement SampleKind = "MEASUREMENT"
)

// ResourceDefinition is the durable record describing a staging table's
// identity, schema and lifecycle state. It is the source of truth for the
// resource; the in-memory active index is derived from it.
type ResourceDefinition struct {
	// ID is the opaque identity key for this definition.
	ID string `json:"id"`

	// ExecutionID is the batch execution that requested the resource.
	ExecutionID string `json:"execution_id"`

	// TransactionType identifies the transaction category being staged.
	TransactionType string `json:"transaction_type"`

	// PhysicalName is the globally unique name of the backing table.
	PhysicalName string `json:"physical_name"`

	// SchemaJSON is the serialized optimized column schema.
	SchemaJSON string `json:"schema_json"`

	// Strategy is the partition strategy applied at creation time.
	Strategy PartitionStrategy `json:"partition_strategy"`

	// TTLHours is the time-to-live after which the resource is expired.
	TTLHours int `json:"ttl_hours"`

	// CompressionLevel is the compression level applied (0 = none).
	CompressionLevel int `json:"compression_level"`

	// EncryptionApplied indicates whether at-rest encryption was applied.
	EncryptionApplied bool `json:"encryption_applied"`

	// CreatedAt is when the physical table was created.
	CreatedAt time.Time `json:"created_at"`

	// DroppedAt is when the physical table was dropped.
	// Nil while the resource is active; once set it is never unset.
	DroppedAt *time.Time `json:"dropped_at,omitempty"`

	// CleanupPolicy describes how the resource is retired (e.g. "archive_then_drop").
	CleanupPolicy string `json:"cleanup_policy"`
}

// IsActive reports whether the resource has not been dropped.
func (d *ResourceDefinition) IsActive() bool {
	return d.DroppedAt == nil
}

// ExpiresAt returns the instant at which the resource's TTL elapses.
func (d *ResourceDefinition) ExpiresAt() time.Time {
	return d.CreatedAt.Add(time.Duration(d.TTLHours) * time.Hour)
}

// ActiveResourceMetadata is the in-memory view of an active staging table.
// It is a cache derived from the ResourceDefinition, inserted after a
// successful create and removed on retirement.
type ActiveResourceMetadata struct {
	// PhysicalName is the backing table name.
	PhysicalName string

	// Schema is the optimized table schema. May be nil until lazily
	// reconstructed from the definition's serialized schema.
	Schema *TableSchema

	// Strategy is the partition strategy applied at creation.
	Strategy PartitionStrategy

	// CreatedAt is when the resource was created.
	CreatedAt time.Time

	// DefinitionID is the identity of the authoritative definition record.
	DefinitionID string
}

// PerformanceSample is a single durable measurement tied to a staging
// resource. Samples are append-only: they are never mutated after insertion
// and form a time-ordered ledger per definition.
type PerformanceSample struct {
	// DefinitionID is the identity of the owning resource definition.
	DefinitionID string `json:"definition_id"`

	// Kind identifies what produced this sample.
	Kind SampleKind `json:"kind"`

	// Duration is how long the measured operation took.
	Duration time.Duration `json:"duration"`

	// RecordsProcessed is the number of records handled.
	RecordsProcessed int64 `json:"records_processed"`

	// MemoryUsedBytes is the memory consumed by the operation.
	MemoryUsedBytes int64 `json:"memory_used_bytes"`

	// IOReadBytes is the bytes read during the operation.
	IOReadBytes int64 `json:"io_read_bytes"`

	// IOWriteBytes is the bytes written during the operation.
	IOWriteBytes int64 `json:"io_write_bytes"`

	// Error is the error message if the measured operation failed.
	Error string `json:"error,omitempty"`

	// Timestamp is when the sample was taken.
	Timestamp time.Time `json:"timestamp"`

	// ImprovementPct is the computed improvement over the preceding window,
	// when this sample records an applied optimization.
	ImprovementPct *float64 `json:"improvement_pct,omitempty"`
}

// Priority ranks an optimization recommendation.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// RecommendationType tags the kind of optimization being recommended.
type RecommendationType string

const (
	RecommendIndexOptimization  RecommendationType = "INDEX_OPTIMIZATION"
	RecommendPartitioning       RecommendationType = "PARTITIONING"
	RecommendCompression        RecommendationType = "COMPRESSION"
	RecommendMemoryTuning       RecommendationType = "MEMORY_TUNING"
	RecommendDataArchival       RecommendationType = "DATA_ARCHIVAL"
)

// OptimizationRecommendation is a transient, computed suggestion for
// improving a staging resource. It is not persisted directly; applying it
// produces a PerformanceSample of kind OPTIMIZATION_APPLIED.
type OptimizationRecommendation struct {
	// Type tags the recommendation.
	Type RecommendationType

	// Description is a human-readable summary of the action.
	Description string

	// Priority ranks how urgently the action should be taken.
	Priority Priority

	// EstimatedImprovement is the expected fractional improvement (0.0-1.0).
	EstimatedImprovement float64
}
