package core

// RawColumn is a caller-supplied column specification before optimization.
type RawColumn struct {
	// Name is the requested column name.
	Name string `json:"name"`

	// Type is the requested database type. May be adjusted by the optimizer.
	Type string `json:"type"`

	// Nullable indicates whether the column may contain NULL values.
	Nullable bool `json:"nullable"`
}

// CreateRequest describes a staging resource to be created.
// Requests are plain structured records; any HTTP/RPC framing is the
// outer request layer's concern.
type CreateRequest struct {
	// ExecutionID identifies the batch execution requesting the resource. Required.
	ExecutionID string `json:"execution_id"`

	// TransactionType identifies the transaction category being staged. Required.
	TransactionType string `json:"transaction_type"`

	// Columns is the raw column specification. Required, must be non-empty.
	Columns []RawColumn `json:"columns"`

	// ExpectedRecords is the expected data volume, used to drive
	// type tuning, indexing and partition selection.
	ExpectedRecords int64 `json:"expected_records"`

	// SecurityRequired marks the staged data as security-sensitive.
	SecurityRequired bool `json:"security_required"`

	// TTLHours is the time-to-live in hours. Defaults to the configured
	// default when zero.
	TTLHours int `json:"ttl_hours"`
}

// ExecutionMetrics aggregates resource statistics for a single batch execution.
type ExecutionMetrics struct {
	// ExecutionID is the batch execution these metrics describe.
	ExecutionID string `json:"execution_id"`

	// ActiveResources is the number of undropped resources for the execution.
	ActiveResources int `json:"active_resources"`

	// TotalResources is the total number of resources ever created for the execution.
	TotalResources int `json:"total_resources"`

	// TotalRecordsProcessed sums records processed across all samples.
	TotalRecordsProcessed int64 `json:"total_records_processed"`

	// TotalMemoryUsedBytes sums memory usage across the latest samples.
	TotalMemoryUsedBytes int64 `json:"total_memory_used_bytes"`
}
