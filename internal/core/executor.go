package core

import (
	"context"
)

// TableStats describes the physical size of a staging table.
type TableStats struct {
	// RowCount is the number of rows in the table.
	RowCount int64

	// DataBytes is the size of the table data in bytes.
	DataBytes int64

	// IndexBytes is the size of the table's indexes in bytes.
	IndexBytes int64
}

// SQLExecutor defines the relational execution contract. Implementations
// issue DDL/DML against the backing engine and surface "object already
// absent" failures as errors wrapping ErrObjectAbsent so callers can
// distinguish them from real failures.
type SQLExecutor interface {
	// Execute issues a DDL or DML statement.
	Execute(ctx context.Context, statement string) error

	// TableStats returns size statistics for a table.
	// Returns an error wrapping ErrObjectAbsent if the table does not exist.
	TableStats(ctx context.Context, tableName string) (*TableStats, error)

	// Close releases the underlying connection resources.
	Close() error
}
