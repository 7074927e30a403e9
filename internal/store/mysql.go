package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// MySQLStore is the durable DefinitionStore over MySQL. Definitions and
// performance samples live in two fixed tables created by EnsureSchema.
type MySQLStore struct {
	db     *sql.DB
	closed bool
}

// NewMySQLStore wraps an existing connection pool. The pool is shared with
// the executor, so Close here is a no-op for the pool itself.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the bookkeeping tables if they do not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS staging_resource_definitions (
			id VARCHAR(64) PRIMARY KEY,
			execution_id VARCHAR(64) NOT NULL,
			transaction_type VARCHAR(64) NOT NULL,
			physical_name VARCHAR(128) NOT NULL UNIQUE,
			schema_json TEXT NOT NULL,
			partition_strategy VARCHAR(16) NOT NULL,
			ttl_hours INT NOT NULL,
			compression_level INT NOT NULL,
			encryption_applied TINYINT(1) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			dropped_at TIMESTAMP NULL,
			cleanup_policy VARCHAR(32) NOT NULL,
			INDEX idx_srd_execution (execution_id),
			INDEX idx_srd_dropped (dropped_at)
		)`,
		`CREATE TABLE IF NOT EXISTS staging_performance_samples (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			definition_id VARCHAR(64) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			duration_ms BIGINT NOT NULL,
			records_processed BIGINT NOT NULL,
			memory_used_bytes BIGINT NOT NULL,
			io_read_bytes BIGINT NOT NULL,
			io_write_bytes BIGINT NOT NULL,
			error_message TEXT,
			sampled_at TIMESTAMP NOT NULL,
			improvement_pct DOUBLE NULL,
			INDEX idx_sps_definition (definition_id, sampled_at)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure store schema: %w", err)
		}
	}
	return nil
}

// SaveDefinition inserts or updates a definition record.
func (s *MySQLStore) SaveDefinition(ctx context.Context, def *core.ResourceDefinition) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	query := `
		INSERT INTO staging_resource_definitions
			(id, execution_id, transaction_type, physical_name, schema_json,
			 partition_strategy, ttl_hours, compression_level, encryption_applied,
			 created_at, dropped_at, cleanup_policy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			dropped_at = VALUES(dropped_at),
			schema_json = VALUES(schema_json)
	`
	var droppedAt interface{}
	if def.DroppedAt != nil {
		droppedAt = *def.DroppedAt
	}
	_, err := s.db.ExecContext(ctx, query,
		def.ID, def.ExecutionID, def.TransactionType, def.PhysicalName, def.SchemaJSON,
		string(def.Strategy), def.TTLHours, def.CompressionLevel, def.EncryptionApplied,
		def.CreatedAt, droppedAt, def.CleanupPolicy)
	if err != nil {
		return fmt.Errorf("failed to save definition %s: %w", def.PhysicalName, err)
	}
	return nil
}

// FindDefinitionByName retrieves a definition by physical name.
func (s *MySQLStore) FindDefinitionByName(ctx context.Context, physicalName string) (*core.ResourceDefinition, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	query := selectDefinition + " WHERE physical_name = ?"
	def, err := scanDefinition(s.db.QueryRowContext(ctx, query, physicalName))
	if err == sql.ErrNoRows {
		return nil, core.NotFoundError(physicalName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query definition %s: %w", physicalName, err)
	}
	return def, nil
}

// FindActiveDefinitions returns all definitions with no dropped timestamp.
func (s *MySQLStore) FindActiveDefinitions(ctx context.Context) ([]*core.ResourceDefinition, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	query := selectDefinition + " WHERE dropped_at IS NULL"
	return s.queryDefinitions(ctx, query)
}

// FindExpiredDefinitions returns active definitions whose TTL elapsed before asOf.
func (s *MySQLStore) FindExpiredDefinitions(ctx context.Context, asOf time.Time) ([]*core.ResourceDefinition, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	query := selectDefinition + ` WHERE dropped_at IS NULL
		AND DATE_ADD(created_at, INTERVAL ttl_hours HOUR) <= ?`
	return s.queryDefinitions(ctx, query, asOf)
}

// SavePerformanceSample appends a sample to the ledger. Samples are
// insert-only; there is no update path.
func (s *MySQLStore) SavePerformanceSample(ctx context.Context, sample *core.PerformanceSample) error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	query := `
		INSERT INTO staging_performance_samples
			(definition_id, kind, duration_ms, records_processed, memory_used_bytes,
			 io_read_bytes, io_write_bytes, error_message, sampled_at, improvement_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var improvement interface{}
	if sample.ImprovementPct != nil {
		improvement = *sample.ImprovementPct
	}
	_, err := s.db.ExecContext(ctx, query,
		sample.DefinitionID, string(sample.Kind), sample.Duration.Milliseconds(),
		sample.RecordsProcessed, sample.MemoryUsedBytes,
		sample.IOReadBytes, sample.IOWriteBytes, sample.Error, sample.Timestamp, improvement)
	if err != nil {
		return fmt.Errorf("failed to save performance sample: %w", err)
	}
	return nil
}

// FindRecentSamples returns up to window samples, newest first.
func (s *MySQLStore) FindRecentSamples(ctx context.Context, definitionID string, window int) ([]*core.PerformanceSample, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	query := selectSample + ` WHERE definition_id = ? ORDER BY sampled_at DESC LIMIT ?`
	return s.querySamples(ctx, query, definitionID, window)
}

// FindSamplesInRange returns samples within [start, end], oldest first.
func (s *MySQLStore) FindSamplesInRange(ctx context.Context, definitionID string, start, end time.Time) ([]*core.PerformanceSample, error) {
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	query := selectSample + ` WHERE definition_id = ? AND sampled_at BETWEEN ? AND ? ORDER BY sampled_at ASC`
	return s.querySamples(ctx, query, definitionID, start, end)
}

// Close marks the store closed. The shared pool is owned by the executor.
func (s *MySQLStore) Close() error {
	s.closed = true
	return nil
}

const selectDefinition = `
	SELECT id, execution_id, transaction_type, physical_name, schema_json,
	       partition_strategy, ttl_hours, compression_level, encryption_applied,
	       created_at, dropped_at, cleanup_policy
	FROM staging_resource_definitions`

const selectSample = `
	SELECT definition_id, kind, duration_ms, records_processed, memory_used_bytes,
	       io_read_bytes, io_write_bytes, error_message, sampled_at, improvement_pct
	FROM staging_performance_samples`

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDefinition(row rowScanner) (*core.ResourceDefinition, error) {
	var def core.ResourceDefinition
	var strategy string
	var droppedAt sql.NullTime
	err := row.Scan(&def.ID, &def.ExecutionID, &def.TransactionType, &def.PhysicalName,
		&def.SchemaJSON, &strategy, &def.TTLHours, &def.CompressionLevel,
		&def.EncryptionApplied, &def.CreatedAt, &droppedAt, &def.CleanupPolicy)
	if err != nil {
		return nil, err
	}
	def.Strategy = core.PartitionStrategy(strategy)
	if droppedAt.Valid {
		t := droppedAt.Time
		def.DroppedAt = &t
	}
	return &def, nil
}

func (s *MySQLStore) queryDefinitions(ctx context.Context, query string, args ...interface{}) ([]*core.ResourceDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	var defs []*core.ResourceDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *MySQLStore) querySamples(ctx context.Context, query string, args ...interface{}) ([]*core.PerformanceSample, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*core.PerformanceSample
	for rows.Next() {
		var sample core.PerformanceSample
		var kind, errMsg string
		var durationMs int64
		var improvement sql.NullFloat64
		err := rows.Scan(&sample.DefinitionID, &kind, &durationMs, &sample.RecordsProcessed,
			&sample.MemoryUsedBytes, &sample.IOReadBytes, &sample.IOWriteBytes,
			&errMsg, &sample.Timestamp, &improvement)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		sample.Kind = core.SampleKind(kind)
		sample.Duration = time.Duration(durationMs) * time.Millisecond
		sample.Error = errMsg
		if improvement.Valid {
			v := improvement.Float64
			sample.ImprovementPct = &v
		}
		samples = append(samples, &sample)
	}
	if len(samples) > 0 {
		log.Printf("[STORE] Loaded %d samples for definition %s", len(samples), samples[0].DefinitionID)
	}
	return samples, rows.Err()
}
