// Package lifecycle orchestrates the creation, optimization and retirement
// of short-lived relational staging tables.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rzpsarthak13/stagekeeper/internal/analyzer"
	"github.com/rzpsarthak13/stagekeeper/internal/archive"
	"github.com/rzpsarthak13/stagekeeper/internal/core"
	"github.com/rzpsarthak13/stagekeeper/internal/schema"
)

// CleanupPolicyArchiveThenDrop archives a final performance sample and
// publishes an archival event before dropping the table.
const CleanupPolicyArchiveThenDrop = "archive_then_drop"

// ManagerConfig holds the lifecycle manager's tunables.
type ManagerConfig struct {
	// MaxConcurrentCreations is the admission-control ceiling for
	// concurrent create operations. Operations beyond the ceiling fail
	// fast with a capacity error rather than queueing.
	MaxConcurrentCreations int64 `yaml:"max_concurrent_creations" json:"max_concurrent_creations"`

	// DefaultTTLHours is applied when a request carries no TTL.
	DefaultTTLHours int `yaml:"default_ttl_hours" json:"default_ttl_hours"`

	// EncryptionEnabled is the global at-rest encryption flag.
	EncryptionEnabled bool `yaml:"encryption_enabled" json:"encryption_enabled"`

	// NamePrefix prefixes every generated physical table name.
	NamePrefix string `yaml:"name_prefix" json:"name_prefix"`
}

// DefaultManagerConfig returns the standard lifecycle settings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxConcurrentCreations: 20,
		DefaultTTLHours:        24,
		EncryptionEnabled:      false,
		NamePrefix:             "stg",
	}
}

// Manager is the staging-resource lifecycle orchestrator. It validates
// requests, gates concurrency, drives physical table creation through the
// schema optimizer and partition selector, persists definition records,
// maintains the active-resource index and handles retirement.
//
// All mutable state (index, in-flight counter, per-execution counters) is
// owned by the instance and injected at construction; there are no
// process-wide singletons.
type Manager struct {
	config    ManagerConfig
	store     core.DefinitionStore
	executor  core.SQLExecutor
	metrics   core.MetricsSink
	archive   archive.Publisher
	optimizer *schema.Optimizer
	selector  *schema.Selector
	analyzer  *analyzer.Analyzer
	index     *ActiveIndex

	inFlight atomic.Int64

	mu         sync.Mutex
	perExecRun map[string]int // total resources ever created per execution
}

// NewManager wires a lifecycle manager from its collaborators.
func NewManager(config ManagerConfig, store core.DefinitionStore, executor core.SQLExecutor,
	metrics core.MetricsSink, publisher archive.Publisher,
	optimizer *schema.Optimizer, selector *schema.Selector, an *analyzer.Analyzer) *Manager {

	if config.MaxConcurrentCreations <= 0 {
		config.MaxConcurrentCreations = DefaultManagerConfig().MaxConcurrentCreations
	}
	if config.DefaultTTLHours <= 0 {
		config.DefaultTTLHours = DefaultManagerConfig().DefaultTTLHours
	}
	if config.NamePrefix == "" {
		config.NamePrefix = DefaultManagerConfig().NamePrefix
	}
	if publisher == nil {
		publisher = archive.NopPublisher{}
	}

	return &Manager{
		config:     config,
		store:      store,
		executor:   executor,
		metrics:    metrics,
		archive:    publisher,
		optimizer:  optimizer,
		selector:   selector,
		analyzer:   an,
		index:      NewActiveIndex(),
		perExecRun: make(map[string]int),
	}
}

// Index exposes the active-resource index for read access.
func (m *Manager) Index() *ActiveIndex {
	return m.index
}

// RebuildIndex repopulates the active-resource index from the durable
// definitions. Called at process start; a failure here is logged but
// non-fatal, leaving an empty cache rather than refusing to start.
func (m *Manager) RebuildIndex(ctx context.Context) {
	defs, err := m.store.FindActiveDefinitions(ctx)
	if err != nil {
		log.Printf("[LIFECYCLE] Failed to rebuild active index, starting empty: %v", err)
		return
	}

	entries := make(map[string]*core.ActiveResourceMetadata, len(defs))
	for _, def := range defs {
		entries[def.PhysicalName] = &core.ActiveResourceMetadata{
			PhysicalName: def.PhysicalName,
			Strategy:     def.Strategy,
			CreatedAt:    def.CreatedAt,
			DefinitionID: def.ID,
			// Schema left nil, reconstructed lazily from SchemaJSON.
		}
	}
	m.index.Replace(entries)
	m.metrics.SetGauge(core.MetricActiveResources, int64(len(entries)))
	log.Printf("[LIFECYCLE] Rebuilt active index with %d resources", len(entries))
}

// Create provisions a new staging table for the request and returns its
// definition record. The operation is admission-controlled: at most
// MaxConcurrentCreations creations run concurrently, and requests beyond
// the ceiling fail immediately with a capacity error.
func (m *Manager) Create(ctx context.Context, req *core.CreateRequest) (*core.ResourceDefinition, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Admission gate: increment first, then check, so the in-flight count
	// never exceeds the ceiling even under concurrent entry.
	if m.inFlight.Add(1) > m.config.MaxConcurrentCreations {
		m.inFlight.Add(-1)
		return nil, fmt.Errorf("%w: ceiling %d reached", core.ErrCapacity, m.config.MaxConcurrentCreations)
	}
	defer m.inFlight.Add(-1)

	start := time.Now()
	def, err := m.create(ctx, req)
	m.metrics.RecordTimer(core.MetricCreateDuration, time.Since(start))
	if err != nil {
		return nil, err
	}

	m.metrics.IncrCounter(core.MetricResourcesCreated, 1)
	m.metrics.AddGauge(core.MetricActiveResources, 1)
	m.mu.Lock()
	m.perExecRun[def.ExecutionID]++
	m.mu.Unlock()

	log.Printf("[LIFECYCLE] Created staging resource %s (execution: %s, strategy: %s, ttl: %dh)",
		def.PhysicalName, def.ExecutionID, def.Strategy, def.TTLHours)
	return def, nil
}

// create performs the gated portion of resource creation.
func (m *Manager) create(ctx context.Context, req *core.CreateRequest) (*core.ResourceDefinition, error) {
	ttl := req.TTLHours
	if ttl <= 0 {
		ttl = m.config.DefaultTTLHours
	}

	hasDate, hasNumericID := schema.ColumnSignals(req.Columns)
	strategy := m.selector.SelectStrategy(req.ExpectedRecords, hasDate, hasNumericID)

	tableSchema, err := m.optimizer.Optimize(req.Columns, schema.OptimizerContext{
		ExpectedRecords:   req.ExpectedRecords,
		SecurityRequired:  req.SecurityRequired,
		TTLHours:          ttl,
		EncryptionEnabled: m.config.EncryptionEnabled,
	})
	if err != nil {
		return nil, err
	}
	tableSchema.Strategy = strategy

	physicalName := m.generatePhysicalName(req.ExecutionID, req.TransactionType)

	if err := m.executor.Execute(ctx, schema.CreateTableDDL(physicalName, tableSchema)); err != nil {
		return nil, core.CreationError("create table", err)
	}

	// Encryption directive: fatal only when encryption is mandatory
	// (global flag set and data marked sensitive); otherwise a tolerated
	// sub-step failure.
	encryptionApplied := false
	if tableSchema.Encrypted || req.SecurityRequired {
		if err := m.executor.Execute(ctx, schema.EncryptionDDL(physicalName)); err != nil {
			if tableSchema.Encrypted {
				m.rollbackTable(ctx, physicalName)
				return nil, core.CreationError("apply mandatory encryption", err)
			}
			log.Printf("[LIFECYCLE] Optional encryption not applied to %s: %v", physicalName, err)
		} else {
			encryptionApplied = true
		}
	}

	// Secondary indexes: individual failures are logged and skipped rather
	// than aborting the whole operation.
	created := 0
	for _, stmt := range schema.IndexDDL(physicalName, tableSchema) {
		if err := m.executor.Execute(ctx, stmt); err != nil {
			log.Printf("[LIFECYCLE] Skipping failed index on %s: %v", physicalName, err)
			continue
		}
		created++
	}
	log.Printf("[LIFECYCLE] Created %d secondary indexes for %s", created, physicalName)

	schemaJSON, err := tableSchema.Serialize()
	if err != nil {
		m.rollbackTable(ctx, physicalName)
		return nil, core.CreationError("serialize schema", err)
	}

	compressionLevel := 0
	if tableSchema.Compressed {
		compressionLevel = 1
	}
	def := &core.ResourceDefinition{
		ID:                uuid.NewString(),
		ExecutionID:       req.ExecutionID,
		TransactionType:   req.TransactionType,
		PhysicalName:      physicalName,
		SchemaJSON:        schemaJSON,
		Strategy:          strategy,
		TTLHours:          ttl,
		CompressionLevel:  compressionLevel,
		EncryptionApplied: encryptionApplied,
		CreatedAt:         time.Now(),
		CleanupPolicy:     CleanupPolicyArchiveThenDrop,
	}

	// Definition is persisted only after the physical table exists.
	if err := m.store.SaveDefinition(ctx, def); err != nil {
		m.rollbackTable(ctx, physicalName)
		return nil, core.CreationError("persist definition", err)
	}

	m.index.Put(&core.ActiveResourceMetadata{
		PhysicalName: physicalName,
		Schema:       tableSchema,
		Strategy:     strategy,
		CreatedAt:    def.CreatedAt,
		DefinitionID: def.ID,
	})
	return def, nil
}

// Retire drops a staging table and marks its definition dropped.
// Returns false rather than an error on failure so batch callers can treat
// retirement as non-fatal cleanup. Retiring an already-retired resource
// returns false without side effects.
func (m *Manager) Retire(ctx context.Context, physicalName, reason string) bool {
	start := time.Now()
	defer func() {
		m.metrics.RecordTimer(core.MetricDropDuration, time.Since(start))
	}()

	def, err := m.store.FindDefinitionByName(ctx, physicalName)
	if err != nil {
		log.Printf("[LIFECYCLE] Cannot retire %s: %v", physicalName, err)
		return false
	}
	if !def.IsActive() {
		log.Printf("[LIFECYCLE] Resource %s already retired at %v", physicalName, def.DroppedAt)
		return false
	}

	// Archive a final sample describing the table before it disappears.
	finalSample := m.archiveFinalSample(ctx, def, reason)

	if err := m.executor.Execute(ctx, schema.DropTableDDL(physicalName)); err != nil {
		if errors.Is(err, core.ErrObjectAbsent) {
			// Table already gone; continue to mark the definition dropped.
			log.Printf("[LIFECYCLE] Table %s already absent, marking definition dropped", physicalName)
		} else {
			log.Printf("[LIFECYCLE] Failed to drop %s: %v", physicalName, err)
			return false
		}
	}

	now := time.Now()
	def.DroppedAt = &now
	if err := m.store.SaveDefinition(ctx, def); err != nil {
		log.Printf("[LIFECYCLE] Failed to mark %s dropped: %v", physicalName, err)
		return false
	}

	m.index.Remove(physicalName)
	m.metrics.AddGauge(core.MetricActiveResources, -1)
	m.metrics.IncrCounter(core.MetricResourcesDropped, 1)

	// Archival event publishing is a tolerated sub-step failure.
	event := archive.Event{
		Kind:         archive.EventResourceRetired,
		PhysicalName: physicalName,
		DefinitionID: def.ID,
		Reason:       reason,
		Sample:       finalSample,
		Timestamp:    now,
	}
	if err := m.archive.Publish(ctx, event); err != nil {
		log.Printf("[LIFECYCLE] Failed to publish retirement event for %s: %v", physicalName, err)
	}

	log.Printf("[LIFECYCLE] Retired staging resource %s (reason: %s)", physicalName, reason)
	return true
}

// Optimize runs the analyzer's full optimization pass over a resource and
// publishes an archival event for each applied recommendation.
func (m *Manager) Optimize(ctx context.Context, physicalName string) (*analyzer.OptimizationReport, error) {
	start := time.Now()
	report, err := m.analyzer.Optimize(ctx, physicalName)
	m.metrics.RecordTimer(core.MetricOptimizeDuration, time.Since(start))
	if err != nil {
		return nil, err
	}

	for _, rec := range report.Applied {
		event := archive.Event{
			Kind:         archive.EventOptimizationApplied,
			PhysicalName: physicalName,
			DefinitionID: report.Analysis.DefinitionID,
			Reason:       string(rec.Type),
			Timestamp:    time.Now(),
		}
		if err := m.archive.Publish(ctx, event); err != nil {
			log.Printf("[LIFECYCLE] Failed to publish optimization event for %s: %v", physicalName, err)
		}
	}
	return report, nil
}

// GetMetrics aggregates resource statistics for one batch execution.
func (m *Manager) GetMetrics(ctx context.Context, executionID string) (*core.ExecutionMetrics, error) {
	if executionID == "" {
		return nil, core.ValidationError("execution id is required")
	}

	defs, err := m.store.FindActiveDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active definitions: %w", err)
	}

	result := &core.ExecutionMetrics{ExecutionID: executionID}
	for _, def := range defs {
		if def.ExecutionID != executionID {
			continue
		}
		result.ActiveResources++

		samples, err := m.store.FindRecentSamples(ctx, def.ID, 1)
		if err != nil || len(samples) == 0 {
			continue
		}
		result.TotalRecordsProcessed += samples[0].RecordsProcessed
		result.TotalMemoryUsedBytes += samples[0].MemoryUsedBytes
	}

	m.mu.Lock()
	result.TotalResources = m.perExecRun[executionID]
	m.mu.Unlock()
	if result.TotalResources < result.ActiveResources {
		// Resources created before this process started are not counted in
		// the in-memory tally; the active count is a floor.
		result.TotalResources = result.ActiveResources
	}

	m.metrics.SetGauge(core.MetricActiveMemoryBytes, result.TotalMemoryUsedBytes)
	return result, nil
}

// InFlight returns the number of create operations currently admitted.
func (m *Manager) InFlight() int64 {
	return m.inFlight.Load()
}

// archiveFinalSample records a CLEANUP_EXECUTION sample summarizing the
// table's size before the drop. Failures are tolerated; retirement proceeds.
func (m *Manager) archiveFinalSample(ctx context.Context, def *core.ResourceDefinition, reason string) *core.PerformanceSample {
	sample := &core.PerformanceSample{
		DefinitionID: def.ID,
		Kind:         core.SampleCleanupExecution,
		Timestamp:    time.Now(),
	}

	stats, err := m.executor.TableStats(ctx, def.PhysicalName)
	if err != nil {
		log.Printf("[LIFECYCLE] Final stats unavailable for %s: %v", def.PhysicalName, err)
		sample.Error = fmt.Sprintf("stats unavailable: %v", err)
	} else {
		sample.RecordsProcessed = stats.RowCount
		sample.IOReadBytes = stats.DataBytes
		sample.IOWriteBytes = stats.IndexBytes
	}

	if err := m.store.SavePerformanceSample(ctx, sample); err != nil {
		log.Printf("[LIFECYCLE] Failed to archive final sample for %s: %v", def.PhysicalName, err)
		return nil
	}
	return sample
}

// rollbackTable best-effort drops a table created earlier in a failed
// create, so no physical resource outlives a failed operation.
func (m *Manager) rollbackTable(ctx context.Context, physicalName string) {
	if err := m.executor.Execute(ctx, schema.DropTableDDL(physicalName)); err != nil && !errors.Is(err, core.ErrObjectAbsent) {
		log.Printf("[LIFECYCLE] Failed to roll back table %s: %v", physicalName, err)
	}
}

// generatePhysicalName derives a globally unique table name from the
// sanitized execution id, the transaction type and a creation-time nonce.
func (m *Manager) generatePhysicalName(executionID, transactionType string) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%s_%s_%s",
		m.config.NamePrefix,
		sanitizeIdentifier(executionID, 24),
		sanitizeIdentifier(transactionType, 16),
		nonce)
}

// sanitizeIdentifier lowercases the input and strips everything that is not
// identifier-safe, truncating to maxLen.
func sanitizeIdentifier(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "x"
	}
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// validateRequest rejects malformed requests before any side effect.
func validateRequest(req *core.CreateRequest) error {
	if req == nil {
		return core.ValidationError("request cannot be nil")
	}
	if strings.TrimSpace(req.ExecutionID) == "" {
		return core.ValidationError("execution id is required")
	}
	if strings.TrimSpace(req.TransactionType) == "" {
		return core.ValidationError("transaction type is required")
	}
	if len(req.Columns) == 0 {
		return core.ValidationError("schema payload is required")
	}
	return nil
}
