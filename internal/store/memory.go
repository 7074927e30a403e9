package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// MemoryStore is an in-memory DefinitionStore used for tests and local
// development. It mirrors the durable backends' semantics, including the
// append-only sample ledger.
type MemoryStore struct {
	mu          sync.RWMutex
	definitions map[string]*core.ResourceDefinition   // keyed by physical name
	samples     map[string][]*core.PerformanceSample // keyed by definition ID, insertion order
	closed      bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		definitions: make(map[string]*core.ResourceDefinition),
		samples:     make(map[string][]*core.PerformanceSample),
	}
}

// SaveDefinition inserts or updates a definition, keyed by physical name.
func (s *MemoryStore) SaveDefinition(ctx context.Context, def *core.ResourceDefinition) error {
	if def == nil {
		return core.ValidationError("definition cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *def
	s.definitions[def.PhysicalName] = &copied
	return nil
}

// FindDefinitionByName retrieves a definition by physical name.
func (s *MemoryStore) FindDefinitionByName(ctx context.Context, physicalName string) (*core.ResourceDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[physicalName]
	if !ok {
		return nil, core.NotFoundError(physicalName)
	}
	copied := *def
	return &copied, nil
}

// FindActiveDefinitions returns all definitions with no dropped timestamp.
func (s *MemoryStore) FindActiveDefinitions(ctx context.Context) ([]*core.ResourceDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*core.ResourceDefinition
	for _, def := range s.definitions {
		if def.IsActive() {
			copied := *def
			active = append(active, &copied)
		}
	}
	return active, nil
}

// FindExpiredDefinitions returns active definitions whose TTL elapsed before asOf.
func (s *MemoryStore) FindExpiredDefinitions(ctx context.Context, asOf time.Time) ([]*core.ResourceDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*core.ResourceDefinition
	for _, def := range s.definitions {
		if def.IsActive() && !def.ExpiresAt().After(asOf) {
			copied := *def
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

// SavePerformanceSample appends a sample to the definition's ledger.
func (s *MemoryStore) SavePerformanceSample(ctx context.Context, sample *core.PerformanceSample) error {
	if sample == nil {
		return core.ValidationError("sample cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sample
	s.samples[sample.DefinitionID] = append(s.samples[sample.DefinitionID], &copied)
	return nil
}

// FindRecentSamples returns up to window samples for a definition, newest first.
func (s *MemoryStore) FindRecentSamples(ctx context.Context, definitionID string, window int) ([]*core.PerformanceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.samples[definitionID]
	result := make([]*core.PerformanceSample, 0, window)
	for i := len(ledger) - 1; i >= 0 && len(result) < window; i-- {
		copied := *ledger[i]
		result = append(result, &copied)
	}
	return result, nil
}

// FindSamplesInRange returns samples within [start, end], oldest first.
func (s *MemoryStore) FindSamplesInRange(ctx context.Context, definitionID string, start, end time.Time) ([]*core.PerformanceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*core.PerformanceSample
	for _, sample := range s.samples[definitionID] {
		if sample.Timestamp.Before(start) || sample.Timestamp.After(end) {
			continue
		}
		copied := *sample
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Close marks the store closed. In-memory state is discarded with the process.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
