package lifecycle

import (
	"sync"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// ActiveIndex is the process-wide index of currently active staging
// resources, keyed by physical name. It is a cache derived from the durable
// definitions, not a source of truth: entries are inserted immediately after
// a successful create and removed immediately on retirement, and the whole
// index can be rebuilt from the store at process start.
// All operations are safe for concurrent use.
type ActiveIndex struct {
	mu      sync.RWMutex
	entries map[string]*core.ActiveResourceMetadata
}

// NewActiveIndex creates an empty active-resource index.
func NewActiveIndex() *ActiveIndex {
	return &ActiveIndex{
		entries: make(map[string]*core.ActiveResourceMetadata),
	}
}

// Put inserts or replaces the entry for a physical name.
func (ai *ActiveIndex) Put(meta *core.ActiveResourceMetadata) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	ai.entries[meta.PhysicalName] = meta
}

// Get returns the entry for a physical name, or nil if absent.
func (ai *ActiveIndex) Get(physicalName string) *core.ActiveResourceMetadata {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return ai.entries[physicalName]
}

// Remove deletes the entry for a physical name and reports whether it existed.
func (ai *ActiveIndex) Remove(physicalName string) bool {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	_, existed := ai.entries[physicalName]
	delete(ai.entries, physicalName)
	return existed
}

// Contains reports whether a physical name is present.
func (ai *ActiveIndex) Contains(physicalName string) bool {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	_, ok := ai.entries[physicalName]
	return ok
}

// Len returns the number of active entries.
func (ai *ActiveIndex) Len() int {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return len(ai.entries)
}

// Names returns the physical names of all active entries.
func (ai *ActiveIndex) Names() []string {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	names := make([]string, 0, len(ai.entries))
	for name := range ai.entries {
		names = append(names, name)
	}
	return names
}

// Replace swaps the entire index contents, used when rebuilding from the store.
func (ai *ActiveIndex) Replace(entries map[string]*core.ActiveResourceMetadata) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	ai.entries = entries
}
