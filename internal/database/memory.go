package database

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// MemoryExecutor is an in-memory SQLExecutor for tests and local
// development. It tracks which tables exist by parsing CREATE TABLE and
// DROP TABLE statements and records every statement it receives.
type MemoryExecutor struct {
	mu         sync.Mutex
	tables     map[string]bool
	statements []string

	// FailOn, when non-empty, makes Execute fail for any statement
	// containing the substring. Used to simulate engine failures.
	FailOn string

	// Stats overrides the TableStats result when set.
	Stats map[string]*core.TableStats
}

// NewMemoryExecutor creates an empty in-memory executor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{
		tables: make(map[string]bool),
		Stats:  make(map[string]*core.TableStats),
	}
}

// Execute records the statement and maintains the table set. DROP of an
// unknown table returns an error wrapping core.ErrObjectAbsent, matching
// the real executor's typing.
func (m *MemoryExecutor) Execute(ctx context.Context, statement string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOn != "" && strings.Contains(statement, m.FailOn) {
		return fmt.Errorf("simulated failure executing: %s", statement)
	}
	m.statements = append(m.statements, statement)

	fields := strings.Fields(statement)
	switch {
	case len(fields) >= 3 && strings.EqualFold(fields[0], "CREATE") && strings.EqualFold(fields[1], "TABLE"):
		name := fields[2]
		if idx := strings.Index(name, "("); idx > 0 {
			name = name[:idx]
		}
		m.tables[name] = true
	case len(fields) >= 3 && strings.EqualFold(fields[0], "DROP") && strings.EqualFold(fields[1], "TABLE"):
		name := fields[2]
		if !m.tables[name] {
			return fmt.Errorf("%w: table %s", core.ErrObjectAbsent, name)
		}
		delete(m.tables, name)
	}
	return nil
}

// TableStats returns configured stats, or zeros for an existing table.
func (m *MemoryExecutor) TableStats(ctx context.Context, tableName string) (*core.TableStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stats, ok := m.Stats[tableName]; ok {
		copied := *stats
		return &copied, nil
	}
	if !m.tables[tableName] {
		return nil, fmt.Errorf("%w: table %s", core.ErrObjectAbsent, tableName)
	}
	return &core.TableStats{}, nil
}

// Close is a no-op.
func (m *MemoryExecutor) Close() error {
	return nil
}

// TableExists reports whether a table currently exists.
func (m *MemoryExecutor) TableExists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[name]
}

// Statements returns a copy of every statement executed so far.
func (m *MemoryExecutor) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.statements))
	copy(out, m.statements)
	return out
}
