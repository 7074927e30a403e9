package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
	"github.com/rzpsarthak13/stagekeeper/internal/store"
)

// recordingRetirer records retirements and fails the configured names.
type recordingRetirer struct {
	mu      sync.Mutex
	retired []string
	failFor map[string]bool
}

func (r *recordingRetirer) Retire(ctx context.Context, physicalName, reason string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[physicalName] {
		return false
	}
	r.retired = append(r.retired, physicalName)
	return true
}

func (r *recordingRetirer) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.retired))
	copy(out, r.retired)
	return out
}

func seedDefinition(t *testing.T, st *store.MemoryStore, physicalName string, age time.Duration, ttlHours int) {
	t.Helper()
	require.NoError(t, st.SaveDefinition(context.Background(), &core.ResourceDefinition{
		ID:           "def-" + physicalName,
		ExecutionID:  "exec-1",
		PhysicalName: physicalName,
		Strategy:     core.PartitionNone,
		TTLHours:     ttlHours,
		CreatedAt:    time.Now().Add(-age),
	}))
}

func testConfig() SchedulerConfig {
	return SchedulerConfig{Interval: time.Hour, DropRate: 1000}
}

func TestRunOnceRetiresExpired(t *testing.T) {
	st := store.NewMemoryStore()
	seedDefinition(t, st, "stg_expired_a", 25*time.Hour, 24)
	seedDefinition(t, st, "stg_expired_b", 48*time.Hour, 24)
	seedDefinition(t, st, "stg_fresh", 1*time.Hour, 24)

	retirer := &recordingRetirer{}
	s := NewScheduler(st, retirer, testConfig())

	result := s.RunOnce(context.Background())
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Retired)
	assert.Equal(t, 0, result.Failed)

	names := retirer.names()
	assert.Len(t, names, 2)
	assert.NotContains(t, names, "stg_fresh")
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	st := store.NewMemoryStore()
	seedDefinition(t, st, "stg_a", 25*time.Hour, 24)
	seedDefinition(t, st, "stg_b", 25*time.Hour, 24)
	seedDefinition(t, st, "stg_c", 25*time.Hour, 24)

	retirer := &recordingRetirer{failFor: map[string]bool{"stg_b": true}}
	s := NewScheduler(st, retirer, testConfig())

	result := s.RunOnce(context.Background())
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 2, result.Retired)
	assert.Equal(t, 1, result.Failed)
}

func TestRunOnceWithNothingExpired(t *testing.T) {
	st := store.NewMemoryStore()
	seedDefinition(t, st, "stg_fresh", 1*time.Hour, 24)

	s := NewScheduler(st, &recordingRetirer{}, testConfig())
	result := s.RunOnce(context.Background())
	assert.Equal(t, RunResult{}, result)
}

func TestStartStop(t *testing.T) {
	st := store.NewMemoryStore()
	s := NewScheduler(st, &recordingRetirer{}, testConfig())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	// Starting twice is a no-op.
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	// Stopping again is also a no-op.
	require.NoError(t, s.Stop())
}

func TestSchedulerRunsOnTick(t *testing.T) {
	st := store.NewMemoryStore()
	seedDefinition(t, st, "stg_expired", 25*time.Hour, 24)

	retirer := &recordingRetirer{}
	s := NewScheduler(st, retirer, SchedulerConfig{Interval: 20 * time.Millisecond, DropRate: 1000})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for len(retirer.names()) == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never ran a cleanup pass")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Contains(t, retirer.names(), "stg_expired")
}
