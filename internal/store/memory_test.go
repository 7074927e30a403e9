package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

func newDefinition(physicalName string, createdAt time.Time, ttlHours int) *core.ResourceDefinition {
	return &core.ResourceDefinition{
		ID:           "def-" + physicalName,
		ExecutionID:  "exec-1",
		PhysicalName: physicalName,
		Strategy:     core.PartitionNone,
		TTLHours:     ttlHours,
		CreatedAt:    createdAt,
	}
}

func TestMemoryStoreDefinitions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	def := newDefinition("stg_a", time.Now(), 24)
	require.NoError(t, s.SaveDefinition(ctx, def))

	got, err := s.FindDefinitionByName(ctx, "stg_a")
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	// Reads return copies; mutating the result must not touch the store.
	got.ExecutionID = "mutated"
	again, err := s.FindDefinitionByName(ctx, "stg_a")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", again.ExecutionID)

	_, err = s.FindDefinitionByName(ctx, "stg_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.Error(t, s.SaveDefinition(ctx, nil))
}

func TestMemoryStoreActiveFiltering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveDefinition(ctx, newDefinition("stg_active", time.Now(), 24)))

	dropped := newDefinition("stg_dropped", time.Now(), 24)
	now := time.Now()
	dropped.DroppedAt = &now
	require.NoError(t, s.SaveDefinition(ctx, dropped))

	active, err := s.FindActiveDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "stg_active", active[0].PhysicalName)
}

func TestMemoryStoreExpiredFiltering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveDefinition(ctx, newDefinition("stg_expired", now.Add(-25*time.Hour), 24)))
	require.NoError(t, s.SaveDefinition(ctx, newDefinition("stg_boundary", now.Add(-24*time.Hour), 24)))
	require.NoError(t, s.SaveDefinition(ctx, newDefinition("stg_fresh", now.Add(-1*time.Hour), 24)))

	// Dropped definitions never count as expired, whatever their age.
	old := newDefinition("stg_old_dropped", now.Add(-72*time.Hour), 24)
	old.DroppedAt = &now
	require.NoError(t, s.SaveDefinition(ctx, old))

	expired, err := s.FindExpiredDefinitions(ctx, now)
	require.NoError(t, err)

	names := make([]string, 0, len(expired))
	for _, def := range expired {
		names = append(names, def.PhysicalName)
	}
	assert.Contains(t, names, "stg_expired")
	assert.Contains(t, names, "stg_boundary", "a TTL that has exactly elapsed counts as expired")
	assert.NotContains(t, names, "stg_fresh")
	assert.NotContains(t, names, "stg_old_dropped")
}

func TestMemoryStoreSampleLedger(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 6; i++ {
		require.NoError(t, s.SavePerformanceSample(ctx, &core.PerformanceSample{
			DefinitionID:     "def-1",
			Kind:             core.SampleMeasurement,
			RecordsProcessed: int64(i),
			Timestamp:        base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("recent samples newest first", func(t *testing.T) {
		recent, err := s.FindRecentSamples(ctx, "def-1", 4)
		require.NoError(t, err)
		require.Len(t, recent, 4)
		assert.Equal(t, int64(5), recent[0].RecordsProcessed)
		assert.Equal(t, int64(2), recent[3].RecordsProcessed)
	})

	t.Run("range samples oldest first", func(t *testing.T) {
		ranged, err := s.FindSamplesInRange(ctx, "def-1",
			base.Add(1*time.Minute), base.Add(3*time.Minute))
		require.NoError(t, err)
		require.Len(t, ranged, 3)
		assert.Equal(t, int64(1), ranged[0].RecordsProcessed)
		assert.Equal(t, int64(3), ranged[2].RecordsProcessed)
	})

	t.Run("unknown definition yields empty", func(t *testing.T) {
		recent, err := s.FindRecentSamples(ctx, "def-unknown", 4)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})
}
