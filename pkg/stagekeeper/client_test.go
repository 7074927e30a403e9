package stagekeeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/stagekeeper/internal/archive"
	"github.com/rzpsarthak13/stagekeeper/internal/core"
	"github.com/rzpsarthak13/stagekeeper/internal/database"
	"github.com/rzpsarthak13/stagekeeper/internal/store"
)

// recordingPublisher captures archival events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []archive.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event archive.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) captured() []archive.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]archive.Event, len(p.events))
	copy(out, p.events)
	return out
}

type clientFixture struct {
	client    Client
	store     *store.MemoryStore
	executor  *database.MemoryExecutor
	publisher *recordingPublisher
}

func newClientFixture(t *testing.T, mutate func(*Config)) *clientFixture {
	t.Helper()

	config := DefaultConfig()
	config.Store.Type = "memory"
	if mutate != nil {
		mutate(config)
	}

	st := store.NewMemoryStore()
	exec := database.NewMemoryExecutor()
	pub := &recordingPublisher{}

	client, err := NewClient(config,
		WithExecutor(exec),
		WithStore(st),
		WithArchivePublisher(pub))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return &clientFixture{client: client, store: st, executor: exec, publisher: pub}
}

func settlementRequest() *core.CreateRequest {
	return &core.CreateRequest{
		ExecutionID:     "exec-settle-07",
		TransactionType: "SETTLEMENT",
		Columns: []core.RawColumn{
			{Name: "merchant_id", Type: "VARCHAR(50)"},
			{Name: "gross_amount", Type: "DECIMAL(15,2)"},
			{Name: "settled_on", Type: "DATE"},
		},
		ExpectedRecords: 2_000_000,
		TTLHours:        24,
	}
}

func TestClientLifecycleEndToEnd(t *testing.T) {
	f := newClientFixture(t, nil)
	ctx := context.Background()

	def, err := f.client.Create(ctx, settlementRequest())
	require.NoError(t, err)

	// Two million expected records: the table is compressed and hashed.
	assert.Equal(t, core.PartitionHash, def.Strategy)
	assert.Equal(t, 1, def.CompressionLevel)
	assert.True(t, f.executor.TableExists(def.PhysicalName))

	got, err := f.client.GetMetrics(ctx, "exec-settle-07")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ActiveResources)
	assert.Equal(t, 1, got.TotalResources)

	ok := f.client.Retire(ctx, def.PhysicalName, "batch complete")
	assert.True(t, ok)
	assert.False(t, f.executor.TableExists(def.PhysicalName))

	stored, err := f.store.FindDefinitionByName(ctx, def.PhysicalName)
	require.NoError(t, err)
	assert.NotNil(t, stored.DroppedAt)

	events := f.publisher.captured()
	require.Len(t, events, 1)
	assert.Equal(t, archive.EventResourceRetired, events[0].Kind)
	assert.Equal(t, def.PhysicalName, events[0].PhysicalName)

	assert.Equal(t, int64(1), f.client.Metrics().Counter(core.MetricResourcesCreated))
	assert.Equal(t, int64(1), f.client.Metrics().Counter(core.MetricResourcesDropped))
}

func TestClientOptimizeUnknownResource(t *testing.T) {
	f := newClientFixture(t, nil)

	_, err := f.client.Optimize(context.Background(), "stg_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestClientCleanupRetiresExpiredResources(t *testing.T) {
	f := newClientFixture(t, func(config *Config) {
		config.Cleanup.Interval = 20 * time.Millisecond
	})
	ctx := context.Background()

	def, err := f.client.Create(ctx, settlementRequest())
	require.NoError(t, err)

	// Age the definition past its TTL.
	stored, err := f.store.FindDefinitionByName(ctx, def.PhysicalName)
	require.NoError(t, err)
	stored.CreatedAt = time.Now().Add(-25 * time.Hour)
	require.NoError(t, f.store.SaveDefinition(ctx, stored))

	require.NoError(t, f.client.StartCleanup(ctx))
	defer f.client.StopCleanup()

	deadline := time.After(2 * time.Second)
	for f.executor.TableExists(def.PhysicalName) {
		select {
		case <-deadline:
			t.Fatal("cleanup never retired the expired resource")
		case <-time.After(10 * time.Millisecond):
		}
	}

	final, err := f.store.FindDefinitionByName(ctx, def.PhysicalName)
	require.NoError(t, err)
	assert.NotNil(t, final.DroppedAt)
}

func TestNewClientRejectsNilConfig(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
}
