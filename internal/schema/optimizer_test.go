package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

func TestOptimizeTypeTuning(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())

	tests := []struct {
		name     string
		column   core.RawColumn
		expected string
	}{
		{"identifier suffix", core.RawColumn{Name: "customer_id", Type: "VARCHAR(100)"}, "VARCHAR(50)"},
		{"bare id", core.RawColumn{Name: "id", Type: "BIGINT"}, "VARCHAR(50)"},
		{"key suffix", core.RawColumn{Name: "merchant_key", Type: "TEXT"}, "VARCHAR(50)"},
		{"free text", core.RawColumn{Name: "description", Type: "TEXT"}, "VARCHAR(4000)"},
		{"short code", core.RawColumn{Name: "currency_code", Type: "VARCHAR(100)"}, "VARCHAR(20)"},
		{"status marker", core.RawColumn{Name: "settlement_status", Type: "VARCHAR(64)"}, "VARCHAR(20)"},
		{"monetary amount", core.RawColumn{Name: "gross_amount", Type: "DECIMAL(10,2)"}, "DECIMAL(15,2)"},
		{"rate", core.RawColumn{Name: "tax_rate", Type: "FLOAT"}, "DECIMAL(5,4)"},
		{"counter", core.RawColumn{Name: "retry_num", Type: "INT"}, "NUMERIC(10)"},
		{"declared type kept", core.RawColumn{Name: "payload", Type: "varchar(500)"}, "VARCHAR(500)"},
		{"missing type defaults", core.RawColumn{Name: "payload"}, "VARCHAR(255)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := opt.Optimize([]core.RawColumn{tt.column}, OptimizerContext{ExpectedRecords: 100_000})
			require.NoError(t, err)
			col := schema.Column(tt.column.Name)
			require.NotNil(t, col)
			assert.Equal(t, tt.expected, col.Type)
		})
	}
}

func TestOptimizeBoundsFreeTextAtHighVolume(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())

	schema, err := opt.Optimize([]core.RawColumn{
		{Name: "remarks", Type: "TEXT"},
		{Name: "payload", Type: "VARCHAR(8000)"},
	}, OptimizerContext{ExpectedRecords: 2_000_000})
	require.NoError(t, err)

	assert.Equal(t, "VARCHAR(1000)", schema.Column("remarks").Type)
	assert.Equal(t, "VARCHAR(1000)", schema.Column("payload").Type)
}

func TestOptimizeInjectsSystemColumns(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())

	schema, err := opt.Optimize([]core.RawColumn{{Name: "customer_id", Type: "VARCHAR(50)"}},
		OptimizerContext{ExpectedRecords: 1000})
	require.NoError(t, err)

	for _, name := range []string{ColCorrelationID, ColExecutionID, ColCreatedAt, ColRecordSeq, ColStatus} {
		col := schema.Column(name)
		require.NotNil(t, col, "missing system column %s", name)
		assert.True(t, col.Indexed, "system column %s must be indexed", name)
	}
	assert.False(t, schema.Column(ColExecutionID).Nullable)
	assert.False(t, schema.Column(ColCreatedAt).Nullable)
}

func TestOptimizeIndexPolicy(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())
	columns := []core.RawColumn{
		{Name: "customer_id", Type: "VARCHAR(50)"},
		{Name: "currency_code", Type: "VARCHAR(20)"},
		{Name: "settlement_date", Type: "DATE"},
		{Name: "remarks", Type: "TEXT"},
	}

	t.Run("normal volume indexes by semantics", func(t *testing.T) {
		schema, err := opt.Optimize(columns, OptimizerContext{ExpectedRecords: 100_000})
		require.NoError(t, err)

		assert.True(t, schema.Column("customer_id").Indexed)
		assert.True(t, schema.Column("currency_code").Indexed)
		assert.True(t, schema.Column("settlement_date").Indexed)
		assert.False(t, schema.Column("remarks").Indexed)
	})

	t.Run("high volume restricts to short identifiers", func(t *testing.T) {
		schema, err := opt.Optimize(columns, OptimizerContext{ExpectedRecords: 6_000_000})
		require.NoError(t, err)

		assert.True(t, schema.Column("customer_id").Indexed)
		assert.False(t, schema.Column("currency_code").Indexed)
		assert.False(t, schema.Column("settlement_date").Indexed)
		assert.False(t, schema.Column("remarks").Indexed)
	})
}

func TestOptimizeStorageDirectives(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())
	columns := []core.RawColumn{{Name: "customer_id", Type: "VARCHAR(50)"}}

	tests := []struct {
		name       string
		octx       OptimizerContext
		compressed bool
		encrypted  bool
	}{
		{"small and plain", OptimizerContext{ExpectedRecords: 100_000, TTLHours: 24}, false, false},
		{"high volume compresses", OptimizerContext{ExpectedRecords: 1_500_000, TTLHours: 24}, true, false},
		{"sensitive data compresses", OptimizerContext{ExpectedRecords: 1000, SecurityRequired: true, TTLHours: 24}, true, false},
		{"long ttl compresses", OptimizerContext{ExpectedRecords: 1000, TTLHours: 72}, true, false},
		{"encryption needs flag and sensitivity", OptimizerContext{ExpectedRecords: 1000, SecurityRequired: true, TTLHours: 24, EncryptionEnabled: true}, true, true},
		{"flag alone never encrypts", OptimizerContext{ExpectedRecords: 1000, TTLHours: 24, EncryptionEnabled: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := opt.Optimize(columns, tt.octx)
			require.NoError(t, err)
			assert.Equal(t, tt.compressed, schema.Compressed)
			assert.Equal(t, tt.encrypted, schema.Encrypted)
		})
	}
}

func TestOptimizeMalformedColumnsFallBack(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())

	schema, err := opt.Optimize([]core.RawColumn{
		{Name: "customer_id", Type: "VARCHAR(50)"},
		{Name: "bad name!", Type: "TEXT"},
		{Name: "", Type: "INT"},
	}, OptimizerContext{ExpectedRecords: 2_000_000, SecurityRequired: true})
	require.NoError(t, err)

	// Fallback keeps what parsed plus the system columns, with no tuning
	// directives applied.
	require.NotNil(t, schema.Column("customer_id"))
	assert.Nil(t, schema.Column("bad name!"))
	assert.Equal(t, core.PartitionNone, schema.Strategy)
	assert.False(t, schema.Compressed)
	assert.False(t, schema.Encrypted)
	assert.NotNil(t, schema.Column(ColExecutionID))
}

func TestOptimizeRejectsEmptySchema(t *testing.T) {
	opt := NewOptimizer(DefaultThresholds())

	_, err := opt.Optimize(nil, OptimizerContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = opt.Optimize([]core.RawColumn{{Name: "!!"}, {Name: ""}}, OptimizerContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))
}
