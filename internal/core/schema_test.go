package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSchemaAccessors(t *testing.T) {
	schema := &TableSchema{
		Columns: []ColumnSpec{
			{Name: "customer_id", Type: "VARCHAR(50)", Indexed: true},
			{Name: "remarks", Type: "VARCHAR(4000)", Nullable: true},
			{Name: "sk_status", Type: "VARCHAR(20)", Indexed: true},
		},
	}

	require.NotNil(t, schema.Column("remarks"))
	assert.Nil(t, schema.Column("missing"))
	assert.Equal(t, []string{"customer_id", "sk_status"}, schema.IndexedColumns())
}

func TestSchemaSerializeRoundTrip(t *testing.T) {
	schema := &TableSchema{
		Columns: []ColumnSpec{
			{Name: "customer_id", Type: "VARCHAR(50)", Indexed: true},
		},
		Strategy:   PartitionHash,
		Compressed: true,
	}

	data, err := schema.Serialize()
	require.NoError(t, err)

	parsed, err := ParseSchema(data)
	require.NoError(t, err)
	assert.Equal(t, schema, parsed)

	_, err = ParseSchema("{not json")
	require.Error(t, err)
}

func TestDefinitionLifecycleState(t *testing.T) {
	def := &ResourceDefinition{TTLHours: 24}
	assert.True(t, def.IsActive())

	assert.Equal(t, def.CreatedAt.Add(24*time.Hour), def.ExpiresAt())

	dropped := time.Now()
	def.DroppedAt = &dropped
	assert.False(t, def.IsActive())
}
