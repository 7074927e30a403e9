package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

func TestSelectStrategy(t *testing.T) {
	sel := NewSelector(DefaultPartitionThresholds())

	tests := []struct {
		name         string
		records      int64
		hasDate      bool
		hasNumericID bool
		expected     core.PartitionStrategy
	}{
		{"huge with date column", 12_000_000, true, false, core.PartitionRangeDate},
		{"huge with date and numeric id", 12_000_000, true, true, core.PartitionRangeDate},
		{"large with numeric id", 6_000_000, false, true, core.PartitionRangeNumber},
		{"large without signals", 6_000_000, false, false, core.PartitionHash},
		{"medium", 2_000_000, false, false, core.PartitionHash},
		{"small", 500_000, false, false, core.PartitionNone},
		{"small with all signals", 500_000, true, true, core.PartitionNone},
		{"at hash boundary", 1_000_000, false, false, core.PartitionNone},
		{"just over hash boundary", 1_000_001, false, false, core.PartitionHash},
		{"at date boundary stays numeric", 10_000_000, true, true, core.PartitionRangeNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sel.SelectStrategy(tt.records, tt.hasDate, tt.hasNumericID)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelectStrategyIsDeterministic(t *testing.T) {
	sel := NewSelector(DefaultPartitionThresholds())

	first := sel.SelectStrategy(12_000_000, true, true)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, sel.SelectStrategy(12_000_000, true, true))
	}
}

func TestColumnSignals(t *testing.T) {
	tests := []struct {
		name      string
		columns   []core.RawColumn
		wantDate  bool
		wantNumID bool
	}{
		{
			"date column only",
			[]core.RawColumn{{Name: "settled_on", Type: "DATE"}, {Name: "remarks", Type: "TEXT"}},
			true, false,
		},
		{
			"timestamp counts as date",
			[]core.RawColumn{{Name: "processed_at", Type: "TIMESTAMP"}},
			true, false,
		},
		{
			"numeric identifier",
			[]core.RawColumn{{Name: "order_id", Type: "BIGINT"}},
			false, true,
		},
		{
			"text identifier is not numeric",
			[]core.RawColumn{{Name: "order_id", Type: "VARCHAR(50)"}},
			false, false,
		},
		{
			"numeric non-identifier",
			[]core.RawColumn{{Name: "gross_amount", Type: "DECIMAL(15,2)"}},
			false, false,
		},
		{
			"no signals",
			[]core.RawColumn{{Name: "remarks", Type: "TEXT"}},
			false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasDate, hasNumID := ColumnSignals(tt.columns)
			assert.Equal(t, tt.wantDate, hasDate)
			assert.Equal(t, tt.wantNumID, hasNumID)
		})
	}
}

func TestPartitionClause(t *testing.T) {
	assert.Empty(t, PartitionClause(core.PartitionNone))

	hash := PartitionClause(core.PartitionHash)
	assert.Contains(t, hash, "PARTITION BY HASH")
	assert.Contains(t, hash, ColRecordSeq)
	assert.Contains(t, hash, "PARTITIONS 8")

	rangeDate := PartitionClause(core.PartitionRangeDate)
	assert.Contains(t, rangeDate, "PARTITION BY RANGE")
	assert.Contains(t, rangeDate, ColCreatedAt)
	assert.Contains(t, rangeDate, "MAXVALUE")

	rangeNum := PartitionClause(core.PartitionRangeNumber)
	assert.Contains(t, rangeNum, "PARTITION BY RANGE")
	assert.Contains(t, rangeNum, ColRecordSeq)

	list := PartitionClause(core.PartitionList)
	assert.Contains(t, list, "PARTITION BY LIST")
	assert.Contains(t, list, ColStatus)
}

func TestCreateTableDDL(t *testing.T) {
	schema := &core.TableSchema{
		Columns: []core.ColumnSpec{
			{Name: "customer_id", Type: "VARCHAR(50)", Nullable: false, Indexed: true},
			{Name: "remarks", Type: "VARCHAR(4000)", Nullable: true},
		},
		Strategy:   core.PartitionHash,
		Compressed: true,
	}

	ddl := CreateTableDDL("stg_exec1_payment_abc", schema)
	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE stg_exec1_payment_abc ("))
	assert.Contains(t, ddl, "customer_id VARCHAR(50) NOT NULL")
	assert.Contains(t, ddl, "remarks VARCHAR(4000)")
	assert.NotContains(t, ddl, "remarks VARCHAR(4000) NOT NULL")
	assert.Contains(t, ddl, "ROW_FORMAT=COMPRESSED")
	assert.Contains(t, ddl, "PARTITION BY HASH")
}

func TestIndexDDL(t *testing.T) {
	schema := &core.TableSchema{
		Columns: []core.ColumnSpec{
			{Name: "customer_id", Type: "VARCHAR(50)", Indexed: true},
			{Name: "remarks", Type: "VARCHAR(4000)"},
			{Name: ColStatus, Type: "VARCHAR(20)", Indexed: true},
		},
	}

	stmts := IndexDDL("stg_exec1_payment_abc", schema)
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE INDEX")
	assert.Contains(t, stmts[0], "(customer_id)")
	assert.Contains(t, stmts[1], "("+ColStatus+")")
}
