package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// Partition boundaries. Fixed business constants unless overridden through
// PartitionThresholds.
const (
	defaultHashPartitions      = 8
	defaultRangeNumberBoundary = 50_000_000
)

// PartitionThresholds holds the volume boundaries driving strategy selection.
type PartitionThresholds struct {
	// RangeDateRecords is the volume above which a date-partitioned table
	// is preferred when a date column is present.
	RangeDateRecords int64 `yaml:"range_date_records" json:"range_date_records"`

	// RangeNumberRecords is the volume above which numeric range
	// partitioning is preferred when a numeric identifier is present.
	RangeNumberRecords int64 `yaml:"range_number_records" json:"range_number_records"`

	// HashRecords is the volume above which hash partitioning is used.
	HashRecords int64 `yaml:"hash_records" json:"hash_records"`
}

// DefaultPartitionThresholds returns the standard business boundaries.
func DefaultPartitionThresholds() PartitionThresholds {
	return PartitionThresholds{
		RangeDateRecords:   10_000_000,
		RangeNumberRecords: 5_000_000,
		HashRecords:        1_000_000,
	}
}

// Selector chooses a partitioning scheme from volume and column-shape signals.
type Selector struct {
	thresholds PartitionThresholds
}

// NewSelector creates a partition strategy selector with the given thresholds.
func NewSelector(thresholds PartitionThresholds) *Selector {
	if thresholds.HashRecords <= 0 {
		thresholds = DefaultPartitionThresholds()
	}
	return &Selector{thresholds: thresholds}
}

// SelectStrategy is a pure function of the creation signals: expected record
// count, whether a date-typed column is present, and whether a numeric
// identifier-like column is present.
func (s *Selector) SelectStrategy(expectedRecords int64, hasDateColumn, hasNumericID bool) core.PartitionStrategy {
	switch {
	case expectedRecords > s.thresholds.RangeDateRecords && hasDateColumn:
		return core.PartitionRangeDate
	case expectedRecords > s.thresholds.RangeNumberRecords && hasNumericID:
		return core.PartitionRangeNumber
	case expectedRecords > s.thresholds.HashRecords:
		return core.PartitionHash
	default:
		return core.PartitionNone
	}
}

// ColumnSignals derives the column-shape signals SelectStrategy consumes
// from a raw column specification.
func ColumnSignals(raw []core.RawColumn) (hasDateColumn, hasNumericID bool) {
	for _, col := range raw {
		upper := strings.ToUpper(strings.TrimSpace(col.Type))
		base := upper
		if idx := strings.Index(upper, "("); idx > 0 {
			base = upper[:idx]
		}
		switch base {
		case "DATE", "DATETIME", "TIMESTAMP":
			hasDateColumn = true
		}
		if isNumericType(upper) && isIdentifierName(strings.ToLower(col.Name)) {
			hasNumericID = true
		}
	}
	return hasDateColumn, hasNumericID
}

// PartitionClause renders the DDL partition clause for a strategy.
// NONE emits no clause. Clause generation is mechanical: every strategy
// keys on an injected system column so it never depends on caller columns.
func PartitionClause(strategy core.PartitionStrategy) string {
	switch strategy {
	case core.PartitionHash:
		return fmt.Sprintf("PARTITION BY HASH(%s) PARTITIONS %d", ColRecordSeq, defaultHashPartitions)
	case core.PartitionRangeDate:
		return fmt.Sprintf(
			"PARTITION BY RANGE (TO_DAYS(%s)) (PARTITION p_current VALUES LESS THAN (TO_DAYS(NOW() + INTERVAL 1 DAY)), PARTITION p_future VALUES LESS THAN MAXVALUE)",
			ColCreatedAt)
	case core.PartitionRangeNumber:
		return fmt.Sprintf(
			"PARTITION BY RANGE (%s) (PARTITION p_low VALUES LESS THAN (%d), PARTITION p_high VALUES LESS THAN MAXVALUE)",
			ColRecordSeq, defaultRangeNumberBoundary)
	case core.PartitionList:
		return fmt.Sprintf(
			"PARTITION BY LIST COLUMNS(%s) (PARTITION p_pending VALUES IN ('PENDING'), PARTITION p_processing VALUES IN ('PROCESSING'), PARTITION p_terminal VALUES IN ('COMPLETED','FAILED','SKIPPED'))",
			ColStatus)
	default:
		return ""
	}
}
