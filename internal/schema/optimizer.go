package schema

import (
	"fmt"
	"log"
	"strings"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// System columns injected into every staging table regardless of caller input.
const (
	ColCorrelationID = "sk_correlation_id"
	ColExecutionID   = "sk_execution_id"
	ColCreatedAt     = "sk_created_at"
	ColRecordSeq     = "sk_record_seq"
	ColStatus        = "sk_status"
)

// Thresholds holds the volume boundaries that drive type tuning, indexing
// and storage directives. The boundaries are business constants by default
// but configurable per deployment.
type Thresholds struct {
	// CompressionRecords is the expected volume above which compression
	// is enabled and oversized free-text columns are shrunk.
	CompressionRecords int64 `yaml:"compression_records" json:"compression_records"`

	// IndexRestrictRecords is the expected volume above which indexing is
	// restricted to short identifier-like columns.
	IndexRestrictRecords int64 `yaml:"index_restrict_records" json:"index_restrict_records"`

	// CompressionTTLHours is the TTL above which compression is enabled
	// regardless of volume.
	CompressionTTLHours int `yaml:"compression_ttl_hours" json:"compression_ttl_hours"`

	// MaxTextLength is the bound applied to free-text columns at high volume.
	MaxTextLength int `yaml:"max_text_length" json:"max_text_length"`
}

// DefaultThresholds returns the standard business thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CompressionRecords:   1_000_000,
		IndexRestrictRecords: 5_000_000,
		CompressionTTLHours:  48,
		MaxTextLength:        1000,
	}
}

// OptimizerContext carries the creation-time signals the optimizer tunes against.
type OptimizerContext struct {
	// ExpectedRecords is the expected data volume for the staging table.
	ExpectedRecords int64

	// SecurityRequired marks the data as security-sensitive.
	SecurityRequired bool

	// TTLHours is the requested time-to-live.
	TTLHours int

	// EncryptionEnabled is the global at-rest encryption flag.
	EncryptionEnabled bool
}

// Optimizer turns a raw column specification plus contextual hints into a
// concrete, tuned table schema.
type Optimizer struct {
	thresholds Thresholds
}

// NewOptimizer creates a schema optimizer with the given thresholds.
func NewOptimizer(thresholds Thresholds) *Optimizer {
	if thresholds.CompressionRecords <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Optimizer{thresholds: thresholds}
}

// Optimize produces a tuned TableSchema from the raw columns and context.
// Malformed columns are skipped with a fallback to whatever can be parsed;
// if no columns can be parsed at all, an error wrapping ErrValidation is
// returned since an empty staging table is never valid.
func (o *Optimizer) Optimize(raw []core.RawColumn, octx OptimizerContext) (*core.TableSchema, error) {
	columns, skipped := o.tuneColumns(raw, octx)
	if len(columns) == 0 {
		return nil, core.ValidationError("no parseable columns in schema payload (%d supplied)", len(raw))
	}
	if skipped > 0 {
		log.Printf("[OPTIMIZER] Skipped %d malformed columns, continuing with %d", skipped, len(columns))
		// Fallback schema: keep whatever parsed, no tuning directives.
		columns = append(columns, o.systemColumns()...)
		return &core.TableSchema{Columns: columns, Strategy: core.PartitionNone}, nil
	}

	columns = append(columns, o.systemColumns()...)
	o.applyIndexPolicy(columns, octx)

	schema := &core.TableSchema{
		Columns:    columns,
		Strategy:   core.PartitionNone, // assigned by the lifecycle manager after selection
		Compressed: o.compressionRequired(octx),
		Encrypted:  octx.EncryptionEnabled && octx.SecurityRequired,
	}

	log.Printf("[OPTIMIZER] Tuned schema: %d columns, compressed=%v, encrypted=%v (expected records: %d)",
		len(schema.Columns), schema.Compressed, schema.Encrypted, octx.ExpectedRecords)
	return schema, nil
}

// tuneColumns applies name-pattern driven type tuning to the raw columns.
// Returns the tuned columns and the count of malformed entries skipped.
func (o *Optimizer) tuneColumns(raw []core.RawColumn, octx OptimizerContext) ([]core.ColumnSpec, int) {
	columns := make([]core.ColumnSpec, 0, len(raw)+5)
	skipped := 0

	for _, rc := range raw {
		name := strings.TrimSpace(rc.Name)
		if name == "" || !isValidColumnName(name) {
			skipped++
			continue
		}

		spec := core.ColumnSpec{
			Name:     name,
			Type:     o.tuneType(name, rc.Type, octx),
			Nullable: rc.Nullable,
		}
		columns = append(columns, spec)
	}
	return columns, skipped
}

// tuneType chooses a concrete database type from the column name pattern
// and the declared type, bounded by the expected volume.
func (o *Optimizer) tuneType(name, declared string, octx OptimizerContext) string {
	lower := strings.ToLower(name)
	declaredUpper := strings.ToUpper(strings.TrimSpace(declared))
	numeric := isNumericType(declaredUpper)

	switch {
	case isIdentifierName(lower):
		return "VARCHAR(50)"
	case hasAnySuffixOrContains(lower, "name", "description", "desc", "remarks", "narrative"):
		// Long free text, bounded at high volume.
		if octx.ExpectedRecords > o.thresholds.CompressionRecords {
			return fmt.Sprintf("VARCHAR(%d)", o.thresholds.MaxTextLength)
		}
		return "VARCHAR(4000)"
	case hasAnySuffixOrContains(lower, "code", "status", "type", "flag"):
		return "VARCHAR(20)"
	case numeric && hasAnySuffixOrContains(lower, "amount", "balance", "value", "total"):
		return "DECIMAL(15,2)"
	case numeric && hasAnySuffixOrContains(lower, "percent", "rate", "ratio"):
		return "DECIMAL(5,4)"
	case numeric && hasAnySuffixOrContains(lower, "count", "quantity", "qty", "num"):
		return "NUMERIC(10)"
	}

	if declaredUpper == "" {
		return "VARCHAR(255)"
	}
	// Shrink oversized declared text at high volume.
	if octx.ExpectedRecords > o.thresholds.CompressionRecords {
		if length, ok := varcharLength(declaredUpper); ok && length > o.thresholds.MaxTextLength {
			return fmt.Sprintf("VARCHAR(%d)", o.thresholds.MaxTextLength)
		}
	}
	return declaredUpper
}

// applyIndexPolicy marks columns for secondary indexing. System columns are
// always indexed; caller columns are indexed by name semantics, restricted
// to short identifier-like columns above the high-volume threshold.
func (o *Optimizer) applyIndexPolicy(columns []core.ColumnSpec, octx OptimizerContext) {
	restrict := octx.ExpectedRecords > o.thresholds.IndexRestrictRecords

	for i := range columns {
		col := &columns[i]
		if isSystemColumn(col.Name) {
			col.Indexed = true
			continue
		}
		lower := strings.ToLower(col.Name)
		if restrict {
			// Bound index maintenance cost: only short identifier columns.
			col.Indexed = isIdentifierName(lower) && isShortType(col.Type)
			continue
		}
		col.Indexed = isIdentifierName(lower) ||
			hasAnySuffixOrContains(lower, "code", "status", "date", "timestamp")
	}
}

// compressionRequired reports whether table compression should be enabled.
func (o *Optimizer) compressionRequired(octx OptimizerContext) bool {
	return octx.ExpectedRecords > o.thresholds.CompressionRecords ||
		octx.SecurityRequired ||
		octx.TTLHours > o.thresholds.CompressionTTLHours
}

// systemColumns returns the injected columns present in every staging table.
func (o *Optimizer) systemColumns() []core.ColumnSpec {
	return []core.ColumnSpec{
		{Name: ColCorrelationID, Type: "VARCHAR(64)", Nullable: true, Indexed: true},
		{Name: ColExecutionID, Type: "VARCHAR(64)", Nullable: false, Indexed: true},
		{Name: ColCreatedAt, Type: "TIMESTAMP", Nullable: false, Indexed: true},
		{Name: ColRecordSeq, Type: "BIGINT", Nullable: false, Indexed: true},
		{Name: ColStatus, Type: "VARCHAR(20)", Nullable: true, Indexed: true},
	}
}

func isSystemColumn(name string) bool {
	switch name {
	case ColCorrelationID, ColExecutionID, ColCreatedAt, ColRecordSeq, ColStatus:
		return true
	}
	return false
}

// isIdentifierName reports whether a column name suggests identifier or key semantics.
func isIdentifierName(lower string) bool {
	return lower == "id" ||
		strings.HasSuffix(lower, "_id") ||
		strings.HasSuffix(lower, "_key") ||
		strings.Contains(lower, "identifier")
}

// isNumericType reports whether a declared type is numeric.
func isNumericType(upper string) bool {
	base := upper
	if idx := strings.Index(upper, "("); idx > 0 {
		base = upper[:idx]
	}
	switch base {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "NUMBER":
		return true
	}
	return false
}

// isShortType reports whether a type is short enough for high-volume indexing.
func isShortType(typ string) bool {
	if length, ok := varcharLength(strings.ToUpper(typ)); ok {
		return length <= 64
	}
	base := strings.ToUpper(typ)
	if idx := strings.Index(base, "("); idx > 0 {
		base = base[:idx]
	}
	switch base {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "TIMESTAMP", "DATE", "DATETIME":
		return true
	}
	return false
}

// varcharLength extracts the declared length from a VARCHAR/CHAR type.
func varcharLength(upper string) (int, bool) {
	if !strings.HasPrefix(upper, "VARCHAR(") && !strings.HasPrefix(upper, "CHAR(") {
		return 0, false
	}
	open := strings.Index(upper, "(")
	end := strings.Index(upper, ")")
	if open < 0 || end <= open+1 {
		return 0, false
	}
	var length int
	if _, err := fmt.Sscanf(upper[open+1:end], "%d", &length); err != nil {
		return 0, false
	}
	return length, true
}

// isValidColumnName checks the name contains only identifier-safe characters.
func isValidColumnName(name string) bool {
	if len(name) > 64 {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// hasAnySuffixOrContains reports whether the lowered name contains any of
// the given markers.
func hasAnySuffixOrContains(lower string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
