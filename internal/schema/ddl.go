package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// CreateTableDDL renders the CREATE TABLE statement for a staging table,
// including the partition clause and compression directive carried by the
// schema. The encryption directive is rendered separately (see
// EncryptionDDL) because its failure handling differs.
func CreateTableDDL(tableName string, schema *core.TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", tableName)

	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col.Name)
		b.WriteString(" ")
		b.WriteString(col.Type)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")

	if schema.Compressed {
		b.WriteString(" ROW_FORMAT=COMPRESSED")
	}
	if clause := PartitionClause(schema.Strategy); clause != "" {
		b.WriteString(" ")
		b.WriteString(clause)
	}
	return b.String()
}

// IndexDDL renders one CREATE INDEX statement per indexed column.
// Index names are derived from the table and column so they stay unique
// within the schema.
func IndexDDL(tableName string, schema *core.TableSchema) []string {
	var stmts []string
	for _, col := range schema.Columns {
		if !col.Indexed {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s)",
			shortName(tableName), col.Name, tableName, col.Name))
	}
	return stmts
}

// EncryptionDDL renders the at-rest encryption directive for a table.
func EncryptionDDL(tableName string) string {
	return fmt.Sprintf("ALTER TABLE %s ENCRYPTION='Y'", tableName)
}

// CompressionDDL renders the compression directive for an existing table.
func CompressionDDL(tableName string) string {
	return fmt.Sprintf("ALTER TABLE %s ROW_FORMAT=COMPRESSED", tableName)
}

// DropTableDDL renders the drop statement for a staging table.
func DropTableDDL(tableName string) string {
	return fmt.Sprintf("DROP TABLE %s", tableName)
}

// shortName trims a table name for use inside index identifiers, which are
// length-limited on most engines.
func shortName(tableName string) string {
	if len(tableName) <= 24 {
		return tableName
	}
	return tableName[len(tableName)-24:]
}
