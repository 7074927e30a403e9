package core

import (
	"encoding/json"
	"fmt"
)

// ColumnSpec represents a single column in a staging table schema.
// A ColumnSpec is owned exclusively by the TableSchema it belongs to.
type ColumnSpec struct {
	// Name is the column name.
	Name string `json:"name"`

	// Type is the database type (e.g., "VARCHAR(50)", "DECIMAL(15,2)").
	Type string `json:"type"`

	// Nullable indicates whether the column can contain NULL values.
	Nullable bool `json:"nullable"`

	// Indexed indicates whether a secondary index is created for the column.
	Indexed bool `json:"indexed"`
}

// TableSchema is the tuned schema for a staging table: an ordered sequence
// of columns plus the storage directives chosen at creation time.
// It is built once per creation and immutable thereafter; a new version
// requires a new resource.
type TableSchema struct {
	// Columns are the column definitions in order.
	Columns []ColumnSpec `json:"columns"`

	// Strategy is the partition strategy selected for the table.
	Strategy PartitionStrategy `json:"partition_strategy"`

	// Compressed indicates whether table compression is enabled.
	Compressed bool `json:"compressed"`

	// Encrypted indicates whether at-rest encryption is enabled.
	Encrypted bool `json:"encrypted"`
}

// Column returns the column with the given name, or nil if absent.
func (s *TableSchema) Column(name string) *ColumnSpec {
	for i := range s.Columns {
		if s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// IndexedColumns returns the names of all indexed columns in order.
func (s *TableSchema) IndexedColumns() []string {
	var names []string
	for _, col := range s.Columns {
		if col.Indexed {
			names = append(names, col.Name)
		}
	}
	return names
}

// Serialize renders the schema as JSON for storage in a ResourceDefinition.
func (s *TableSchema) Serialize() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to serialize schema: %w", err)
	}
	return string(data), nil
}

// ParseSchema reconstructs a TableSchema from its serialized JSON form.
func ParseSchema(data string) (*TableSchema, error) {
	var schema TableSchema
	if err := json.Unmarshal([]byte(data), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &schema, nil
}
