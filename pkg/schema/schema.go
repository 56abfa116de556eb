// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"slices"
)

// New creates an empty schema document.
func New() *Schema {
	return &Schema{
		Tables: make(map[string]*Table),
	}
}

// Schema is the root of a declarative schema document. Tables and enums
// share one namespace; names must be unique across both.
type Schema struct {
	// Version is an optional semantic version for the document
	Version string `json:"version,omitempty"`

	// Dialect tags the SQL dialect the document targets
	Dialect string `json:"dialect,omitempty"`

	// Tables is a map of table name -> table definition
	Tables map[string]*Table `json:"tables"`

	// Enums maps enum type names to their ordered labels
	Enums map[string][]string `json:"enums,omitempty"`
}

// Table is a named aggregate of columns, indexes and constraints.
type Table struct {
	// Columns is a map of column name -> column definition
	Columns map[string]*Column `json:"columns"`

	// Indexes defined on the table
	Indexes []*Index `json:"indexes,omitempty"`

	// Constraints defined at the table level
	Constraints []*TableConstraint `json:"constraints,omitempty"`

	// Storage options for the table
	Options TableOptions `json:"options,omitempty"`

	// Partitions of the table
	Partitions []*Partition `json:"partitions,omitempty"`

	// Names of tables this table inherits from
	Inherits []string `json:"inherits,omitempty"`
}

// Column describes a single column of a table.
type Column struct {
	// Name is the column name as it appears in postgres
	Name string `json:"name"`

	// Type is the declarative type tag (varchar, bigint, jsonb, ...), or
	// the name of an enum defined in the same document
	Type string `json:"type"`

	// Size for sized types such as varchar(n)
	Size *int `json:"size,omitempty"`

	// ArrayDimensions is the number of array dimensions, if any
	ArrayDimensions *int `json:"arrayDimensions,omitempty"`

	IsPrimaryKey bool `json:"isPrimaryKey,omitempty"`
	IsNotNull    bool `json:"isNotNull,omitempty"`
	IsUnique     bool `json:"isUnique,omitempty"`

	// Default is an opaque SQL default expression
	Default *string `json:"default,omitempty"`

	// Identity configures a GENERATED ... AS IDENTITY column
	Identity *Identity `json:"identity,omitempty"`

	// Generated configures a generated (computed) column
	Generated *Generated `json:"generated,omitempty"`

	// Collation for text types
	Collation string `json:"collation,omitempty"`

	// Storage class: plain, external, extended or main
	Storage StorageType `json:"storage,omitempty"`

	// Statistics target for the planner
	Statistics *int `json:"statistics,omitempty"`

	// Compression method name
	Compression string `json:"compression,omitempty"`

	// References declares a foreign key from this column
	References *ForeignKey `json:"references,omitempty"`
}

// Identity holds the parameters of an identity column.
type Identity struct {
	// Sequence options backing the identity
	Sequence *SequenceOptions `json:"sequence,omitempty"`

	// Always selects GENERATED ALWAYS over GENERATED BY DEFAULT
	Always bool `json:"always,omitempty"`
}

// Generated holds a generated column expression.
type Generated struct {
	Always     bool   `json:"always,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// SequenceOptions are the sequence parameters of an identity column.
type SequenceOptions struct {
	Start     *int64 `json:"start,omitempty"`
	MinValue  *int64 `json:"minvalue,omitempty"`
	MaxValue  *int64 `json:"maxvalue,omitempty"`
	Increment *int64 `json:"increment,omitempty"`
	Cycle     bool   `json:"cycle,omitempty"`
}

// TableOptions are per-table storage parameters.
type TableOptions struct {
	Tablespace        string `json:"tablespace,omitempty"`
	Fillfactor        *int   `json:"fillfactor,omitempty"`
	ToastTupleTarget  *int   `json:"toast_tuple_target,omitempty"`
	AutovacuumEnabled *bool  `json:"autovacuum_enabled,omitempty"`
}

// Index describes a secondary index on a table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`

	// IfNotExists renders the index with IF NOT EXISTS
	IfNotExists bool `json:"if_not_exists,omitempty"`

	// Method is the index access method; btree when empty
	Method IndexMethod `json:"method,omitempty"`

	Tablespace string `json:"tablespace,omitempty"`

	// With holds method specific storage options
	With *IndexWithOptions `json:"with,omitempty"`

	// Predicate makes the index partial
	Predicate string `json:"where_clause,omitempty"`

	NullsNotDistinct *bool `json:"nulls_not_distinct,omitempty"`
}

// IndexWithOptions are the method specific WITH options of an index.
type IndexWithOptions struct {
	Fillfactor       *int  `json:"fillfactor,omitempty"`
	DeduplicateItems *bool `json:"deduplicate_items,omitempty"`
	Buffering        *bool `json:"buffering,omitempty"`
	Fastupdate       *bool `json:"fastupdate,omitempty"`
	PagesPerRange    *int  `json:"pages_per_range,omitempty"`
}

// TableConstraint is a table level constraint.
type TableConstraint struct {
	Name string `json:"name,omitempty"`

	Type ConstraintType `json:"constraintType"`

	// Columns the constraint covers, where applicable
	Columns []string `json:"columns,omitempty"`

	// Expression for check and exclude constraints
	Expression string `json:"expression,omitempty"`

	// References is the target of a foreign key constraint
	References *ForeignKey `json:"references,omitempty"`

	Deferrable        bool `json:"deferrable,omitempty"`
	InitiallyDeferred bool `json:"initially_deferred,omitempty"`
}

// ForeignKey is a reference to a column in another table of the same
// document.
type ForeignKey struct {
	Table  string `json:"table"`
	Column string `json:"column"`

	OnDelete  ForeignKeyAction `json:"on_delete,omitempty"`
	OnUpdate  ForeignKeyAction `json:"on_update,omitempty"`
	MatchType MatchType        `json:"match_type,omitempty"`
}

// Partition describes one partition of a partitioned table.
type Partition struct {
	Name       string        `json:"name"`
	Type       PartitionType `json:"partition_type"`
	Key        []string      `json:"key"`
	RangeFrom  []string      `json:"range_from,omitempty"`
	RangeTo    []string      `json:"range_to,omitempty"`
	Values     []string      `json:"values,omitempty"`
	Tablespace string        `json:"tablespace,omitempty"`
}

// GetTable returns a table by name, or nil.
func (s *Schema) GetTable(name string) *Table {
	if s.Tables == nil {
		return nil
	}
	return s.Tables[name]
}

// TableNames returns the table names in sorted order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EnumNames returns the enum type names in sorted order.
func (s *Schema) EnumNames() []string {
	names := make([]string, 0, len(s.Enums))
	for name := range s.Enums {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetColumn returns a column by name, or nil.
func (t *Table) GetColumn(name string) *Column {
	if t.Columns == nil {
		return nil
	}
	return t.Columns[name]
}

// ColumnNames returns the column names in sorted order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// PrimaryKey returns the names of the primary key columns in sorted order.
func (t *Table) PrimaryKey() []string {
	var pk []string
	for name, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, name)
		}
	}
	slices.Sort(pk)
	return pk
}
