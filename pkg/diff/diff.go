// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"slices"

	"github.com/schemaflow/schemaflow/pkg/schema"
)

// SchemaDiff is the structural delta between a declared schema and a live
// one. All collections are populated in sorted-by-name order so that two
// runs over the same inputs produce identical plans.
type SchemaDiff struct {
	// CreateTables are tables present in declared but not live
	CreateTables []string

	// DropTables are tables present in live but not declared
	DropTables []string

	// AlterTables are surviving tables whose table-level shape (primary
	// key) changed
	AlterTables []string

	// CreateColumns maps a surviving table to columns to add
	CreateColumns map[string][]*schema.Column

	// AlterColumns maps a surviving table to columns whose attributes
	// changed
	AlterColumns map[string][]*ColumnChange

	// DropColumns maps a surviving table to column names to drop
	DropColumns map[string][]string

	// CreateEnums are enum types present in declared but not live
	CreateEnums []string

	// DropEnums are enum types present in live but not declared
	DropEnums []string

	// DataLossWarnings describes each change that may discard data
	DataLossWarnings []string
}

// ColumnChange pairs the live and declared versions of a changed column.
type ColumnChange struct {
	Name string

	// From is the live column
	From *schema.Column

	// To is the declared column
	To *schema.Column
}

// HasChanges reports whether the diff contains any work for the planner.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.CreateTables) > 0 ||
		len(d.DropTables) > 0 ||
		len(d.AlterTables) > 0 ||
		len(d.CreateColumns) > 0 ||
		len(d.AlterColumns) > 0 ||
		len(d.DropColumns) > 0 ||
		len(d.CreateEnums) > 0 ||
		len(d.DropEnums) > 0
}

// HasDataLoss reports whether any change may discard data.
func (d *SchemaDiff) HasDataLoss() bool {
	return len(d.DataLossWarnings) > 0
}

// Compute compares a declared schema document against a live one and
// classifies every difference. Column renames are not inferred: a renamed
// column appears as a drop plus an add, and is reported as data loss.
func Compute(declared, live *schema.Schema) *SchemaDiff {
	d := &SchemaDiff{
		CreateColumns: make(map[string][]*schema.Column),
		AlterColumns:  make(map[string][]*ColumnChange),
		DropColumns:   make(map[string][]string),
	}

	d.compareTables(declared, live)
	d.compareEnums(declared, live)

	return d
}

func (d *SchemaDiff) compareTables(declared, live *schema.Schema) {
	for _, name := range declared.TableNames() {
		if live.GetTable(name) == nil {
			d.CreateTables = append(d.CreateTables, name)
		}
	}

	for _, name := range live.TableNames() {
		if declared.GetTable(name) == nil {
			d.DropTables = append(d.DropTables, name)
			d.warn("Table '%s' will be dropped with all data", name)
		}
	}

	// Column level diff for surviving tables
	for _, name := range declared.TableNames() {
		liveTable := live.GetTable(name)
		if liveTable == nil {
			continue
		}
		d.compareColumns(name, declared.Tables[name], liveTable)

		if !slices.Equal(declared.Tables[name].PrimaryKey(), liveTable.PrimaryKey()) {
			d.AlterTables = append(d.AlterTables, name)
		}
	}
}

func (d *SchemaDiff) compareColumns(tableName string, declared, live *schema.Table) {
	for _, colName := range declared.ColumnNames() {
		col := declared.Columns[colName]
		liveCol := live.GetColumn(colName)

		if liveCol == nil {
			d.CreateColumns[tableName] = append(d.CreateColumns[tableName], col)

			if col.IsNotNull && col.Default == nil && col.Identity == nil {
				d.warn("Column '%s.%s' is NOT NULL without a default; adding it fails on non-empty tables", tableName, colName)
			}
			continue
		}

		if !columnsEqual(col, liveCol) {
			d.AlterColumns[tableName] = append(d.AlterColumns[tableName], &ColumnChange{
				Name: colName,
				From: liveCol,
				To:   col,
			})

			if isNarrowing(liveCol, col) {
				d.warn("Column '%s.%s' narrows from %s to %s and may truncate data",
					tableName, colName, typeLabel(liveCol), typeLabel(col))
			}
		}
	}

	for _, colName := range live.ColumnNames() {
		if declared.GetColumn(colName) == nil {
			d.DropColumns[tableName] = append(d.DropColumns[tableName], colName)
			d.warn("Column '%s.%s' will be dropped", tableName, colName)
		}
	}
}

func (d *SchemaDiff) compareEnums(declared, live *schema.Schema) {
	for _, name := range declared.EnumNames() {
		liveLabels, ok := live.Enums[name]
		if !ok {
			d.CreateEnums = append(d.CreateEnums, name)
			continue
		}
		// Label additions are benign; removals may orphan stored values.
		for _, label := range liveLabels {
			if !slices.Contains(declared.Enums[name], label) {
				d.warn("Enum '%s' loses label '%s'; rows holding it become unreadable", name, label)
			}
		}
	}

	for _, name := range live.EnumNames() {
		if _, ok := declared.Enums[name]; !ok {
			d.DropEnums = append(d.DropEnums, name)
			d.warn("Enum '%s' will be dropped", name)
		}
	}
}

func (d *SchemaDiff) warn(format string, args ...any) {
	d.DataLossWarnings = append(d.DataLossWarnings, fmt.Sprintf(format, args...))
}

// columnsEqual compares the attributes the engine reconciles: type, size,
// nullability, default, identity, uniqueness and collation. Types are
// compared through their canonical rendering so that aliases such as
// timestamp/timestamptz and float/double do not register as changes.
func columnsEqual(declared, live *schema.Column) bool {
	if canonicalType(declared.Type) != canonicalType(live.Type) {
		return false
	}
	if effectiveSize(declared) != effectiveSize(live) {
		return false
	}
	// The catalog does not expose array dimension counts, so only the
	// presence of array-ness is compared.
	if isArray(declared) != isArray(live) {
		return false
	}
	if declared.IsNotNull != live.IsNotNull {
		return false
	}
	if !equalDefault(declared.Default, live.Default) {
		return false
	}
	// Identity and collation are invisible to introspection; a change only
	// registers when the live side carries a value to compare against.
	if live.Identity != nil && declared.Identity == nil {
		return false
	}
	if live.Collation != "" && declared.Collation != live.Collation {
		return false
	}
	if declared.IsUnique != live.IsUnique {
		return false
	}
	return true
}

// canonicalType folds type tag aliases into one representative.
func canonicalType(tag string) string {
	switch tag {
	case "timestamptz":
		return "timestamp"
	case "double":
		return "float"
	}
	return tag
}

// effectiveSize returns the size a sized type resolves to once rendered;
// varchar and char default to 255.
func effectiveSize(c *schema.Column) int {
	if c.Size != nil {
		return *c.Size
	}
	switch c.Type {
	case "varchar", "char":
		return 255
	}
	return 0
}

// typeLabel renders a column type for warning messages.
func typeLabel(c *schema.Column) string {
	if c.Size != nil {
		return fmt.Sprintf("%s(%d)", c.Type, *c.Size)
	}
	return c.Type
}

func isArray(c *schema.Column) bool {
	return c.ArrayDimensions != nil && *c.ArrayDimensions > 0
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// typeWidths orders the types that participate in narrowing checks from
// narrowest to widest.
var typeWidths = map[string]int{
	"char":     1,
	"varchar":  2,
	"text":     3,
	"smallint": 1,
	"integer":  2,
	"bigint":   3,
	"decimal":  4,
	"float":    4,
	"double":   4,
}

var textTypes = []string{"char", "varchar", "text"}

// isNarrowing reports whether changing a column from `from` to `to` can
// truncate stored values: a wider type becoming narrower within the text
// or numeric families, or a sized type shrinking.
func isNarrowing(from, to *schema.Column) bool {
	fromWidth, fromKnown := typeWidths[canonicalWidthTag(from.Type)]
	toWidth, toKnown := typeWidths[canonicalWidthTag(to.Type)]

	if fromKnown && toKnown && sameFamily(from.Type, to.Type) && toWidth < fromWidth {
		return true
	}

	// Same sized type, smaller size
	if canonicalType(from.Type) == canonicalType(to.Type) && effectiveSize(to) < effectiveSize(from) && effectiveSize(from) > 0 {
		return true
	}

	return false
}

func canonicalWidthTag(tag string) string {
	switch tag {
	case "double":
		return "float"
	}
	return tag
}

func sameFamily(a, b string) bool {
	aText := slices.Contains(textTypes, a)
	bText := slices.Contains(textTypes, b)
	return aText == bText
}
