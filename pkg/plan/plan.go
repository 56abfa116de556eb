// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/diff"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Plan is a pair of standalone SQL scripts: the forward DDL and its
// rollback. Both are deterministic for a given diff.
type Plan struct {
	Up   string
	Down string
}

// Planner serializes a schema diff into ordered DDL. The declared schema
// supplies definitions for objects being created; the live schema supplies
// definitions for objects being restored by the down script.
type Planner struct {
	declared *schema.Schema
	live     *schema.Schema
}

// New creates a Planner over the two schemas a diff was computed from.
func New(declared, live *schema.Schema) *Planner {
	return &Planner{declared: declared, live: live}
}

// Plan renders the diff into up and down scripts. The up ordering is fixed
// so the whole script can run as one transactional batch: column drops,
// table drops, new enums, new tables, column adds, column alters, indexes
// and constraints, then enum drops.
func (p *Planner) Plan(d *diff.SchemaDiff) *Plan {
	return &Plan{
		Up:   p.renderUp(d),
		Down: p.renderDown(d),
	}
}

func (p *Planner) renderUp(d *diff.SchemaDiff) string {
	var b strings.Builder

	// 1. Column drops
	for _, table := range sortedKeys(d.DropColumns) {
		for _, col := range d.DropColumns[table] {
			fmt.Fprintf(&b, "ALTER TABLE %s DROP COLUMN IF EXISTS %s;\n", table, col)
		}
	}

	// 2. Table drops
	for _, table := range d.DropTables {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s CASCADE;\n", table)
	}

	// 3. New enum types
	for _, name := range d.CreateEnums {
		b.WriteString(renderCreateEnum(name, p.declared.Enums[name]))
	}

	// 4. New tables
	for _, name := range d.CreateTables {
		if t := p.declared.GetTable(name); t != nil {
			fmt.Fprintf(&b, "\n-- Create table %s\n", name)
			b.WriteString(renderCreateTable(name, t))
		}
	}

	// 5. Column adds
	for _, table := range sortedKeys(d.CreateColumns) {
		for _, col := range d.CreateColumns[table] {
			fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s;\n", table, renderColumn(col))
		}
	}

	// 6. Column alters: type, then default, then nullability
	for _, table := range sortedKeys(d.AlterColumns) {
		for _, change := range d.AlterColumns[table] {
			b.WriteString(renderAlterColumn(table, change.From, change.To))
		}
	}

	// 7. Indexes and constraint additions
	for _, name := range d.CreateTables {
		if t := p.declared.GetTable(name); t != nil {
			b.WriteString(renderTableIndexes(name, t))
			b.WriteString(renderTableConstraints(name, t))
		}
	}
	for _, table := range sortedKeys(d.CreateColumns) {
		for _, col := range d.CreateColumns[table] {
			if col.IsUnique {
				b.WriteString(renderAddUnique(table, col.Name))
			}
		}
	}
	for _, table := range sortedKeys(d.AlterColumns) {
		for _, change := range d.AlterColumns[table] {
			if change.To.IsUnique && !change.From.IsUnique {
				b.WriteString(renderAddUnique(table, change.Name))
			}
			if !change.To.IsUnique && change.From.IsUnique {
				fmt.Fprintf(&b, "ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;\n", table, uniqueConstraintName(table, change.Name))
			}
		}
	}
	for _, table := range d.AlterTables {
		b.WriteString(p.renderPrimaryKeyChange(table))
	}

	// 8. Enum drops
	for _, name := range d.DropEnums {
		fmt.Fprintf(&b, "DROP TYPE IF EXISTS %s;\n", name)
	}

	return b.String()
}

// renderDown renders the inverse operation set in inverse order. Forward
// drops of tables are not losslessly reversible; the down script carries a
// placeholder noting that a backup is required.
func (p *Planner) renderDown(d *diff.SchemaDiff) string {
	var b strings.Builder

	// Recreate dropped enum types from their live definition
	for _, name := range d.DropEnums {
		b.WriteString(renderCreateEnum(name, p.live.Enums[name]))
	}

	// Undo unique constraint changes
	for _, table := range sortedKeys(d.AlterColumns) {
		for _, change := range d.AlterColumns[table] {
			if change.To.IsUnique && !change.From.IsUnique {
				fmt.Fprintf(&b, "ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;\n", table, uniqueConstraintName(table, change.Name))
			}
			if !change.To.IsUnique && change.From.IsUnique {
				b.WriteString(renderAddUnique(table, change.Name))
			}
		}
	}

	// Revert column alters to the live definition
	for _, table := range sortedKeys(d.AlterColumns) {
		for _, change := range d.AlterColumns[table] {
			b.WriteString(renderAlterColumn(table, change.To, change.From))
		}
	}

	// Drop added columns
	for _, table := range sortedKeys(d.CreateColumns) {
		for _, col := range d.CreateColumns[table] {
			fmt.Fprintf(&b, "ALTER TABLE %s DROP COLUMN IF EXISTS %s;\n", table, col.Name)
		}
	}

	// Drop created tables
	for _, table := range d.CreateTables {
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s CASCADE;\n", table)
	}

	// Drop created enum types
	for _, name := range d.CreateEnums {
		fmt.Fprintf(&b, "DROP TYPE IF EXISTS %s;\n", name)
	}

	// Dropped tables cannot be restored from the diff alone
	for _, table := range d.DropTables {
		fmt.Fprintf(&b, "-- Recreate table %s (you may need to restore from backup)\n", table)
		b.WriteString("-- This is a placeholder - manual intervention may be required\n")
	}

	// Restore dropped columns from their live definition
	for _, table := range sortedKeys(d.DropColumns) {
		liveTable := p.live.GetTable(table)
		if liveTable == nil {
			continue
		}
		for _, colName := range d.DropColumns[table] {
			if col := liveTable.GetColumn(colName); col != nil {
				fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s;\n", table, renderColumn(col))
			}
		}
	}

	return b.String()
}

func (p *Planner) renderPrimaryKeyChange(table string) string {
	t := p.declared.GetTable(table)
	if t == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s_pkey;\n", table, table)
	if pk := t.PrimaryKey(); len(pk) > 0 {
		fmt.Fprintf(&b, "ALTER TABLE %s ADD PRIMARY KEY (%s);\n", table, strings.Join(pk, ", "))
	}
	return b.String()
}

func renderCreateEnum(name string, labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = "'" + strings.ReplaceAll(l, "'", "''") + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);\n", name, strings.Join(quoted, ", "))
}

func renderCreateTable(name string, t *schema.Table) string {
	var defs []string

	if pk := t.PrimaryKey(); len(pk) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}

	for _, colName := range t.ColumnNames() {
		defs = append(defs, renderColumn(t.Columns[colName]))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n  %s\n)", name, strings.Join(defs, ",\n  "))

	if len(t.Inherits) > 0 {
		fmt.Fprintf(&b, " INHERITS (%s)", strings.Join(t.Inherits, ", "))
	}

	if with := renderTableOptions(t.Options); with != "" {
		b.WriteString(" WITH (" + with + ")")
	}
	if t.Options.Tablespace != "" {
		b.WriteString(" TABLESPACE " + t.Options.Tablespace)
	}

	b.WriteString(";\n")
	return b.String()
}

func renderTableOptions(o schema.TableOptions) string {
	var opts []string
	if o.Fillfactor != nil {
		opts = append(opts, fmt.Sprintf("fillfactor = %d", *o.Fillfactor))
	}
	if o.ToastTupleTarget != nil {
		opts = append(opts, fmt.Sprintf("toast_tuple_target = %d", *o.ToastTupleTarget))
	}
	if o.AutovacuumEnabled != nil {
		opts = append(opts, fmt.Sprintf("autovacuum_enabled = %t", *o.AutovacuumEnabled))
	}
	return strings.Join(opts, ", ")
}

// renderColumn renders one column definition:
// <name> <sql-type> [COLLATE ...] [NULL|NOT NULL] [DEFAULT ...] [GENERATED ...]
func renderColumn(c *schema.Column) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(SQLType(c))

	if c.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %q", c.Collation)
	}

	if c.IsNotNull {
		b.WriteString(" NOT NULL")
	} else {
		b.WriteString(" NULL")
	}

	if c.Default != nil {
		b.WriteString(" DEFAULT " + *c.Default)
	}

	if c.Identity != nil {
		b.WriteString(" " + renderIdentity(c.Identity))
	} else if c.Generated != nil && c.Generated.Expression != "" {
		fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", c.Generated.Expression)
	}

	return b.String()
}

func renderIdentity(id *schema.Identity) string {
	kind := "BY DEFAULT"
	if id.Always {
		kind = "ALWAYS"
	}

	var seq []string
	if id.Sequence != nil {
		if id.Sequence.Start != nil {
			seq = append(seq, fmt.Sprintf("START WITH %d", *id.Sequence.Start))
		}
		if id.Sequence.Increment != nil {
			seq = append(seq, fmt.Sprintf("INCREMENT BY %d", *id.Sequence.Increment))
		}
		if id.Sequence.MinValue != nil {
			seq = append(seq, fmt.Sprintf("MINVALUE %d", *id.Sequence.MinValue))
		}
		if id.Sequence.MaxValue != nil {
			seq = append(seq, fmt.Sprintf("MAXVALUE %d", *id.Sequence.MaxValue))
		}
		if id.Sequence.Cycle {
			seq = append(seq, "CYCLE")
		}
	}

	if len(seq) > 0 {
		return fmt.Sprintf("GENERATED %s AS IDENTITY (%s)", kind, strings.Join(seq, " "))
	}
	return fmt.Sprintf("GENERATED %s AS IDENTITY", kind)
}

func renderAlterColumn(table string, from, to *schema.Column) string {
	var b strings.Builder

	if SQLType(from) != SQLType(to) {
		fmt.Fprintf(&b, "ALTER TABLE %s ALTER COLUMN %s TYPE %s;\n", table, to.Name, SQLType(to))
	}

	if !equalStringPtr(from.Default, to.Default) {
		if to.Default != nil {
			fmt.Fprintf(&b, "ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;\n", table, to.Name, *to.Default)
		} else {
			fmt.Fprintf(&b, "ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;\n", table, to.Name)
		}
	}

	if from.IsNotNull != to.IsNotNull {
		if to.IsNotNull {
			fmt.Fprintf(&b, "ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;\n", table, to.Name)
		} else {
			fmt.Fprintf(&b, "ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;\n", table, to.Name)
		}
	}

	return b.String()
}

func renderTableIndexes(table string, t *schema.Table) string {
	var b strings.Builder
	for _, idx := range t.Indexes {
		b.WriteString(renderCreateIndex(table, idx))
	}
	return b.String()
}

func renderCreateIndex(table string, idx *schema.Index) string {
	var b strings.Builder

	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if idx.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&b, "%s ON %s USING %s (%s)", idx.Name, table, idx.Method.OrBtree(), strings.Join(idx.Columns, ", "))

	if idx.NullsNotDistinct != nil && *idx.NullsNotDistinct {
		b.WriteString(" NULLS NOT DISTINCT")
	}
	if with := renderIndexWith(idx.With); with != "" {
		b.WriteString(" WITH (" + with + ")")
	}
	if idx.Tablespace != "" {
		b.WriteString(" TABLESPACE " + idx.Tablespace)
	}
	if idx.Predicate != "" {
		b.WriteString(" WHERE " + idx.Predicate)
	}

	b.WriteString(";\n")
	return b.String()
}

func renderIndexWith(w *schema.IndexWithOptions) string {
	if w == nil {
		return ""
	}
	var opts []string
	if w.Fillfactor != nil {
		opts = append(opts, fmt.Sprintf("fillfactor = %d", *w.Fillfactor))
	}
	if w.DeduplicateItems != nil {
		opts = append(opts, fmt.Sprintf("deduplicate_items = %t", *w.DeduplicateItems))
	}
	if w.Buffering != nil {
		opts = append(opts, fmt.Sprintf("buffering = %t", *w.Buffering))
	}
	if w.Fastupdate != nil {
		opts = append(opts, fmt.Sprintf("fastupdate = %t", *w.Fastupdate))
	}
	if w.PagesPerRange != nil {
		opts = append(opts, fmt.Sprintf("pages_per_range = %d", *w.PagesPerRange))
	}
	return strings.Join(opts, ", ")
}

func renderTableConstraints(table string, t *schema.Table) string {
	var b strings.Builder

	for _, con := range t.Constraints {
		if con.Type == schema.ConstraintTypePrimaryKey {
			// Covered by the PRIMARY KEY clause in CREATE TABLE
			continue
		}
		b.WriteString(renderAddConstraint(table, con))
	}

	for _, colName := range t.ColumnNames() {
		col := t.Columns[colName]
		if col.IsUnique && !col.IsPrimaryKey {
			b.WriteString(renderAddUnique(table, colName))
		}
		if col.References != nil {
			fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s_%s_fkey FOREIGN KEY (%s) REFERENCES %s (%s)%s;\n",
				table, table, colName, colName, col.References.Table, col.References.Column,
				renderReferentialActions(col.References))
		}
	}

	return b.String()
}

func renderAddConstraint(table string, con *schema.TableConstraint) string {
	name := con.Name
	if name == "" {
		name = fmt.Sprintf("%s_%s", table, strings.Join(con.Columns, "_"))
	}

	var def string
	switch con.Type {
	case schema.ConstraintTypeUnique:
		def = fmt.Sprintf("UNIQUE (%s)", strings.Join(con.Columns, ", "))
	case schema.ConstraintTypeCheck:
		def = fmt.Sprintf("CHECK (%s)", con.Expression)
	case schema.ConstraintTypeExclude:
		def = fmt.Sprintf("EXCLUDE %s", con.Expression)
	case schema.ConstraintTypeForeignKey:
		if con.References == nil {
			return ""
		}
		def = fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)%s",
			strings.Join(con.Columns, ", "), con.References.Table, con.References.Column,
			renderReferentialActions(con.References))
	default:
		return ""
	}

	if con.Deferrable {
		def += " DEFERRABLE"
		if con.InitiallyDeferred {
			def += " INITIALLY DEFERRED"
		}
	}

	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s;\n", table, name, def)
}

func renderReferentialActions(fk *schema.ForeignKey) string {
	var b strings.Builder
	if action := fk.OnDelete.SQL(); action != "" {
		b.WriteString(" ON DELETE " + action)
	}
	if action := fk.OnUpdate.SQL(); action != "" {
		b.WriteString(" ON UPDATE " + action)
	}
	return b.String()
}

func renderAddUnique(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);\n", table, uniqueConstraintName(table, column), column)
}

func uniqueConstraintName(table, column string) string {
	return fmt.Sprintf("%s_%s_key", table, column)
}

// SQLType maps a declarative type tag to its rendered SQL type. Tags
// outside the mapping, such as enum names, pass through verbatim. Array
// types append a bracket pair per dimension.
func SQLType(c *schema.Column) string {
	base := baseSQLType(c.Type, c.Size)
	if c.ArrayDimensions != nil && *c.ArrayDimensions > 0 {
		base += strings.Repeat("[]", *c.ArrayDimensions)
	}
	return base
}

func baseSQLType(tag string, size *int) string {
	switch tag {
	case "varchar", "char":
		if size != nil {
			return fmt.Sprintf("VARCHAR(%d)", *size)
		}
		return "VARCHAR(255)"
	case "decimal":
		return "DECIMAL(10, 2)"
	case "bigint", "integer", "smallint":
		return strings.ToUpper(tag)
	case "float", "double":
		return "DOUBLE PRECISION"
	case "timestamp", "timestamptz":
		return "TIMESTAMP WITH TIME ZONE"
	case "json", "jsonb", "boolean", "date", "text", "uuid", "bytea":
		return strings.ToUpper(tag)
	}
	return tag
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
