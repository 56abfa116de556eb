// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/pkg/db"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// Error reports a failed catalog read. Introspection never returns a
// partial schema; the first failed query aborts the read.
type Error struct {
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("introspecting database: %s", e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Reader reads a live database catalog into a schema document. The result
// is a transient snapshot at the fidelity the diff engine compares: base
// tables, columns, primary keys, single-column unique indexes (recorded as
// column uniqueness) and enum types. Other indexes, other constraints,
// identity metadata and partitions are not reconstructed.
type Reader struct {
	conn db.DB

	// namespace is the schema to introspect, public by default
	namespace string
}

// NewReader creates a Reader for the given connection and namespace.
func NewReader(conn db.DB, namespace string) *Reader {
	if namespace == "" {
		namespace = "public"
	}
	return &Reader{conn: conn, namespace: namespace}
}

// Read introspects the live database into a schema document.
func (r *Reader) Read(ctx context.Context) (*schema.Schema, error) {
	s := schema.New()
	s.Dialect = "postgresql"
	s.Version = "1"

	tables, err := r.readTableNames(ctx)
	if err != nil {
		return nil, Error{Err: err}
	}

	for _, tableName := range tables {
		columns, err := r.readColumns(ctx, tableName)
		if err != nil {
			return nil, Error{Err: err}
		}

		pk, err := r.readPrimaryKey(ctx, tableName)
		if err != nil {
			return nil, Error{Err: err}
		}
		for _, colName := range pk {
			if c, ok := columns[colName]; ok {
				c.IsPrimaryKey = true
				c.IsNotNull = true
			}
		}

		unique, err := r.readUniqueColumns(ctx, tableName)
		if err != nil {
			return nil, Error{Err: err}
		}
		for _, colName := range unique {
			if c, ok := columns[colName]; ok && !c.IsPrimaryKey {
				c.IsUnique = true
			}
		}

		s.Tables[tableName] = &schema.Table{Columns: columns}
	}

	enums, err := r.readEnums(ctx)
	if err != nil {
		return nil, Error{Err: err}
	}
	if len(enums) > 0 {
		s.Enums = enums
	}

	return s, nil
}

func (r *Reader) readTableNames(ctx context.Context) ([]string, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
		r.namespace)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Reader) readColumns(ctx context.Context, tableName string) (map[string]*schema.Column, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT column_name, data_type, udt_name, is_nullable, column_default, character_maximum_length
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`,
		r.namespace, tableName)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %q: %w", tableName, err)
	}
	defer rows.Close()

	columns := make(map[string]*schema.Column)
	for rows.Next() {
		var (
			name, dataType, udtName, isNullable string
			columnDefault                       *string
			maxLength                           *int
		)
		if err := rows.Scan(&name, &dataType, &udtName, &isNullable, &columnDefault, &maxLength); err != nil {
			return nil, err
		}

		c := &schema.Column{
			Name:      name,
			IsNotNull: isNullable == "NO",
			Default:   columnDefault,
		}
		c.Type, c.ArrayDimensions = tagForCatalogType(dataType, udtName)
		if maxLength != nil {
			c.Size = maxLength
		}

		columns[name] = c
	}
	return columns, rows.Err()
}

func (r *Reader) readPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT a.attname
		 FROM pg_index i
		 JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		 JOIN pg_class c ON c.oid = i.indrelid
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE i.indisprimary
		 AND c.relname = $1
		 AND n.nspname = $2
		 ORDER BY a.attnum`,
		tableName, r.namespace)
	if err != nil {
		return nil, fmt.Errorf("reading primary key of %q: %w", tableName, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

// readUniqueColumns returns the columns covered by a single-column unique
// index that is not the primary key.
func (r *Reader) readUniqueColumns(ctx context.Context, tableName string) ([]string, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT a.attname
		 FROM pg_index i
		 JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		 JOIN pg_class c ON c.oid = i.indrelid
		 JOIN pg_namespace n ON n.oid = c.relnamespace
		 WHERE i.indisunique
		 AND NOT i.indisprimary
		 AND i.indnkeyatts = 1
		 AND c.relname = $1
		 AND n.nspname = $2
		 ORDER BY a.attname`,
		tableName, r.namespace)
	if err != nil {
		return nil, fmt.Errorf("reading unique columns of %q: %w", tableName, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (r *Reader) readEnums(ctx context.Context) (map[string][]string, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT t.typname, e.enumlabel
		 FROM pg_type t
		 JOIN pg_enum e ON t.oid = e.enumtypid
		 JOIN pg_namespace n ON n.oid = t.typnamespace
		 WHERE n.nspname = $1
		 ORDER BY t.typname, e.enumsortorder`,
		r.namespace)
	if err != nil {
		return nil, fmt.Errorf("listing enum types: %w", err)
	}
	defer rows.Close()

	enums := make(map[string][]string)
	for rows.Next() {
		var typeName, label string
		if err := rows.Scan(&typeName, &label); err != nil {
			return nil, err
		}
		enums[typeName] = append(enums[typeName], label)
	}
	return enums, rows.Err()
}

// tagForCatalogType maps an information_schema type name back to the
// declarative tag used in schema documents. User defined types come back
// under their udt name; arrays come back as the element tag with one
// recorded dimension, which is all the catalog view exposes.
func tagForCatalogType(dataType, udtName string) (string, *int) {
	switch dataType {
	case "character varying":
		return "varchar", nil
	case "character":
		return "char", nil
	case "timestamp with time zone":
		return "timestamptz", nil
	case "timestamp without time zone":
		return "timestamp", nil
	case "double precision":
		return "double", nil
	case "numeric":
		return "decimal", nil
	case "USER-DEFINED":
		return udtName, nil
	case "ARRAY":
		one := 1
		return tagForElementUDT(strings.TrimPrefix(udtName, "_")), &one
	}
	return dataType, nil
}

// tagForElementUDT maps the udt name of an array element to its
// declarative tag.
func tagForElementUDT(udtName string) string {
	switch udtName {
	case "bpchar":
		return "char"
	case "float8":
		return "double"
	case "numeric":
		return "decimal"
	case "int2":
		return "smallint"
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "bool":
		return "boolean"
	}
	return udtName
}
